// Package fcm sends push notifications through the FCM HTTP v1 API.
// Authentication follows the service-account flow: an RS256-signed JWT
// assertion exchanged for a short-lived OAuth access token. Delivery
// is best effort; callers treat the per-token counts as metadata.
package fcm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	oauthTokenURL = "https://oauth2.googleapis.com/token"
	fcmScope      = "https://www.googleapis.com/auth/firebase.messaging"
	sendURLFormat = "https://fcm.googleapis.com/v1/projects/%s/messages:send"

	assertionTTL = 50 * time.Minute
)

type serviceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

type Client struct {
	account serviceAccount
	http    *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New parses a base64-encoded service-account JSON blob.
func New(serviceAccountB64 string) (*Client, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(serviceAccountB64))
	if err != nil {
		return nil, fmt.Errorf("decode service account: %w", err)
	}

	var sa serviceAccount

	err = json.Unmarshal(raw, &sa)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}

	if sa.ProjectID == "" || sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("service account missing project_id, client_email or private_key")
	}

	// Secrets pasted through env often carry escaped newlines.
	sa.PrivateKey = strings.ReplaceAll(sa.PrivateKey, `\n`, "\n")

	return &Client{
		account: sa,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// SendToTokens delivers one notification per device token and returns
// per-token success/failure counts. A transport error on one token does
// not abort the rest.
func (c *Client) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) (sent, failed int, err error) {
	clean := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return 0, 0, nil
	}

	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("get access token: %w", err)
	}

	sendURL := fmt.Sprintf(sendURLFormat, c.account.ProjectID)

	for _, t := range clean {
		err := c.sendOne(ctx, sendURL, accessToken, t, title, body, data)
		if err != nil {
			failed++

			slog.Warn("fcm send failed", "error", err)

			continue
		}

		sent++
	}

	return sent, failed, nil
}

func (c *Client) sendOne(ctx context.Context, sendURL, accessToken, token, title, body string, data map[string]string) error {
	payload := map[string]any{
		"message": map[string]any{
			"token": token,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
		},
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	//nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("fcm responded %d: %s", resp.StatusCode, msg)
	}

	return nil
}

// getAccessToken returns a cached OAuth token, exchanging a fresh JWT
// assertion when the cached one is near expiry.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	assertion, err := c.signAssertion()
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oauthTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	//nolint:errcheck
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}

	err = json.NewDecoder(resp.Body).Decode(&tokenResp)
	if err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token exchange responded %d", resp.StatusCode)
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return c.accessToken, nil
}

func (c *Client) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.account.ClientEmail,
		"sub":   c.account.ClientEmail,
		"aud":   oauthTokenURL,
		"scope": fcmScope,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionTTL).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}

	return signed, nil
}
