package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mightybites/coins-engine/internal/infra/rediscache"
	"github.com/mightybites/coins-engine/internal/repos/catalog"
	"github.com/mightybites/coins-engine/internal/repos/draws"
	"github.com/mightybites/coins-engine/internal/repos/ledger"
	"github.com/mightybites/coins-engine/internal/repos/profiles"
	pgprofiles "github.com/mightybites/coins-engine/internal/repos/profiles/postgres"
	"github.com/mightybites/coins-engine/internal/repos/wallets"
	"github.com/mightybites/coins-engine/internal/services/draw"
	"github.com/mightybites/coins-engine/internal/services/purchase"
	"github.com/mightybites/coins-engine/internal/services/topup"
	"github.com/mightybites/coins-engine/internal/services/wallet"
)

const walletCacheTTL = 60 * time.Second

// HandlerProvider wraps the core services and exposes HTTP handlers.
type HandlerProvider struct {
	wallet   *wallet.Service
	purchase *purchase.Service
	topup    *topup.Service
	draw     *draw.Service
	profiles profiles.Profiles
	cache    *rediscache.Cache
}

// NewHandler wires the services over one DB handle. cache may be nil.
func NewHandler(db *sql.DB, notifier draw.Notifier, cache *rediscache.Cache) *HandlerProvider {
	return &HandlerProvider{
		wallet:   wallet.New(db),
		purchase: purchase.New(db),
		topup:    topup.New(db),
		draw:     draw.New(db, notifier),
		profiles: pgprofiles.New(db),
		cache:    cache,
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)

		http.Error(w, `{"error":"internal json encode failure"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

func parseDrawIDFromPath(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "drawId")
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("missing drawId")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid drawId: %w", err)
	}

	return id, nil
}

// writeServiceError maps core sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, purchase.ErrInvalidRequest),
		errors.Is(err, purchase.ErrProfileIncomplete),
		errors.Is(err, purchase.ErrInvalidPrice),
		errors.Is(err, topup.ErrInvalidCode),
		errors.Is(err, topup.ErrInvalidAmount),
		errors.Is(err, topup.ErrInvalidType),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, draw.ErrRegNotStarted),
		errors.Is(err, draw.ErrRegClosed),
		errors.Is(err, draw.ErrFreeNotAvailable),
		errors.Is(err, draw.ErrFreeSlotsFull),
		errors.Is(err, draw.ErrPaidNotAvailable),
		errors.Is(err, draw.ErrNoParticipants),
		errors.Is(err, draw.ErrForcedUserNotFound),
		errors.Is(err, draw.ErrForcedUserNotParticipant),
		errors.Is(err, draws.ErrAlreadyJoinedFree):
		writeError(w, http.StatusBadRequest, trimmedSentinel(err))

	case errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, catalog.ErrRestaurantNotFound),
		errors.Is(err, topup.ErrUserNotFound),
		errors.Is(err, draws.ErrDrawNotFound):
		writeError(w, http.StatusNotFound, trimmedSentinel(err))

	case errors.Is(err, purchase.ErrRestaurantRestricted):
		writeError(w, http.StatusForbidden, trimmedSentinel(err))

	case errors.Is(err, wallets.ErrInsufficientBalance),
		errors.Is(err, draws.ErrDrawNotOpen):
		writeError(w, http.StatusConflict, trimmedSentinel(err))

	default:
		slog.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// trimmedSentinel unwraps to the innermost sentinel message so clients
// see "insufficient balance", not the whole wrap chain.
func trimmedSentinel(err error) string {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err.Error()
		}
		err = inner
	}
}

func (h *HandlerProvider) walletCacheKey(userID uuid.UUID) string {
	return "wallet:user:" + userID.String()
}

func (h *HandlerProvider) ledgerCacheKey(userID uuid.UUID, page, pageSize int) string {
	return fmt.Sprintf("ledger:user:%s:page:%d:size:%d", userID, page, pageSize)
}

// invalidateWallet drops the cached balance and the first few history
// pages after a mutation.
func (h *HandlerProvider) invalidateWallet(r *http.Request, userID uuid.UUID) {
	keys := []string{h.walletCacheKey(userID)}
	for page := 1; page <= 5; page++ {
		keys = append(keys, h.ledgerCacheKey(userID, page, 20))
	}

	err := h.cache.Delete(r.Context(), keys...)
	if err != nil {
		slog.Warn("cache invalidation failed", "user_id", userID, "error", err)
	}
}

// --- Handlers ---

type walletResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

// GetWalletHandler handles GET /wallet
func (h *HandlerProvider) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID := callerUserID(r)
	key := h.walletCacheKey(userID)

	var resp walletResponse

	hit, err := h.cache.GetJSON(r.Context(), key, &resp)
	if err != nil {
		slog.Warn("wallet cache read failed", "error", err)
	}
	if hit {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	balance, err := h.wallet.GetBalance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp = walletResponse{UserID: userID, Balance: balance}

	err = h.cache.SetJSON(r.Context(), key, resp, walletCacheTTL)
	if err != nil {
		slog.Warn("wallet cache write failed", "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

type ledgerResponse struct {
	Entries    []ledger.Entry `json:"entries"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// GetLedgerHandler handles GET /wallet/ledger?page=&page_size=
func (h *HandlerProvider) GetLedgerHandler(w http.ResponseWriter, r *http.Request) {
	userID := callerUserID(r)

	page := 1
	pageSize := 20
	if p := r.URL.Query().Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	key := h.ledgerCacheKey(userID, page, pageSize)

	var resp ledgerResponse

	hit, err := h.cache.GetJSON(r.Context(), key, &resp)
	if err != nil {
		slog.Warn("ledger cache read failed", "error", err)
	}
	if hit {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	entries, total, err := h.wallet.ListLedger(r.Context(), userID, page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp = ledgerResponse{
		Entries:    entries,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}

	err = h.cache.SetJSON(r.Context(), key, resp, walletCacheTTL)
	if err != nil {
		slog.Warn("ledger cache write failed", "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

type purchaseRequest struct {
	DealID     string `json:"deal_id,omitempty"`
	MenuItemID string `json:"menu_item_id,omitempty"`
}

// PurchaseHandler handles POST /purchase
func (h *HandlerProvider) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	userID := callerUserID(r)

	var req purchaseRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in purchase.Input

	if req.DealID != "" {
		id, err := uuid.Parse(req.DealID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid deal_id")
			return
		}
		in.DealID = &id
	}
	if req.MenuItemID != "" {
		id, err := uuid.Parse(req.MenuItemID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid menu_item_id")
			return
		}
		in.MenuItemID = &id
	}

	receipt, err := h.purchase.Purchase(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.invalidateWallet(r, userID)

	writeJSON(w, http.StatusOK, receipt)
}

type topupRequest struct {
	UniqueCode string `json:"unique_code"`
	Amount     int64  `json:"amount"`
	Type       string `json:"type,omitempty"`
}

// TopupHandler handles POST /admin/topup
func (h *HandlerProvider) TopupHandler(w http.ResponseWriter, r *http.Request) {
	callerID := callerUserID(r)

	var req topupRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := req.Type
	if kind == "" {
		kind = ledger.TypeTopup
	}

	credited, err := h.topup.Topup(r.Context(), callerID, req.UniqueCode, req.Amount, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.invalidateWallet(r, credited.TargetUserID)

	writeJSON(w, http.StatusOK, credited)
}

type registerEntryRequest struct {
	EntryType string `json:"entry_type"`
}

// RegisterEntryHandler handles POST /draws/{drawId}/entries
func (h *HandlerProvider) RegisterEntryHandler(w http.ResponseWriter, r *http.Request) {
	userID := callerUserID(r)

	drawID, err := parseDrawIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid drawId in path")
		return
	}

	var req registerEntryRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.EntryType {
	case draws.EntryFree:
		entry, err := h.draw.RegisterFree(r.Context(), userID, drawID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, entry)

	case draws.EntryPaid:
		entry, err := h.draw.RegisterPaid(r.Context(), userID, drawID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		h.invalidateWallet(r, userID)

		writeJSON(w, http.StatusOK, entry)

	default:
		writeError(w, http.StatusBadRequest, "invalid entry_type")
	}
}

type pickWinnerRequest struct {
	ForcedUniqueCode string `json:"forced_unique_code,omitempty"`
}

// PickWinnerHandler handles POST /admin/draws/{drawId}/winner
func (h *HandlerProvider) PickWinnerHandler(w http.ResponseWriter, r *http.Request) {
	callerID := callerUserID(r)

	drawID, err := parseDrawIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid drawId in path")
		return
	}

	var req pickWinnerRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var forced *string
	if req.ForcedUniqueCode != "" {
		forced = &req.ForcedUniqueCode
	}

	winner, err := h.draw.PickWinner(r.Context(), callerID, drawID, forced)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, winner)
}
