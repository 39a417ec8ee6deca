package pgtestutil

import (
	"strings"
	"testing"
)

func TestReplaceDBInDSN(t *testing.T) {
	out, err := ReplaceDBInDSN(BaseDSN, "testdb_coins")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "/testdb_coins") {
		t.Fatalf("db not replaced: %s", out)
	}
	if !strings.Contains(out, "sslmode=disable") {
		t.Fatalf("query params lost: %s", out)
	}
}

func TestSanitizeForPgIdent(t *testing.T) {
	got := sanitizeForPgIdent("TestDraws/pick winner:case")
	if strings.ContainsAny(got, "/ :") {
		t.Fatalf("unsanitized ident: %s", got)
	}
	if got != strings.ToLower(got) {
		t.Fatalf("ident not lowercased: %s", got)
	}

	long := strings.Repeat("x", 100)
	if len(sanitizeForPgIdent(long)) > 63 {
		t.Fatal("ident longer than pg limit")
	}
}
