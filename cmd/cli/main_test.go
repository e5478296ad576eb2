package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/famledger/internal/infrastructure/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}))

	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestTokenCmd(t *testing.T) {
	out, err := execute(t, "token", "u-1", "--secret", "s3cret", "--family", "fam-9", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.NewJWTManager("s3cret", time.Hour).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "fam-9", claims.FamilyID)
}

func TestTokenCmdRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := execute(t, "token", "u-1")
	assert.Error(t, err)
}

func TestBalanceHistoryCmd(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"strategy":"reverse","balances":[]}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--token", "abc",
		"balance", "history", "acc-1", "--from", "2026-03-01", "--to", "2026-03-31", "--strategy", "reverse")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/accounts/acc-1/balance/history", gotPath)
	assert.Equal(t, "from=2026-03-01&strategy=reverse&to=2026-03-31", gotQuery)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Contains(t, out, `"strategy": "reverse"`)
}

func TestBalanceCmdReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found"}`))
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "balance", "summary", "acc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestMigrateDownRejectsNonPositiveSteps(t *testing.T) {
	_, err := execute(t, "migrate", "down", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--steps")
}
