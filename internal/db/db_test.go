package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ghax-org/dtoken/internal/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "dtoken_test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func strPtr(s string) *string { return &s }
func intPtr(i int64) *int64   { return &i }

func TestOpenAppliesMigrations(t *testing.T) {
	database := setupTestDB(t)

	count, err := CountTokens(database)
	if err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	if count != 0 {
		t.Errorf("fresh database has %d tokens, want 0", count)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtoken_test.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	_ = second.Close()
}

func TestCreateAndListTokens(t *testing.T) {
	database := setupTestDB(t)

	tok := &models.Token{
		Token:     "6qgthl1yw1vqdlftj380",
		Method:    "GET",
		Precision: "s",
		Timestamp: 1700000000,
		Client:    strPtr("192.0.2.1:8080"),
		ID1:       intPtr(42),
		Source:    "api",
	}
	id, err := CreateToken(database, tok)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if id == 0 {
		t.Error("create token returned id 0")
	}

	tokens, err := ListRecentTokens(database, 10)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("got %d tokens, want 1", len(tokens))
	}

	got := tokens[0]
	if got.Token != tok.Token {
		t.Errorf("token = %q, want %q", got.Token, tok.Token)
	}
	if got.Method != "GET" || got.Precision != "s" || got.Timestamp != 1700000000 {
		t.Errorf("stored fields = %q/%q/%d, want GET/s/1700000000", got.Method, got.Precision, got.Timestamp)
	}
	if got.Client == nil || *got.Client != "192.0.2.1:8080" {
		t.Errorf("client = %v, want 192.0.2.1:8080", got.Client)
	}
	if got.LB != nil || got.Server != nil {
		t.Errorf("absent endpoints stored non-nil: lb=%v server=%v", got.LB, got.Server)
	}
	if got.ID1 == nil || *got.ID1 != 42 {
		t.Errorf("id1 = %v, want 42", got.ID1)
	}
	if got.ID2 != nil {
		t.Errorf("id2 = %v, want nil", got.ID2)
	}
	if got.CreatedAt == 0 {
		t.Error("created_at not set")
	}
}

func TestListRecentTokensOrderAndLimit(t *testing.T) {
	database := setupTestDB(t)

	for _, val := range []string{"aaa", "bbb", "ccc"} {
		_, err := CreateToken(database, &models.Token{
			Token: val, Method: "GET", Precision: "s", Timestamp: 1, Source: "http",
		})
		if err != nil {
			t.Fatalf("create token %s: %v", val, err)
		}
	}

	tokens, err := ListRecentTokens(database, 2)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(tokens))
	}
	if tokens[0].Token != "ccc" || tokens[1].Token != "bbb" {
		t.Errorf("order = %q, %q; want ccc, bbb", tokens[0].Token, tokens[1].Token)
	}
}
