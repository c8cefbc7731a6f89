package kb

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/aviroy619/rabbitloader-chat/pkg/auth"
	"github.com/aviroy619/rabbitloader-chat/pkg/logging"
)

var testSecret = []byte("test-admin-secret")

func newAdminRouter(t *testing.T, mockSetup func(sqlmock.Sqlmock)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if mockSetup != nil {
		mockSetup(mock)
	}

	api, err := NewAdminAPI(NewStore(db), &fakeEmbedder{}, logging.NewLogger())
	if err != nil {
		t.Fatalf("NewAdminAPI: %v", err)
	}
	api.now = func() time.Time { return time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC) }

	router := gin.New()
	api.RegisterRoutes(router, testSecret)
	return router
}

func operatorToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateJWT("u1", "ops@rabbitloader.com", "operator", testSecret)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func TestAdminCorrectionRequiresAuth(t *testing.T) {
	router := newAdminRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/corrections",
		bytes.NewBufferString(`{"question":"q","answer":"a"}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAdminCorrectionRejectsNonOperator(t *testing.T) {
	router := newAdminRouter(t, nil)

	token, err := auth.GenerateJWT("u2", "user@example.com", "viewer", testSecret)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/corrections",
		bytes.NewBufferString(`{"question":"q","answer":"a"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestAdminCorrectionStoredAndRetrievable(t *testing.T) {
	router := newAdminRouter(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectExec("INSERT INTO rlchat.rlchat_kb").
			WillReturnResult(sqlmock.NewResult(0, 1))
	})

	body := `{"question":"How do I purge cache?","answer":"Use the Console purge button.","sessionId":"s9"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/corrections", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+operatorToken(t))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK         bool       `json:"ok"`
		Correction Correction `json:"correction"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK {
		t.Error("ok = false")
	}
	if resp.Correction.Editor != "ops@rabbitloader.com" {
		t.Errorf("editor = %q, want claim email", resp.Correction.Editor)
	}
	if resp.Correction.SessionID != "s9" {
		t.Errorf("sessionId = %q", resp.Correction.SessionID)
	}
}

func TestAdminCorrectionValidatesBody(t *testing.T) {
	router := newAdminRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/corrections",
		bytes.NewBufferString(`{"question":"  ","answer":""}`))
	req.Header.Set("Authorization", "Bearer "+operatorToken(t))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAdminListActions(t *testing.T) {
	router := newAdminRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/actions", nil)
	req.Header.Set("Authorization", "Bearer "+operatorToken(t))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		OK      bool `json:"ok"`
		Actions []struct {
			ID string `json:"id"`
		} `json:"actions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Actions) != 11 {
		t.Errorf("actions = %d, want 11", len(resp.Actions))
	}
}

// Write-then-read: a stored correction must win the very next lookup.
func TestCorrectionWinsNextLookup(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	mock.ExpectExec("INSERT INTO rlchat.rlchat_kb").WillReturnResult(sqlmock.NewResult(0, 1))

	correction := Correction{
		ID: "admin_edit_s1_1", Question: "purge cache?", Answer: "Use Console.",
		CreatedAt: time.Now(),
	}
	if err := store.UpsertCorrection(context.Background(), correction, []float32{0.1}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	searcher := &fakeSearcher{byTier: map[string][]Chunk{
		TierAdminEdits: {{ID: correction.ID, Tier: TierAdminEdits, Text: correction.Answer, Similarity: 0.90}},
		TierKB:         {{ID: "k1", Tier: TierKB, Similarity: 0.95}},
	}}
	got := newTestRetriever(searcher).Retrieve(context.Background(), "purge cache?")
	if got.Source != TierAdminEdits {
		t.Errorf("source = %q, correction should win", got.Source)
	}
	if got.Chunks[0].Text != "Use Console." {
		t.Errorf("text = %q", got.Chunks[0].Text)
	}
}
