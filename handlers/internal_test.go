package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mailshield/mailshield/store"
)

func issueKey(t *testing.T, h *APIKeyHandler, ownerID string) CreateKeyResponse {
	t.Helper()

	req := authedRequest("POST", "/api/keys", `{}`, ownerID)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Create() status = %v, want %v", rr.Code, http.StatusCreated)
	}

	var resp CreateKeyResponse
	decodeBody(t, rr, &resp)
	return resp
}

func TestInternalHandler_VerifyKey(t *testing.T) {
	st := store.NewMemoryStore()
	keyHandler := NewAPIKeyHandler(st)
	h := NewInternalHandler(st)

	created := issueKey(t, keyHandler, "user_1")

	req := httptest.NewRequest("POST", "/internal/keys/verify", strings.NewReader(`{"secret": "`+created.Secret+`"}`))
	rr := httptest.NewRecorder()
	h.VerifyKey(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("VerifyKey() status = %v, want %v", rr.Code, http.StatusOK)
	}

	var resp VerifyKeyResponse
	decodeBody(t, rr, &resp)

	if !resp.Valid {
		t.Error("VerifyKey() valid = false, want true")
	}
	if resp.OwnerID != "user_1" {
		t.Errorf("VerifyKey() ownerId = %v, want user_1", resp.OwnerID)
	}
	if resp.KeyID != created.ID {
		t.Errorf("VerifyKey() keyId = %v, want %v", resp.KeyID, created.ID)
	}
}

func TestInternalHandler_VerifyKey_UnknownSecret(t *testing.T) {
	h := NewInternalHandler(store.NewMemoryStore())

	req := httptest.NewRequest("POST", "/internal/keys/verify", strings.NewReader(`{"secret": "sk_live_doesnotexist"}`))
	rr := httptest.NewRecorder()
	h.VerifyKey(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("VerifyKey() status = %v, want %v", rr.Code, http.StatusOK)
	}

	var resp VerifyKeyResponse
	decodeBody(t, rr, &resp)

	if resp.Valid {
		t.Error("VerifyKey() valid = true for unknown secret")
	}
	if resp.OwnerID != "" || resp.KeyID != "" {
		t.Errorf("VerifyKey() leaked identifiers for unknown secret: %+v", resp)
	}
}

func TestInternalHandler_VerifyKey_RevokedKey(t *testing.T) {
	st := store.NewMemoryStore()
	keyHandler := NewAPIKeyHandler(st)
	h := NewInternalHandler(st)

	created := issueKey(t, keyHandler, "user_1")

	req := authedRequest("POST", "/api/keys/revoke", `{"keyId": "`+created.ID+`"}`, "user_1")
	rr := httptest.NewRecorder()
	keyHandler.Revoke(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Revoke() status = %v, want %v", rr.Code, http.StatusOK)
	}

	req = httptest.NewRequest("POST", "/internal/keys/verify", strings.NewReader(`{"secret": "`+created.Secret+`"}`))
	rr = httptest.NewRecorder()
	h.VerifyKey(rr, req)

	var resp VerifyKeyResponse
	decodeBody(t, rr, &resp)

	if resp.Valid {
		t.Error("VerifyKey() valid = true for revoked key")
	}
}

func TestInternalHandler_VerifyKey_Validation(t *testing.T) {
	h := NewInternalHandler(store.NewMemoryStore())

	req := httptest.NewRequest("POST", "/internal/keys/verify", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	h.VerifyKey(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("VerifyKey() status = %v, want %v", rr.Code, http.StatusBadRequest)
	}
	if code := errorCode(t, rr); code != "secret is required" {
		t.Errorf("VerifyKey() error = %q, want %q", code, "secret is required")
	}

	req = httptest.NewRequest("POST", "/internal/keys/verify", strings.NewReader(`not json`))
	rr = httptest.NewRecorder()
	h.VerifyKey(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("VerifyKey() status = %v, want %v", rr.Code, http.StatusBadRequest)
	}
	if code := errorCode(t, rr); code != "invalid_json_body" {
		t.Errorf("VerifyKey() error = %v, want invalid_json_body", code)
	}
}

func TestInternalHandler_RecordUsage(t *testing.T) {
	st := store.NewMemoryStore()
	h := NewInternalHandler(st)

	body := `{"ownerId": "user_1", "date": "2026-08-20", "ok": 10, "suspect": 2, "disposable": 1}`
	req := httptest.NewRequest("POST", "/internal/usage", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.RecordUsage(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("RecordUsage() status = %v, want %v", rr.Code, http.StatusOK)
	}

	// Second ingest for the same day accumulates
	req = httptest.NewRequest("POST", "/internal/usage", strings.NewReader(body))
	rr = httptest.NewRecorder()
	h.RecordUsage(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("RecordUsage() second call status = %v, want %v", rr.Code, http.StatusOK)
	}

	usageHandler := NewUsageHandler(st)
	req = authedRequest("GET", "/api/usage?from=2026-08-20&to=2026-08-20", "", "user_1")
	rr = httptest.NewRecorder()
	usageHandler.Usage(rr, req)

	var resp UsageResponse
	decodeBody(t, rr, &resp)

	if resp.Totals.OK != 20 || resp.Totals.Suspect != 4 || resp.Totals.Disposable != 2 {
		t.Errorf("RecordUsage() accumulated totals = %+v, want 20/4/2", resp.Totals)
	}
}

func TestInternalHandler_RecordUsage_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{
			name:      "missing owner",
			body:      `{"date": "2026-08-20", "ok": 1}`,
			wantError: "ownerId is required",
		},
		{
			name:      "bad date",
			body:      `{"ownerId": "user_1", "date": "yesterday", "ok": 1}`,
			wantError: "invalid_date",
		},
		{
			name:      "negative count",
			body:      `{"ownerId": "user_1", "date": "2026-08-20", "ok": -1}`,
			wantError: "invalid_counts",
		},
		{
			name:      "invalid json",
			body:      `{{`,
			wantError: "invalid_json_body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewInternalHandler(store.NewMemoryStore())

			req := httptest.NewRequest("POST", "/internal/usage", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.RecordUsage(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("RecordUsage() status = %v, want %v", rr.Code, http.StatusBadRequest)
			}
			if code := errorCode(t, rr); code != tt.wantError {
				t.Errorf("RecordUsage() error = %q, want %q", code, tt.wantError)
			}
		})
	}
}
