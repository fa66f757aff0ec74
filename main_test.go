package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mailshield/mailshield/auth"
	"github.com/mailshield/mailshield/config"
	"github.com/mailshield/mailshield/handlers"
	"github.com/mailshield/mailshield/store"
)

const (
	testSecret        = "test-secret-key-at-least-32-chars"
	testIssuer        = "mailshield"
	testInternalToken = "internal-token"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               "8080",
		CORSAllowedOrigins: []string{"*"},
		SessionSecret:      testSecret,
		SessionIssuer:      testIssuer,
		InternalAPIToken:   testInternalToken,
		IssueRateLimit:     100,
	}
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	st := store.NewMemoryStore()
	verifier := auth.NewTokenVerifier(testSecret, testIssuer)
	return newRouter(testConfig(), st, verifier)
}

func sessionToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.SignSessionToken(testSecret, testIssuer, userID, userID+"@example.com", 15*time.Minute)
	if err != nil {
		t.Fatalf("SignSessionToken() error = %v, want nil", err)
	}
	return token
}

func doRequest(r http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRouter_KeyLifecycle(t *testing.T) {
	r := testRouter(t)
	token := sessionToken(t, "u1")

	// Issue
	rr := doRequest(r, "POST", "/api/keys", token, `{"label": "CI key"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("issue status = %v, want %v: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var created handlers.CreateKeyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("issue response invalid JSON: %v", err)
	}

	if !strings.HasPrefix(created.Secret, auth.SecretPrefix) {
		t.Errorf("issue secret = %v, want prefix %v", created.Secret, auth.SecretPrefix)
	}
	if created.Last4 != strings.ToUpper(created.Secret[len(created.Secret)-6:]) {
		t.Errorf("issue last4 = %v, want uppercase secret tail", created.Last4)
	}

	// List shows the new key, active, without the secret
	rr = doRequest(r, "GET", "/api/keys", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %v, want %v", rr.Code, http.StatusOK)
	}
	if strings.Contains(rr.Body.String(), created.Secret) {
		t.Error("list response contains the plaintext secret")
	}

	var listed handlers.ListKeysResponse
	json.Unmarshal(rr.Body.Bytes(), &listed)
	if len(listed.Keys) != 1 {
		t.Fatalf("list len = %d, want 1", len(listed.Keys))
	}
	if listed.Keys[0].ID != created.ID || listed.Keys[0].Last4 != created.Last4 {
		t.Errorf("list entry = %+v, want id/last4 of created key", listed.Keys[0])
	}
	if listed.Keys[0].RevokedAt != nil {
		t.Error("list revokedAt != nil before revoke")
	}

	// Revoke
	rr = doRequest(r, "POST", "/api/keys/revoke", token, `{"keyId": "`+created.ID+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("revoke status = %v, want %v: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var revoked handlers.RevokeKeyResponse
	json.Unmarshal(rr.Body.Bytes(), &revoked)
	if revoked.RevokedAt == nil {
		t.Fatal("revoke revokedAt = nil, want timestamp")
	}
	if revoked.RevokedAt.Before(revoked.CreatedAt) {
		t.Error("revoke revokedAt before createdAt")
	}

	// The key is still listed, revoked, not deleted
	rr = doRequest(r, "GET", "/api/keys", token, "")
	json.Unmarshal(rr.Body.Bytes(), &listed)
	if len(listed.Keys) != 1 {
		t.Fatalf("list after revoke len = %d, want 1", len(listed.Keys))
	}
	if listed.Keys[0].RevokedAt == nil {
		t.Error("list after revoke revokedAt = nil, want timestamp")
	}
}

func TestRouter_ListOrdering(t *testing.T) {
	r := testRouter(t)
	token := sessionToken(t, "u1")

	var ids []string
	for _, label := range []string{"first", "second", "third"} {
		rr := doRequest(r, "POST", "/api/keys", token, `{"label": "`+label+`"}`)
		if rr.Code != http.StatusCreated {
			t.Fatalf("issue status = %v, want %v", rr.Code, http.StatusCreated)
		}
		var created handlers.CreateKeyResponse
		json.Unmarshal(rr.Body.Bytes(), &created)
		ids = append(ids, created.ID)
		time.Sleep(2 * time.Millisecond)
	}

	rr := doRequest(r, "GET", "/api/keys", token, "")
	var listed handlers.ListKeysResponse
	json.Unmarshal(rr.Body.Bytes(), &listed)

	if len(listed.Keys) != 3 {
		t.Fatalf("list len = %d, want 3", len(listed.Keys))
	}

	// Most recent first
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if listed.Keys[i].ID != want {
			t.Errorf("list[%d].id = %v, want %v", i, listed.Keys[i].ID, want)
		}
	}
}

func TestRouter_AuthRequired(t *testing.T) {
	r := testRouter(t)

	tests := []struct {
		name      string
		method    string
		target    string
		token     string
		wantError string
	}{
		{
			name:      "no token on list",
			method:    "GET",
			target:    "/api/keys",
			token:     "",
			wantError: "missing authorization header",
		},
		{
			name:      "bad token on issue",
			method:    "POST",
			target:    "/api/keys",
			token:     "not-a-valid-token",
			wantError: "invalid session",
		},
		{
			name:      "no token on me",
			method:    "GET",
			target:    "/api/me",
			token:     "",
			wantError: "missing authorization header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(r, tt.method, tt.target, tt.token, "")
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %v, want %v", rr.Code, http.StatusUnauthorized)
			}

			var body map[string]string
			json.Unmarshal(rr.Body.Bytes(), &body)
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := testRouter(t)
	token := sessionToken(t, "u1")

	rr := doRequest(r, "GET", "/api/keys/revoke", token, "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %v, want %v", rr.Code, http.StatusMethodNotAllowed)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("405 body is not JSON: %q", rr.Body.String())
	}
	if body["error"] != "Method not allowed" {
		t.Errorf("error = %q, want %q", body["error"], "Method not allowed")
	}
}

func TestRouter_InternalVerify(t *testing.T) {
	r := testRouter(t)
	token := sessionToken(t, "u1")

	rr := doRequest(r, "POST", "/api/keys", token, `{}`)
	var created handlers.CreateKeyResponse
	json.Unmarshal(rr.Body.Bytes(), &created)

	// Wrong internal token is rejected
	rr = doRequest(r, "POST", "/internal/keys/verify", "wrong-token", `{"secret": "`+created.Secret+`"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("verify with wrong token status = %v, want %v", rr.Code, http.StatusUnauthorized)
	}

	// Correct internal token verifies the key
	rr = doRequest(r, "POST", "/internal/keys/verify", testInternalToken, `{"secret": "`+created.Secret+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("verify status = %v, want %v", rr.Code, http.StatusOK)
	}

	var verified handlers.VerifyKeyResponse
	json.Unmarshal(rr.Body.Bytes(), &verified)
	if !verified.Valid || verified.OwnerID != "u1" {
		t.Errorf("verify response = %+v, want valid key for u1", verified)
	}

	// After revocation the same secret no longer verifies
	rr = doRequest(r, "POST", "/api/keys/revoke", token, `{"keyId": "`+created.ID+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("revoke status = %v, want %v", rr.Code, http.StatusOK)
	}

	rr = doRequest(r, "POST", "/internal/keys/verify", testInternalToken, `{"secret": "`+created.Secret+`"}`)
	json.Unmarshal(rr.Body.Bytes(), &verified)
	if verified.Valid {
		t.Error("verify valid = true after revoke")
	}
}

func TestRouter_Health(t *testing.T) {
	r := testRouter(t)

	rr := doRequest(r, "GET", "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %v, want %v", rr.Code, http.StatusOK)
	}
}
