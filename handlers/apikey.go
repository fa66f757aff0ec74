package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mailshield/mailshield/auth"
	"github.com/mailshield/mailshield/middleware"
	"github.com/mailshield/mailshield/models"
	"github.com/mailshield/mailshield/store"
)

// APIKeyHandler handles API key management endpoints
type APIKeyHandler struct {
	store store.Store
}

// NewAPIKeyHandler creates a new API key handler
func NewAPIKeyHandler(st store.Store) *APIKeyHandler {
	return &APIKeyHandler{
		store: st,
	}
}

// CreateKeyRequest represents a request to create an API key
type CreateKeyRequest struct {
	Label *string `json:"label"`
}

// CreateKeyResponse represents the response when creating an API key.
// The plaintext secret is only returned here, once, at creation time.
type CreateKeyResponse struct {
	ID        string    `json:"id"`
	Label     *string   `json:"label"`
	OwnerID   string    `json:"ownerId"`
	Secret    string    `json:"secret"`
	Last4     string    `json:"last4"`
	CreatedAt time.Time `json:"createdAt"`
}

// KeyInfo represents API key metadata as shown in listings. Neither the
// secret nor its digest ever appears here.
type KeyInfo struct {
	ID        string     `json:"id"`
	Label     *string    `json:"label"`
	Last4     string     `json:"last4"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt"`
}

// ListKeysResponse represents the key listing response
type ListKeysResponse struct {
	OwnerID string    `json:"ownerId"`
	Keys    []KeyInfo `json:"keys"`
}

// RevokeKeyRequest represents a request to revoke an API key
type RevokeKeyRequest struct {
	KeyID string `json:"keyId"`
}

// RevokeKeyResponse represents the response after revoking an API key
type RevokeKeyResponse struct {
	ID        string     `json:"id"`
	Label     *string    `json:"label"`
	OwnerID   string     `json:"ownerId"`
	Last4     string     `json:"last4"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt"`
}

// Create handles POST /api/keys
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json_body")
		return
	}

	// Optional label, stored as null when absent or blank
	var label *string
	if req.Label != nil {
		trimmed := strings.TrimSpace(*req.Label)
		if trimmed != "" {
			label = &trimmed
		}
	}
	if label != nil && len(*label) > 100 {
		respondError(w, http.StatusBadRequest, "label must be <= 100 characters")
		return
	}

	secret, err := auth.GenerateSecret()
	if err != nil {
		log.Printf("Failed to generate API key secret: %v", err)
		respondError(w, http.StatusInternalServerError, "failed_to_create_api_key")
		return
	}

	key := &models.APIKey{
		OwnerID:      session.UserID,
		Label:        label,
		SecretDigest: auth.DigestSecret(secret),
		Last4:        auth.SecretSuffix(secret),
	}

	// Not idempotent: a transport-level retry issues a second distinct key.
	if err := h.store.CreateAPIKey(key); err != nil {
		log.Printf("Failed to create API key for owner %s: %v", session.UserID, err)
		respondError(w, http.StatusInternalServerError, "failed_to_create_api_key")
		return
	}

	respondJSON(w, http.StatusCreated, CreateKeyResponse{
		ID:        key.ID,
		Label:     key.Label,
		OwnerID:   key.OwnerID,
		Secret:    secret,
		Last4:     key.Last4,
		CreatedAt: key.CreatedAt,
	})
}

// List handles GET /api/keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	keys, err := h.store.ListAPIKeysByOwner(session.UserID)
	if err != nil {
		log.Printf("Failed to list API keys for owner %s: %v", session.UserID, err)
		respondError(w, http.StatusInternalServerError, "failed_to_list_api_keys")
		return
	}

	result := make([]KeyInfo, 0, len(keys))
	for _, key := range keys {
		result = append(result, KeyInfo{
			ID:        key.ID,
			Label:     key.Label,
			Last4:     key.Last4,
			CreatedAt: key.CreatedAt,
			RevokedAt: key.RevokedAt,
		})
	}

	respondJSON(w, http.StatusOK, ListKeysResponse{
		OwnerID: session.UserID,
		Keys:    result,
	})
}

// Revoke handles POST /api/keys/revoke. Revocation is idempotent: revoking
// an already-revoked key returns the original revocation time. A key that
// does not exist and a key owned by someone else are indistinguishable.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	var req RevokeKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json_body")
		return
	}

	if strings.TrimSpace(req.KeyID) == "" {
		respondError(w, http.StatusBadRequest, "keyId is required")
		return
	}

	key, err := h.store.RevokeAPIKey(session.UserID, req.KeyID)
	if err != nil {
		if err == store.ErrNotFound {
			respondError(w, http.StatusNotFound, "api_key_not_found")
			return
		}
		log.Printf("Failed to revoke API key %s for owner %s: %v", req.KeyID, session.UserID, err)
		respondError(w, http.StatusInternalServerError, "failed_to_revoke_api_key")
		return
	}

	respondJSON(w, http.StatusOK, RevokeKeyResponse{
		ID:        key.ID,
		Label:     key.Label,
		OwnerID:   key.OwnerID,
		Last4:     key.Last4,
		CreatedAt: key.CreatedAt,
		RevokedAt: key.RevokedAt,
	})
}
