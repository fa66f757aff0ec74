package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mailshield/mailshield/auth"
	"github.com/mailshield/mailshield/store"
)

// InternalHandler handles callbacks from the verification API. These routes
// sit behind the shared internal token, not user sessions.
type InternalHandler struct {
	store store.Store
}

// NewInternalHandler creates a new internal handler
func NewInternalHandler(st store.Store) *InternalHandler {
	return &InternalHandler{
		store: st,
	}
}

// VerifyKeyRequest carries a presented API secret
type VerifyKeyRequest struct {
	Secret string `json:"secret"`
}

// VerifyKeyResponse reports whether a presented secret maps to an active
// key. OwnerID and KeyID are only set when valid.
type VerifyKeyResponse struct {
	Valid   bool   `json:"valid"`
	OwnerID string `json:"ownerId,omitempty"`
	KeyID   string `json:"keyId,omitempty"`
}

// RecordUsageRequest carries one batch of classification counts
type RecordUsageRequest struct {
	OwnerID    string `json:"ownerId"`
	Date       string `json:"date"`
	OK         int    `json:"ok"`
	Suspect    int    `json:"suspect"`
	Disposable int    `json:"disposable"`
}

// VerifyKey handles POST /internal/keys/verify. An unknown secret and a
// revoked key both answer valid=false; nothing distinguishes the two.
func (h *InternalHandler) VerifyKey(w http.ResponseWriter, r *http.Request) {
	var req VerifyKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json_body")
		return
	}

	if req.Secret == "" {
		respondError(w, http.StatusBadRequest, "secret is required")
		return
	}

	key, err := h.store.GetAPIKeyByDigest(auth.DigestSecret(req.Secret))
	if err != nil {
		if err == store.ErrNotFound {
			respondJSON(w, http.StatusOK, VerifyKeyResponse{Valid: false})
			return
		}
		log.Printf("Failed to verify API key: %v", err)
		respondError(w, http.StatusInternalServerError, "failed_to_verify_api_key")
		return
	}

	if !key.Active() {
		respondJSON(w, http.StatusOK, VerifyKeyResponse{Valid: false})
		return
	}

	// Best effort; a failed touch must not fail verification
	if err := h.store.TouchAPIKey(key.ID); err != nil {
		log.Printf("Failed to touch API key %s: %v", key.ID, err)
	}

	respondJSON(w, http.StatusOK, VerifyKeyResponse{
		Valid:   true,
		OwnerID: key.OwnerID,
		KeyID:   key.ID,
	})
}

// RecordUsage handles POST /internal/usage
func (h *InternalHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req RecordUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json_body")
		return
	}

	if strings.TrimSpace(req.OwnerID) == "" {
		respondError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	day, err := time.Parse(usageDateFormat, req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	if req.OK < 0 || req.Suspect < 0 || req.Disposable < 0 {
		respondError(w, http.StatusBadRequest, "invalid_counts")
		return
	}

	if err := h.store.AddUsage(req.OwnerID, day, req.OK, req.Suspect, req.Disposable); err != nil {
		log.Printf("Failed to record usage for owner %s: %v", req.OwnerID, err)
		respondError(w, http.StatusInternalServerError, "failed_to_record_usage")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{
		"recorded": true,
	})
}
