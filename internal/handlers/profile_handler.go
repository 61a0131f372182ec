package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"yagptchat/internal/auth"
	"yagptchat/internal/models"
	"yagptchat/internal/services"
	"yagptchat/pkg/httputil"

	"github.com/google/uuid"
)

// ProfileService defines the interface expected from the profile service.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.ProfileResponse, error)
	UpdateAPIKey(ctx context.Context, userID uuid.UUID, apiKey string) (*models.ProfileResponse, error)
}

type ProfileHandler struct {
	profileService ProfileService
}

func NewProfileHandler(profileSvc ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileSvc,
	}
}

// HandleGetProfile handles GET /v1/profile
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	resp, err := h.profileService.Get(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR [ProfileHandler] HandleGetProfile for UserID %s: %v", userID, err)
		if errors.Is(err, services.ErrProfileNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to get profile")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleUpdateProfile handles PUT /v1/profile
func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.YandexAPIKey == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Missing required field: yandex_api_key")
		return
	}

	resp, err := h.profileService.UpdateAPIKey(r.Context(), userID, req.YandexAPIKey)
	if err != nil {
		log.Printf("ERROR [ProfileHandler] HandleUpdateProfile for UserID %s: %v", userID, err)
		if errors.Is(err, services.ErrProfileNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
