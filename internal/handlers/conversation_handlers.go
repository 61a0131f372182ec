package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"yagptchat/internal/auth"
	"yagptchat/internal/models"
	"yagptchat/internal/services"
	"yagptchat/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ConversationService defines the interface expected from the conversation service.
type ConversationService interface {
	Create(ctx context.Context, userID uuid.UUID, title string) (*models.ConversationResponse, error)
	Get(ctx context.Context, userID, convID uuid.UUID) (*models.ConversationResponse, error)
	List(ctx context.Context, userID uuid.UUID) (*models.ListConversationsResponse, error)
	Rename(ctx context.Context, userID, convID uuid.UUID, title string) error
	SendMessage(ctx context.Context, userID, convID uuid.UUID, content string, sentAt time.Time) (*models.ConversationResponse, error)
}

type ConversationHandler struct {
	convService ConversationService
}

func NewConversationHandler(convSvc ConversationService) *ConversationHandler {
	return &ConversationHandler{
		convService: convSvc,
	}
}

// conversationIDFromRequest extracts and validates the {conversationID}
// URL parameter.
func conversationIDFromRequest(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "conversationID"))
}

func (h *ConversationHandler) respondServiceError(w http.ResponseWriter, op string, userID uuid.UUID, err error) {
	log.Printf("ERROR [ConversationHandler] %s for UserID %s: %v", op, userID, err)
	switch {
	case errors.Is(err, services.ErrConversationNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrEmptyMessage):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrProfileNotFound):
		httputil.RespondError(w, http.StatusBadRequest, "No API key configured for this account")
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "Conversation operation failed")
	}
}

// HandleCreateConversation handles POST /v1/conversations
func (h *ConversationHandler) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	var req models.CreateConversationRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		defer r.Body.Close()
	}

	title := ""
	if req.Title != nil {
		title = *req.Title
	}

	resp, err := h.convService.Create(r.Context(), userID, title)
	if err != nil {
		h.respondServiceError(w, "HandleCreateConversation", userID, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleListConversations handles GET /v1/conversations
func (h *ConversationHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	resp, err := h.convService.List(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, "HandleListConversations", userID, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGetConversation handles GET /v1/conversations/{conversationID}
func (h *ConversationHandler) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	convID, err := conversationIDFromRequest(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID format")
		return
	}

	resp, err := h.convService.Get(r.Context(), userID, convID)
	if err != nil {
		h.respondServiceError(w, "HandleGetConversation", userID, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleRenameConversation handles PATCH /v1/conversations/{conversationID}/title
func (h *ConversationHandler) HandleRenameConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	convID, err := conversationIDFromRequest(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID format")
		return
	}

	var req models.RenameConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.Title == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Missing required field: title")
		return
	}

	if err := h.convService.Rename(r.Context(), userID, convID, req.Title); err != nil {
		h.respondServiceError(w, "HandleRenameConversation", userID, err)
		return
	}

	resp, err := h.convService.Get(r.Context(), userID, convID)
	if err != nil {
		h.respondServiceError(w, "HandleRenameConversation", userID, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleSendMessage handles POST /v1/conversations/{conversationID}/messages
func (h *ConversationHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	convID, err := conversationIDFromRequest(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID format")
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	sentAt := time.Time{}
	if req.SentAt != nil {
		sentAt = req.SentAt.UTC()
	}

	resp, err := h.convService.SendMessage(r.Context(), userID, convID, req.Content, sentAt)
	if err != nil {
		h.respondServiceError(w, "HandleSendMessage", userID, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
