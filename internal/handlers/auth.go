package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/x0ba/habithing/internal/database"
	"github.com/x0ba/habithing/internal/queue"
	"github.com/x0ba/habithing/internal/request"
	"github.com/x0ba/habithing/internal/services/oidc"
	"github.com/x0ba/habithing/internal/validation"
)

// AuthHandler handles authentication and account settings requests
type AuthHandler struct {
	oidcProvider *oidc.Provider
	providerName string
	userRepo     database.UserRepositoryInterface
	jobQueue     queue.JobQueue
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(oidcProvider *oidc.Provider, providerName string, userRepo database.UserRepositoryInterface, jobQueue queue.JobQueue, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		oidcProvider: oidcProvider,
		providerName: providerName,
		userRepo:     userRepo,
		jobQueue:     jobQueue,
		logger:       logger,
	}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/me/settings", h.UpdateSettings).Methods("PATCH")
}

// GetOIDCLogin returns OIDC configuration for frontend
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	loginConfig, err := h.oidcProvider.GetLoginConfig(r.Context(), h.providerName)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Failed to get OIDC configuration", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateSettingsRequest represents a settings update request
type UpdateSettingsRequest struct {
	TimeZone     *string `json:"time_zone,omitempty"`
	GraceMinutes *int    `json:"grace_minutes,omitempty"`
}

// UpdateSettings changes the user's time zone or grace period. Both shift
// the user's day boundary, so all of their streaks are recomputed.
func (h *AuthHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	timeZone := user.TimeZone
	graceMinutes := user.GraceMinutes

	if req.TimeZone != nil {
		if err := validation.ValidateTimeZone(*req.TimeZone); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		timeZone = *req.TimeZone
	}
	if req.GraceMinutes != nil {
		if err := validation.ValidateGraceMinutes(*req.GraceMinutes); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		graceMinutes = *req.GraceMinutes
	}

	ctx := r.Context()
	if err := h.userRepo.UpdateSettings(ctx, user.ID, timeZone, graceMinutes); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update settings")
		return
	}

	user.TimeZone = timeZone
	user.GraceMinutes = graceMinutes

	job := queue.NewJob(queue.JobTypeUserRefresh, user.ID, nil)
	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		h.logger.Warn("user_refresh_enqueue_failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}

	respondJSON(w, http.StatusOK, user)
}
