package http

import (
	"log/slog"
	"net/http"

	"github.com/blackcave0/ecommerc-memonto/internal/service"
	"github.com/blackcave0/ecommerc-memonto/pkg/httputil"
	"github.com/blackcave0/ecommerc-memonto/pkg/middleware"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	service *service.ProfileService
	logger  *slog.Logger
}

// NewProfileHandler creates a new profile HTTP handler.
func NewProfileHandler(svc *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: svc, logger: logger}
}

// UpdateProfileRequest is the JSON body for saving a profile. The email
// defaults to the one in the caller's token.
type UpdateProfileRequest struct {
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	FullName    string `json:"full_name" validate:"max=200"`
	Address     string `json:"address" validate:"max=500"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,e164|numeric"`
	Pincode     string `json:"pincode" validate:"omitempty,pincode"`
}

// GetProfile handles GET /api/v1/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/v1/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	email := req.Email
	if email == "" && claims != nil {
		email = claims.Email
	}

	profile, err := h.service.Upsert(r.Context(), middleware.UserIDFromContext(r.Context()), service.UpsertProfileInput{
		Email:       email,
		FullName:    req.FullName,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		Pincode:     req.Pincode,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, profile)
}
