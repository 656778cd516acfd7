package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	"github.com/blackcave0/ecommerc-memonto/internal/repository"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

// ProfileService manages customer profiles.
type ProfileService struct {
	repo   repository.ProfileRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewProfileService creates a new profile service.
func NewProfileService(repo repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{repo: repo, logger: logger, now: time.Now}
}

// Get returns the profile of a user.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	return s.repo.Get(ctx, userID)
}

// UpsertProfileInput holds the editable profile fields.
type UpsertProfileInput struct {
	Email       string
	FullName    string
	Address     string
	PhoneNumber string
	Pincode     string
}

// Upsert creates or updates the profile of a user. The id and email are
// required; empty optional fields are stored as absent.
func (s *ProfileService) Upsert(ctx context.Context, userID string, input UpsertProfileInput) (*domain.Profile, error) {
	email := strings.TrimSpace(input.Email)
	if userID == "" || email == "" {
		return nil, apperrors.InvalidInput("user id and email are required")
	}

	now := s.now().UTC()
	profile := &domain.Profile{
		ID:          userID,
		Email:       email,
		FullName:    strings.TrimSpace(input.FullName),
		Address:     strings.TrimSpace(input.Address),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		Pincode:     strings.TrimSpace(input.Pincode),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated", slog.String("user_id", userID))
	return profile, nil
}
