package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blackcave0/ecommerc-memonto/internal/domain"
	apperrors "github.com/blackcave0/ecommerc-memonto/pkg/errors"
)

func TestGetProfile(t *testing.T) {
	s := newTestServer(t)
	s.profiles.On("Get", mock.Anything, "user-1").Return(&domain.Profile{ID: "user-1", Email: "ada@example.com", FullName: "Ada"}, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/profile", nil, withToken(customerToken))

	require.Equal(t, http.StatusOK, rec.Code)
	var profile domain.Profile
	decodeData(t, rec, &profile)
	assert.Equal(t, "Ada", profile.FullName)
}

func TestGetProfile_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.profiles.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("profile", "user-1"))

	rec := s.do(t, http.MethodGet, "/api/v1/profile", nil, withToken(customerToken))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProfile_EmailDefaultsToToken(t *testing.T) {
	s := newTestServer(t)
	s.profiles.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.Profile) bool {
		return p.ID == "user-1" && p.Email == "ada@example.com" && p.FullName == "Ada Lovelace"
	})).Return(nil)

	rec := s.do(t, http.MethodPut, "/api/v1/profile", UpdateProfileRequest{
		FullName: "  Ada Lovelace ",
		Pincode:  "411001",
	}, withToken(customerToken))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile domain.Profile
	decodeData(t, rec, &profile)
	assert.Equal(t, "ada@example.com", profile.Email)
	s.profiles.AssertExpectations(t)
}

func TestUpdateProfile_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/profile", UpdateProfileRequest{Email: "nope"}, withToken(customerToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Fields, "email")
}

func TestUpdateProfile_RepositoryFailure(t *testing.T) {
	s := newTestServer(t)
	s.profiles.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	rec := s.do(t, http.MethodPut, "/api/v1/profile", UpdateProfileRequest{FullName: "Ada"}, withToken(customerToken))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", errResp.Code)
	assert.NotContains(t, errResp.Message, "connection reset")
}
