package server

import (
	"errors"
	"net/http"

	"sonata/internal/auth"
	"sonata/internal/database"
	"sonata/pkg/models"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// handleRegister creates a new account and returns a signed token. The first
// registered account becomes the admin.
func (ms *MusicServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !ms.config.Auth.AllowRegistration {
		ms.respondWithError(w, r, http.StatusForbidden, "Registration is disabled", nil)
		return
	}

	var req registerRequest
	if err := decodeJSONBody(r, &req); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if errs := ms.validateStruct(req); errs != nil {
		ms.respondWithValidationErrors(w, r, errs)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error creating account", err)
		return
	}

	role := models.RoleUser
	if count, err := ms.db.CountUsers(); err == nil && count == 0 {
		role = models.RoleAdmin
	}

	user, err := ms.db.CreateUser(req.Name, req.Email, hash, role)
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			ms.respondWithError(w, r, http.StatusBadRequest, "Email already registered", nil)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error creating account", err)
		return
	}

	ms.respondWithToken(w, r, user)
}

// handleLogin authenticates credentials and returns a signed token.
func (ms *MusicServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if errs := ms.validateStruct(req); errs != nil {
		ms.respondWithValidationErrors(w, r, errs)
		return
	}

	user, err := ms.db.GetUserByEmail(req.Email)
	if err != nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		// Same response for unknown email and bad password
		ms.respondWithError(w, r, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}

	ms.respondWithToken(w, r, user)
}

// respondWithToken issues a token for the user and writes the auth response.
func (ms *MusicServer) respondWithToken(w http.ResponseWriter, r *http.Request, user models.User) {
	token, err := ms.tokens.IssueToken(user)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error issuing token", err)
		return
	}

	ms.respondJSON(w, models.AuthResponse{Token: token, User: user})
}
