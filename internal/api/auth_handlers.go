package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/09samuel/codekeeper-api-backend/internal/auth"
	"github.com/09samuel/codekeeper-api-backend/internal/database"
	"github.com/09samuel/codekeeper-api-backend/internal/models"
	"github.com/google/uuid"
)

const (
	refreshTokenTTL      = 7 * 24 * time.Hour
	verifyTokenTTL       = 24 * time.Hour
	resetTokenTTL        = 1 * time.Hour
	errInvalidRefreshMsg = "invalid or expired refresh token"
)

type RegisterRequest struct {
	Name     string `json:"name" example:"Alice"`
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"password123"`
}

// @Summary      Register a new account
// @Description  Creates a user and sends a verification email. The account cannot log in until the email is verified.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        registerRequest   body      RegisterRequest  true  "Registration data"
// @Success      201               {object}  models.User
// @Failure      400               {string}  string "Invalid request body"
// @Failure      409               {string}  string "Email already registered"
// @Failure      500               {string}  string "Internal Server Error"
// @Router       /auth/register [post]
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		http.Error(w, "Name, email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	verifyToken, err := auth.GenerateToken()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var user *models.User

	// The mail send happens inside the transaction so a failed delivery
	// rolls the account back and the user can retry registration.
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		user, err = q.CreateUser(r.Context(), database.CreateUserParams{
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: passwordHash,
		})
		if err != nil {
			return err
		}

		_, err = q.CreateAccountToken(r.Context(), database.CreateAccountTokenParams{
			UserID:    user.ID,
			Purpose:   models.TokenPurposeVerifyEmail,
			TokenHash: auth.HashToken(verifyToken),
			ExpiresAt: time.Now().Add(verifyTokenTTL),
		})
		if err != nil {
			return err
		}

		verifyLink := fmt.Sprintf("%s/verify-email?token=%s", s.config.ClientURL, verifyToken)
		return s.mailer.SendVerificationEmail(r.Context(), user.Name, user.Email, verifyLink)
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrDuplicateEmail) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		log.Printf("ERROR: Registration failed for %s: %v", req.Email, txErr)
		http.Error(w, "Failed to register. Please try again later.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// @Summary      Verify email address
// @Description  Redeems the token from the verification email and activates the account.
// @Tags         auth
// @Param        token  query     string  true  "Verification token"
// @Success      200    {string}  string "Email verified successfully"
// @Failure      400    {string}  string "Invalid or expired token"
// @Router       /auth/verify-email [get]
func (s *Server) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token is required", http.StatusBadRequest)
		return
	}

	record, err := s.store.ConsumeAccountToken(r.Context(), models.TokenPurposeVerifyEmail, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, database.ErrInvalidToken) {
			http.Error(w, "Invalid or expired token", http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := s.store.MarkUserVerified(r.Context(), record.UserID); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Write([]byte("Email verified successfully!"))
}

type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"password123"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...."`
	RefreshToken string `json:"refresh_token" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
}

// @Summary      Logs a user in
// @Description  Authenticates a verified user and returns a short-lived access token and a long-lived refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest   body      LoginRequest  true  "Login Credentials"
// @Success      200            {object}  TokenResponse
// @Failure      400            {string}  string "Invalid request body"
// @Failure      401            {string}  string "Invalid email or password"
// @Failure      403            {string}  string "Email not verified"
// @Failure      500            {string}  string "Internal Server Error"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if !user.IsVerified {
		http.Error(w, "Email not verified", http.StatusForbidden)
		return
	}

	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret)
	if err != nil {
		http.Error(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := auth.GenerateToken()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	sessionParams := database.CreateSessionParams{
		ID:               uuid.New(),
		UserID:           user.ID,
		RefreshTokenHash: auth.HashToken(refreshToken),
		UserAgent:        r.UserAgent(),
		ClientIP:         r.RemoteAddr,
		ExpiresAt:        time.Now().Add(refreshTokenTTL),
	}

	if _, err := s.store.CreateSession(r.Context(), sessionParams); err != nil {
		log.Printf("ERROR: Failed to create session for user %d: %v", user.ID, err)
		http.Error(w, "Failed to process login session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
}

// @Summary      Refresh access token
// @Description  Exchanges a valid refresh token for a new access token and a rotated refresh token. The presented token is invalidated.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        refreshTokenRequest   body      RefreshTokenRequest  true  "Refresh Token"
// @Success      200                   {object}  TokenResponse
// @Failure      400                   {string}  string "Invalid request body or missing token"
// @Failure      401                   {string}  string "Invalid or expired refresh token"
// @Failure      500                   {string}  string "Internal Server Error"
// @Router       /auth/refresh [post]
func (s *Server) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RefreshToken == "" {
		http.Error(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	var newAccessToken, newRefreshToken string

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		session, err := q.GetSessionByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
		if err != nil {
			return err
		}
		if session == nil || session.ExpiresAt.Before(time.Now()) {
			return errors.New(errInvalidRefreshMsg)
		}

		user, err := q.GetUserByID(r.Context(), session.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return errors.New(errInvalidRefreshMsg)
		}

		newAccessToken, err = auth.GenerateJWT(user, s.config.JWT.Secret)
		if err != nil {
			return err
		}

		newRefreshToken, err = auth.GenerateToken()
		if err != nil {
			return err
		}

		return q.RotateSessionToken(r.Context(), session.ID, auth.HashToken(newRefreshToken), time.Now().Add(refreshTokenTTL))
	})

	if txErr != nil {
		if txErr.Error() == errInvalidRefreshMsg {
			http.Error(w, txErr.Error(), http.StatusUnauthorized)
		} else {
			log.Printf("ERROR: Refresh token transaction failed: %v", txErr)
			http.Error(w, "Failed to refresh token", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenResponse{
		AccessToken:  newAccessToken,
		RefreshToken: newRefreshToken,
	})
}

// @Summary      Log out
// @Description  Deletes the session belonging to the presented refresh token. Logout is idempotent.
// @Tags         auth
// @Accept       json
// @Success      204  {null}    nil "No Content"
// @Failure      400  {string}  string "Invalid request body"
// @Router       /auth/logout [post]
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := s.store.GetSessionByTokenHash(r.Context(), auth.HashToken(req.RefreshToken))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if session != nil {
		if err := s.store.DeleteSession(r.Context(), session.ID); err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" example:"alice@example.com"`
}

// @Summary      Request a password reset
// @Description  Sends a reset link if the email belongs to an account. The response is the same either way.
// @Tags         auth
// @Accept       json
// @Success      200  {string}  string "If the email exists, a reset link was sent"
// @Failure      400  {string}  string "Invalid request body"
// @Router       /auth/forgot-password [post]
func (s *Server) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Unknown emails get the same response so the endpoint cannot be
	// used to probe which addresses are registered.
	if user != nil {
		resetToken, err := auth.GenerateToken()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		_, err = s.store.CreateAccountToken(r.Context(), database.CreateAccountTokenParams{
			UserID:    user.ID,
			Purpose:   models.TokenPurposeResetPassword,
			TokenHash: auth.HashToken(resetToken),
			ExpiresAt: time.Now().Add(resetTokenTTL),
		})
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.config.ClientURL, resetToken)
		if err := s.mailer.SendPasswordResetEmail(r.Context(), user.Name, user.Email, resetLink); err != nil {
			log.Printf("ERROR: Failed to send reset email to %s: %v", user.Email, err)
			http.Error(w, "Failed to send reset email", http.StatusInternalServerError)
			return
		}
	}

	w.Write([]byte("If the email exists, a reset link was sent"))
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// @Summary      Reset password
// @Description  Redeems a reset token and sets a new password. The token is single use.
// @Tags         auth
// @Accept       json
// @Success      200  {string}  string "Password reset successfully"
// @Failure      400  {string}  string "Invalid or expired token"
// @Router       /auth/reset-password [post]
func (s *Server) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Token == "" || len(req.NewPassword) < 8 {
		http.Error(w, "Token and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		record, err := q.ConsumeAccountToken(r.Context(), models.TokenPurposeResetPassword, auth.HashToken(req.Token))
		if err != nil {
			return err
		}
		if err := q.UpdateUserPassword(r.Context(), record.UserID, passwordHash); err != nil {
			return err
		}

		// A stolen refresh token must not survive the password change.
		_, err = q.DeleteUserSessions(r.Context(), record.UserID)
		return err
	})

	if txErr != nil {
		if errors.Is(txErr, database.ErrInvalidToken) {
			http.Error(w, "Invalid or expired token", http.StatusBadRequest)
			return
		}
		log.Printf("ERROR: Password reset failed: %v", txErr)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Write([]byte("Password reset successfully"))
}
