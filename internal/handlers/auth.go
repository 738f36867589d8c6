package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pulso-backend/internal/auth"
	"pulso-backend/internal/mailer"
	"pulso-backend/internal/middleware"
	"pulso-backend/internal/models"
	"pulso-backend/internal/repository"

	"go.uber.org/zap"
)

const (
	resetTokenTTL    = time.Hour
	mailSendTimeout  = 15 * time.Second
	forgotPasswordOK = "if that email is registered, a reset link is on its way"
)

type AuthHandler struct {
	users        repository.UserStore
	resets       repository.ResetTokenStore
	issuer       *auth.Issuer
	mailer       mailer.Sender
	log          *zap.SugaredLogger
	baseURL      string
	secureCookie bool
	now          func() time.Time
}

type AuthOptions struct {
	BaseURL      string
	SecureCookie bool
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewAuthHandler(users repository.UserStore, resets repository.ResetTokenStore, issuer *auth.Issuer,
	sender mailer.Sender, log *zap.SugaredLogger, opts AuthOptions) *AuthHandler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthHandler{
		users:        users,
		resets:       resets,
		issuer:       issuer,
		mailer:       sender,
		log:          log,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		secureCookie: opts.SecureCookie,
		now:          now,
	}
}

// --- Request / Response types ---

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// --- POST /api/auth/register ---

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	email, err := auth.NormalizeEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.users.FindByEmail(r.Context(), email)
	if err != nil {
		internalError(w, r, h.log, "finding user by email", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(w, r, h.log, "hashing password", err)
		return
	}

	user := &models.User{Email: email, PasswordHash: hash}
	if err := h.users.Create(r.Context(), user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		internalError(w, r, h.log, "creating user", err)
		return
	}

	h.respondWithSession(w, r, http.StatusCreated, user)
}

// --- POST /api/auth/login ---

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	email, err := auth.NormalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.FindByEmail(r.Context(), email)
	if err != nil {
		internalError(w, r, h.log, "finding user by email", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.respondWithSession(w, r, http.StatusOK, user)
}

// --- POST /api/auth/logout ---

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// --- GET /api/auth/me ---

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		internalError(w, r, h.log, "finding user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// --- POST /api/auth/forgot-password ---

// ForgotPassword answers 200 with the same body whether or not the email
// exists, so it can't be used to probe for accounts.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	email, err := auth.NormalizeEmail(req.Email)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": forgotPasswordOK})
		return
	}

	user, err := h.users.FindByEmail(r.Context(), email)
	if err != nil {
		internalError(w, r, h.log, "finding user by email", err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": forgotPasswordOK})
		return
	}

	now := h.now()
	if err := h.resets.InvalidateForUser(r.Context(), user.ID, now); err != nil {
		internalError(w, r, h.log, "invalidating reset tokens", err)
		return
	}

	token, hash := auth.NewResetToken()
	resetToken := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(resetTokenTTL),
	}
	if err := h.resets.Create(r.Context(), resetToken); err != nil {
		internalError(w, r, h.log, "creating reset token", err)
		return
	}

	link := h.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	msg := mailer.PasswordReset(user.Email, link)

	// Delivery is best-effort and off the request path: the response must
	// not depend on the mail provider.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()
		if err := h.mailer.Send(ctx, msg); err != nil {
			h.log.Errorw("sending reset email", "error", err, "user_id", user.ID.Hex())
		}
	}()

	writeJSON(w, http.StatusOK, map[string]string{"message": forgotPasswordOK})
}

// --- POST /api/auth/reset-password ---

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resetToken, err := h.resets.Consume(r.Context(), auth.HashResetToken(token), h.now())
	if err != nil {
		internalError(w, r, h.log, "consuming reset token", err)
		return
	}
	if resetToken == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}

	user, err := h.users.FindByID(r.Context(), resetToken.UserID)
	if err != nil {
		internalError(w, r, h.log, "finding user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired token")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(w, r, h.log, "hashing password", err)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		internalError(w, r, h.log, "updating password", err)
		return
	}
	user.PasswordHash = hash

	h.respondWithSession(w, r, http.StatusOK, user)
}

// --- Helpers ---

func (h *AuthHandler) respondWithSession(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := h.issuer.Issue(user.ID.Hex(), user.Email)
	if err != nil {
		internalError(w, r, h.log, "signing JWT", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.issuer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, AuthResponse{Token: token, User: user})
}
