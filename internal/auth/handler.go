package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/queue"
	"github.com/resource-mgmt/console/pkg/response"
	"github.com/resource-mgmt/console/pkg/utils"
)

// UserStore is the account persistence the handler needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, email, passwordHash string, role models.UserRole) (*models.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// SessionStore tracks revoked tokens and password reset tokens.
type SessionStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	IssueReset(ctx context.Context, email string, ttl time.Duration) (string, error)
	ConsumeReset(ctx context.Context, token string) (string, error)
}

// ResetMailer queues password reset emails.
type ResetMailer interface {
	EnqueuePasswordResetEmail(ctx context.Context, payload queue.PasswordResetEmailPayload) error
}

// EmployeeFinder resolves the employee record linked to a login email.
type EmployeeFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ResetRequest is the body for POST /auth/password-reset.
type ResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetConfirmRequest is the body for POST /auth/password-reset/confirm.
type ResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// MeResponse is the body of GET /auth/me.
type MeResponse struct {
	User     models.UserPublic `json:"user"`
	Employee *models.Employee  `json:"employee"`
}

// Options carries handler settings from config.
type Options struct {
	ResetTTL   time.Duration
	AppBaseURL string
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users     UserStore
	jwt       *JWTService
	sessions  SessionStore
	mailer    ResetMailer
	employees EmployeeFinder
	opts      Options
	logger    *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users UserStore, jwt *JWTService, sessions SessionStore, mailer ResetMailer, employees EmployeeFinder, opts Options, logger *zap.Logger) *Handler {
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = 30 * time.Minute
	}
	return &Handler{users: users, jwt: jwt, sessions: sessions, mailer: mailer, employees: employees, opts: opts, logger: logger}
}

// Signup handles POST /auth/signup. The first account becomes admin; later ones are employees.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := h.users.GetByEmail(ctx, email)
	if err == nil {
		response.Conflict(c, "email already registered")
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		h.logger.Error("signup lookup failed", zap.Error(err))
		response.Internal(c, err.Error())
		return
	}

	n, err := h.users.Count(ctx)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	role := models.UserRoleEmployee
	if n == 0 {
		role = models.UserRoleAdmin
	}

	if err := utils.ValidatePassword(req.Password); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.users.Create(ctx, email, hash, role)
	if err != nil {
		h.logger.Error("create account failed", zap.Error(err))
		response.Internal(c, err.Error())
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("account created", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Logout handles POST /auth/logout. The presented token stays revoked until it would expire.
func (h *Handler) Logout(c *gin.Context) {
	jti := c.GetString(ContextTokenID)
	expiry, _ := c.Get(ContextTokenExpiry)
	until, _ := expiry.(time.Time)
	if jti == "" {
		response.Unauthorized(c, "missing token")
		return
	}
	if err := h.sessions.Revoke(c.Request.Context(), jti, until); err != nil {
		h.logger.Error("revoke token failed", zap.Error(err))
		response.Internal(c, err.Error())
		return
	}
	response.NoContent(c)
}

// RequestPasswordReset handles POST /auth/password-reset. It answers the same way whether or
// not the email has an account.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	accepted := gin.H{"message": "If the email is registered, a reset link has been sent"}

	user, err := h.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			h.logger.Error("password reset lookup failed", zap.Error(err))
		}
		response.Accepted(c, accepted)
		return
	}

	token, err := h.sessions.IssueReset(ctx, user.Email, h.opts.ResetTTL)
	if err != nil {
		h.logger.Error("issue reset token failed", zap.Error(err))
		response.Internal(c, err.Error())
		return
	}
	payload := queue.PasswordResetEmailPayload{
		RecipientEmail: user.Email,
		ResetURL:       h.opts.AppBaseURL + "/reset-password?token=" + url.QueryEscape(token),
		ExpiresAt:      time.Now().Add(h.opts.ResetTTL).UTC(),
	}
	if err := h.mailer.EnqueuePasswordResetEmail(ctx, payload); err != nil {
		h.logger.Error("enqueue reset email failed", zap.Error(err))
		response.Internal(c, err.Error())
		return
	}
	response.Accepted(c, accepted)
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm.
func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req ResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	email, err := h.sessions.ConsumeReset(ctx, req.Token)
	if err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Internal(c, err.Error())
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.users.UpdatePassword(ctx, email, hash); err != nil {
		h.logger.Error("update password failed", zap.Error(err))
		response.Internal(c, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "Password updated"})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	userID, _ := c.Get(ContextUserID)
	id, _ := userID.(uuid.UUID)
	ctx := c.Request.Context()

	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "account not found")
			return
		}
		response.Internal(c, err.Error())
		return
	}
	out := MeResponse{User: user.ToPublic()}
	if h.employees != nil {
		emp, err := h.employees.FindByEmail(ctx, user.Email)
		switch {
		case err == nil:
			out.Employee = emp
		case !errors.Is(err, pgx.ErrNoRows):
			h.logger.Warn("employee lookup failed", zap.Error(err))
		}
	}
	response.OK(c, out)
}

// ValidateForSocket checks a token for the WebSocket endpoint, including revocation.
func (h *Handler) ValidateForSocket(ctx context.Context, token string) (string, error) {
	claims, err := h.jwt.Validate(token)
	if err != nil {
		return "", err
	}
	if revoked, err := h.sessions.IsRevoked(ctx, claims.ID); err != nil || revoked {
		return "", ErrRevokedToken
	}
	return claims.UserID.String(), nil
}
