package transport

import (
	"net/http"

	"catalog-api/internal/apperror"
	"catalog-api/internal/middleware"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userService service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth routes. limiter guards the credential
// endpoints and may be nil.
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMiddleware, limiter func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter)
			}
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.With(authMiddleware).Get("/me", h.Me)
	})
}

// Register godoc
// @Summary Register a new account
// @Description Creates a user and signs them in immediately.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Account details"
// @Success 201 {object} service.AuthResult
// @Failure 400 {object} middleware.ErrorResponse "Malformed body"
// @Failure 409 {object} middleware.ErrorResponse "Email already registered"
// @Failure 422 {object} middleware.ErrorResponse "Validation failed"
// @Failure 429 {object} middleware.ErrorResponse "Rate limit exceeded"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.userService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	h.logger.Info("User registered", zap.String("user_id", result.User.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, result)
}

// Login godoc
// @Summary Sign in
// @Description Exchanges email and password for an access token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} service.AuthResult
// @Failure 400 {object} middleware.ErrorResponse "Malformed body"
// @Failure 401 {object} middleware.ErrorResponse "Invalid email or password"
// @Failure 422 {object} middleware.ErrorResponse "Validation failed"
// @Failure 429 {object} middleware.ErrorResponse "Rate limit exceeded"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// Me godoc
// @Summary Current user
// @Description Returns the profile of the authenticated caller.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.User
// @Failure 401 {object} middleware.ErrorResponse "Missing or invalid token"
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.RespondWithAppError(w, r, apperror.NewUnauthenticated("invalid or expired token"), h.logger)
		return
	}

	user, err := h.userService.Me(r.Context(), identity)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}
