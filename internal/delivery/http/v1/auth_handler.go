package v1

import (
	"errors"
	"net/http"
	"strings"

	"respirapt-backend/config"
	"respirapt-backend/internal/delivery/http/response"
	"respirapt-backend/internal/domain"
	"respirapt-backend/internal/supabase"
	"respirapt-backend/pkg/apperror"
	"respirapt-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUC domain.AuthUsecase
	sb     *supabase.Client
	config *config.Config
}

func NewAuthHandler(public *gin.RouterGroup, protected *gin.RouterGroup, authUC domain.AuthUsecase, sb *supabase.Client, cfg *config.Config) {
	handler := &AuthHandler{
		authUC: authUC,
		sb:     sb,
		config: cfg,
	}

	// Public Routes
	publicAuth := public.Group("/auth")
	{
		publicAuth.POST("/login", handler.Login)
		publicAuth.POST("/register", handler.Register)
	}

	// Protected Routes
	protectedAuth := protected.Group("/auth")
	{
		protectedAuth.POST("/logout", handler.Logout)
		protectedAuth.POST("/sync", handler.SyncProfile)
		protectedAuth.GET("/me", handler.Me)
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required,min=1"`
}

// Register godoc
// @Summary      User Registration
// @Description  Register a new user with email, password and display name.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        register  body      RegisterRequest  true  "Registration Details"
// @Success      201    {object}  response.Response
// @Failure      400    {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	sess, err := h.sb.SignUpWithEmail(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) {
			c.Error(apperror.BadRequest(apiErr.Message))
			return
		}
		c.Error(apperror.New(http.StatusInternalServerError, "Registration service unavailable", err))
		return
	}

	msg := "Registration successful. Please check your email to confirm."
	var data interface{} = nil

	if sess.AccessToken != "" {
		// Auto-confirm is enabled: the credential is live, so make sure the
		// profile row exists even if the signup trigger lags behind.
		name := req.Name
		user, err := h.authUC.EnsureProfileExists(c.Request.Context(), &domain.User{
			ID:    sess.User.ID,
			Email: req.Email,
			Name:  &name,
		})
		if err != nil {
			c.Error(err)
			return
		}
		msg = "Registration successful"
		data = gin.H{
			"token":         sess.AccessToken,
			"refresh_token": sess.RefreshToken,
			"user":          user,
		}
	}

	response.Success(c, http.StatusCreated, msg, data)
}

// Login godoc
// @Summary      User Login
// @Description  Login with email and password via Supabase
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        login  body      LoginRequest  true  "Login Credentials"
// @Success      200    {object}  response.Response
// @Failure      400    {object}  response.Response
// @Failure      401    {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	sess, err := h.sb.SignInWithEmail(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) {
			// Keep credential failures generic, but surface confirmation
			// problems since the user can act on those.
			msg := "Wrong password or account not found"
			if apiErr.Message == "Email not confirmed" {
				msg = apiErr.Message
			}
			c.Error(apperror.Unauthorized(msg))
			return
		}
		c.Error(apperror.New(http.StatusInternalServerError, "Login service unavailable", err))
		return
	}

	user, err := h.authUC.EnsureProfileExists(c.Request.Context(), &domain.User{
		ID:    sess.User.ID,
		Email: sess.User.Email,
	})
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Login successful", gin.H{
		"token":         sess.AccessToken,
		"refresh_token": sess.RefreshToken,
		"user":          user,
	})
}

// Logout revokes the access token on the auth provider. The client drops
// its local copy regardless of the outcome here.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if err := h.sb.Logout(c.Request.Context(), token); err != nil {
		logger.Log.Warn("provider logout failed", "error", err)
	}
	response.Success(c, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) SyncProfile(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))
	email := c.GetString(string(domain.KeyUserEmail))

	user, err := h.authUC.EnsureProfileExists(c.Request.Context(), &domain.User{
		ID:    userID,
		Email: email,
	})
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Profile synced", user)
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))
	user, err := h.authUC.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.Error(apperror.NotFound("Profile not found. Call /auth/sync first."))
			return
		}
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "User details", user)
}
