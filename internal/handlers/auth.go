package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/models"
	"github.com/rbmarketing1011/restaunax-backend/internal/services"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
)

// AuthHandler exposes registration, email verification and login.
type AuthHandler struct {
	registration *services.RegistrationService
	verifier     *services.EmailVerificationService
	auth         *services.AuthService
}

func NewAuthHandler(registration *services.RegistrationService, verifier *services.EmailVerificationService, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{registration: registration, verifier: verifier, auth: auth}
}

type registerRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=120"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required"`
	AccountName string `json:"account_name" validate:"omitempty,max=120"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type sessionPayload struct {
	User    *models.User    `json:"user"`
	Account *models.Account `json:"account"`
}

type loginPayload struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	ExpiresIn int64           `json:"expires_in"`
	User      *models.User    `json:"user"`
	Account   *models.Account `json:"account"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.registration.Register(requestContext(c), services.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		AccountName: req.AccountName,
		Meta:        requestMeta(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithWarnings(c, http.StatusCreated, sessionPayload{
		User:    result.User,
		Account: result.Account,
	}, result.Warnings)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(requestContext(c), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Meta:     requestMeta(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, loginPayload{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresIn: result.ExpiresIn,
		User:      result.User,
		Account:   result.Account,
	})
}

// GET /api/auth/verify-email?token=
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	user, err := h.verifier.ConsumeToken(requestContext(c), strings.TrimSpace(c.Query("token")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// POST /api/auth/resend-verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req resendRequest
	if !bindAndValidate(c, &req) {
		return
	}

	issued, err := h.verifier.Resend(requestContext(c), req.Email, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	data := gin.H{"sent": true, "expires_at": issued.ExpiresAt}
	if issued.DispatchErr != nil {
		response.SuccessWithWarnings(c, http.StatusOK, data, []string{services.WarningVerificationNotSent})
		return
	}
	response.Success(c, http.StatusOK, data)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, _ := sessionIDs(c)

	user, account, err := h.auth.CurrentUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, sessionPayload{User: user, Account: account})
}
