package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/services"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
)

// ProfileHandler lets the signed-in user manage their own profile.
type ProfileHandler struct {
	users *services.UserService
}

func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

type updateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,notblank,max=120"`
	Email *string `json:"email" validate:"omitempty,email,max=254"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, _ := sessionIDs(c)

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// PATCH /api/profile
func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID, _ := sessionIDs(c)
	result, err := h.users.UpdateProfile(requestContext(c), userID, services.UpdateProfileInput{
		Name:  req.Name,
		Email: req.Email,
		Meta:  requestMeta(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithWarnings(c, http.StatusOK, result.User, result.Warnings)
}

// POST /api/profile/password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID, _ := sessionIDs(c)
	if err := h.users.ChangePassword(requestContext(c), userID, services.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		Meta:            requestMeta(c),
	}); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}
