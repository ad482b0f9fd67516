package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rbmarketing1011/restaunax-backend/internal/services"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
)

// AccountHandler manages the restaurant account bound to the session.
type AccountHandler struct {
	accounts *services.AccountService
	audit    *services.AuditService
}

func NewAccountHandler(accounts *services.AccountService, audit *services.AuditService) *AccountHandler {
	return &AccountHandler{accounts: accounts, audit: audit}
}

type updateAccountRequest struct {
	Name     *string        `json:"name" validate:"omitempty,notblank,max=120"`
	Settings map[string]any `json:"settings"`
}

// GET /api/account
func (h *AccountHandler) Get(c *gin.Context) {
	_, accountID := sessionIDs(c)

	account, err := h.accounts.Get(requestContext(c), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, account)
}

// PATCH /api/account
func (h *AccountHandler) Update(c *gin.Context) {
	var req updateAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID, accountID := sessionIDs(c)
	account, err := h.accounts.Update(requestContext(c), userID, accountID, services.UpdateAccountInput{
		Name:     req.Name,
		Settings: req.Settings,
		Meta:     requestMeta(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, account)
}

// DELETE /api/account
func (h *AccountHandler) Delete(c *gin.Context) {
	userID, accountID := sessionIDs(c)

	if err := h.accounts.Delete(requestContext(c), userID, accountID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/account/audit-logs
func (h *AccountHandler) AuditLogs(c *gin.Context) {
	_, accountID := sessionIDs(c)

	page, perPage := pageParams(c)
	opts := services.AuditListOptions{
		Page:     page,
		PageSize: perPage,
		Filters: services.AuditFilters{
			AccountID: accountID,
			Action:    strings.TrimSpace(c.Query("action")),
			Result:    strings.TrimSpace(c.Query("result")),
		},
	}

	logs, total, err := h.audit.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page, perPage, total))
}
