package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	appErrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
	appValidator "github.com/rbmarketing1011/restaunax-backend/pkg/validator"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// bindAndValidate decodes the JSON body into dest and checks its validate tags. It writes the
// BAD_REQUEST response itself and reports whether the handler may continue.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	err := appValidator.Struct(dest)
	if err == nil {
		return true
	}
	message := "invalid request payload"
	var fieldErrs appValidator.Errors
	if errors.As(err, &fieldErrs) {
		message = fieldErrs.Error()
	}
	response.Error(c, appErrors.NewBadRequest(message))
	return false
}

type pageQuery struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

// pageParams reads page and per_page. Malformed values are ignored and per_page is capped.
func pageParams(c *gin.Context) (page, perPage int) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		q = pageQuery{}
	}
	page, perPage = max(q.Page, 1), q.PerPage
	switch {
	case perPage <= 0:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}
	return page, perPage
}
