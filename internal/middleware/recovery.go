package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
	"github.com/rbmarketing1011/restaunax-backend/pkg/logger"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
)

var errMethodNotAllowed = apperrors.New("METHOD_NOT_ALLOWED", "Method not allowed", http.StatusMethodNotAllowed)

// Recovery turns a handler panic into a 500 envelope and logs the stack. http.ErrAbortHandler
// is re-raised so net/http can drop the connection as intended.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger.WithModule("http").Error("handler panic",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(CtxRequestIDKey)),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			if !c.Writer.Written() {
				response.Error(c, apperrors.ErrInternalServer)
			}
			c.Abort()
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with a NOT_FOUND envelope.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, apperrors.ErrNotFound.WithMessage(fmt.Sprintf("route %s not found", c.Request.URL.Path)))
}

// MethodNotAllowedHandler answers known routes called with the wrong verb.
func MethodNotAllowedHandler(c *gin.Context) {
	response.Error(c, errMethodNotAllowed.WithMessage(fmt.Sprintf("method %s not allowed on %s", c.Request.Method, c.Request.URL.Path)))
}
