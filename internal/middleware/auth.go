package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/rbmarketing1011/restaunax-backend/internal/auth"
	apperrors "github.com/rbmarketing1011/restaunax-backend/pkg/errors"
	"github.com/rbmarketing1011/restaunax-backend/pkg/response"
)

// Context keys populated by Auth.
const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxAccountIDKey = "accountID"
	CtxEmailKey     = "userEmail"
)

const bearerRealm = `Bearer realm="restaunax"`

var errSessionExpired = apperrors.ErrUnauthorized.WithMessage("Session expired, please sign in again")

// Auth requires a valid bearer session token and exposes its claims on the context.
// Challenges follow RFC 6750: a bare realm when no token was sent, error="invalid_token" otherwise.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, bearerRealm, apperrors.ErrUnauthorized)
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			appErr := apperrors.ErrUnauthorized
			if errors.Is(err, iauth.ErrTokenExpired) {
				appErr = errSessionExpired
			}
			reject(c, bearerRealm+`, error="invalid_token"`, appErr)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxAccountIDKey, claims.AccountID)
		c.Set(CtxEmailKey, claims.Email)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func reject(c *gin.Context, challenge string, err *apperrors.AppError) {
	c.Header("WWW-Authenticate", challenge)
	response.Error(c, err)
	c.Abort()
}
