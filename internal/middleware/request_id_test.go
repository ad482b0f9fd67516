package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString(CtxRequestIDKey)
		c.Status(http.StatusNoContent)
	})

	cases := map[string]struct {
		inbound string
		reuse   bool
	}{
		"generated when absent": {"", false},
		"propagated":            {"edge-7f3a9c", true},
		"rejects spaces":        {"two words", false},
		"rejects oversized":     {strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.inbound != "" {
				req.Header.Set(HeaderRequestID, tc.inbound)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(HeaderRequestID)
			require.Equal(t, seen, got)
			if tc.reuse {
				require.Equal(t, tc.inbound, got)
				return
			}
			_, err := uuid.Parse(got)
			require.NoError(t, err)
		})
	}
}
