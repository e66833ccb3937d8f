package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func echoRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.POST("/", mw, func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})
	return router
}

func TestRequireAPIKey(t *testing.T) {
	router := echoRouter(RequireAPIKey("demo-key"))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"matching key", "demo-key", http.StatusOK},
		{"wrong key", "other", http.StatusUnauthorized},
		{"missing key", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
			if tc.header != "" {
				req.Header.Set("x-api-key", tc.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "Unauthorized")
			}
		})
	}
}

func TestVerifyWhatsAppSignature(t *testing.T) {
	body := `{"object":"whatsapp_business_account"}`

	t.Run("valid signature passes the body through", func(t *testing.T) {
		router := echoRouter(VerifyWhatsAppSignature("app-secret"))
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", "sha256="+CalculateHMAC([]byte(body), "app-secret"))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, w.Body.String())
	})

	t.Run("signature for another secret is rejected", func(t *testing.T) {
		router := echoRouter(VerifyWhatsAppSignature("app-secret"))
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", "sha256="+CalculateHMAC([]byte(body), "wrong"))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		router := echoRouter(VerifyWhatsAppSignature("app-secret"))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty secret disables the check", func(t *testing.T) {
		router := echoRouter(VerifyWhatsAppSignature(""))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
