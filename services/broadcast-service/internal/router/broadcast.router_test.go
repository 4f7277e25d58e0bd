package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/handler"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/middleware"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/pkg/jwtutil"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
)

type emptyLister struct{}

func (emptyLister) List(context.Context, broadcast.CustomerFilter) ([]broadcast.Customer, error) {
	return []broadcast.Customer{}, nil
}

type noopSender struct{}

func (noopSender) SendTemplate(context.Context, string, broadcast.SendTemplateRequest) (*broadcast.SendResponse, error) {
	return &broadcast.SendResponse{Status: "completed"}, nil
}

func newTestRouter() http.Handler {
	h := handler.NewBroadcastHandler(noopSender{}, emptyLister{}, broadcast.DefaultCatalog(), zap.NewNop())
	auth := middleware.NewAuthMiddleware(jwtutil.NewHMACVerifier([]byte("secret"), "", ""), zap.NewNop())
	return SetupRoutes(chi.NewRouter(), h, auth, nil, RateLimit{})
}

func bearer(t *testing.T) string {
	t.Helper()
	return bearerWithRole(t, "authenticated")
}

func bearerWithRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtutil.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "op-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestHealthIsPublic(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPIRequiresBearer(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/customers/list", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers/list", nil)
	req.Header.Set("Authorization", bearer(t))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/broadcast/templates", nil)
	req.Header.Set("Authorization", bearer(t))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSendTemplateRequiresRole(t *testing.T) {
	r := newTestRouter()
	body := `{"clients":[{"phone":"5551234","name":"Ana"}],"template_name":"hello_world"}`

	cases := map[string]int{
		"":              http.StatusForbidden,
		"anon":          http.StatusForbidden,
		"authenticated": http.StatusOK,
		"service_role":  http.StatusOK,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/broadcast/send-template", strings.NewReader(body))
		req.Header.Set("Authorization", bearerWithRole(t, role))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}
