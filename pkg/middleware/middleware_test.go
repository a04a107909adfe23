package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/tutor-payouts/pkg/common"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(CorrelationID(), Recovery())
	r.GET("/protected", handlers...)
	return r
}

func do(t *testing.T, r http.Handler, token string) (*httptest.ResponseRecorder, common.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp common.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestAuthMiddleware_StoresSession(t *testing.T) {
	userID := uuid.New()
	token, err := IssueToken(testSecret, userID, RoleTutor, time.Hour)
	require.NoError(t, err)

	var got *Session
	r := newRouter(AuthMiddleware(testSecret), func(c *gin.Context) {
		got, _ = GetSession(c)
		id, err := GetUserID(c)
		require.NoError(t, err)
		assert.Equal(t, userID, id)
		c.Status(http.StatusNoContent)
	})

	w, _ := do(t, r, token)

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, RoleTutor, got.Role)
	assert.False(t, got.IsAdmin())
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	r := newRouter(AuthMiddleware(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })

	w, resp := do(t, r, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, common.KindUnauthorized, resp.Error.Kind)
}

func TestAuthMiddleware_ExpiredTokenIsSessionExpired(t *testing.T) {
	token, err := IssueToken(testSecret, uuid.New(), RoleAdmin, -time.Minute)
	require.NoError(t, err)
	r := newRouter(AuthMiddleware(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })

	w, resp := do(t, r, token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, common.KindSessionExpired, resp.Error.Kind)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token, err := IssueToken("other-secret", uuid.New(), RoleAdmin, time.Hour)
	require.NoError(t, err)
	r := newRouter(AuthMiddleware(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })

	w, resp := do(t, r, token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, common.KindUnauthorized, resp.Error.Kind)
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(AuthMiddleware(testSecret), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	tutorToken, _ := IssueToken(testSecret, uuid.New(), RoleTutor, time.Hour)
	w, resp := do(t, r, tutorToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, common.KindForbidden, resp.Error.Kind)

	adminToken, _ := IssueToken(testSecret, uuid.New(), RoleAdmin, time.Hour)
	w, _ = do(t, r, adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCorrelationID_EchoesHeader(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID())
	r.GET("/protected", func(c *gin.Context) {
		assert.Equal(t, "req-123", GetCorrelationID(c))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(CorrelationIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(CorrelationIDHeader))
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	r := newRouter(func(c *gin.Context) { panic("boom") })

	w, resp := do(t, r, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, common.KindInternal, resp.Error.Kind)
}

func TestMetrics_CountsWithdrawalSubmissionsByOutcome(t *testing.T) {
	const service = "payout-metrics-test"
	r := gin.New()
	r.Use(Metrics(service))
	r.POST(withdrawalSubmitRoute, func(c *gin.Context) {
		if c.Query("amount") == "bad" {
			c.Status(http.StatusUnprocessableEntity)
			return
		}
		c.Status(http.StatusCreated)
	})

	for _, target := range []string{withdrawalSubmitRoute, withdrawalSubmitRoute, withdrawalSubmitRoute + "?amount=bad"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, target, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, float64(2), testutil.ToFloat64(withdrawalSubmissions.WithLabelValues(service, "accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(withdrawalSubmissions.WithLabelValues(service, "refused")))
	assert.Equal(t, float64(2), testutil.ToFloat64(payoutHTTPRequests.WithLabelValues(service, http.MethodPost, withdrawalSubmitRoute, "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(payoutHTTPRequests.WithLabelValues(service, http.MethodGet, "unmatched", "404")))
	assert.Equal(t, float64(0), testutil.ToFloat64(payoutHTTPInFlight.WithLabelValues(service)))
}
