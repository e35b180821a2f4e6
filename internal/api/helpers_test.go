package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/middleware"
	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/tenantctx"
)

var testUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// newTestRouter creates a gin engine with an authenticated principal for testing.
func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, testUserID)
		c.Next()
	})

	return r
}

// newBoundRouter additionally installs a tenant binding, standing in for
// the tenant-bind middleware on bound routes.
func newBoundRouter(tenant *models.Tenant, role string) *gin.Engine {
	r := newTestRouter()
	r.Use(func(c *gin.Context) {
		ctx, err := tenantctx.Bind(c.Request.Context(), tenantctx.Tenant{
			ID:         tenant.ID,
			Slug:       tenant.Slug,
			SchemaName: tenant.SchemaName,
			Status:     tenant.Status,
			UserID:     testUserID,
			Role:       role,
		})
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)

			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	return r
}

// doRequest performs an HTTP request against the test router and returns the recorder.
func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func readyTenant() *models.Tenant {
	return &models.Tenant{
		ID:         uuid.MustParse("00000000-0000-0000-0000-0000000000aa"),
		Name:       "Acme Corp",
		Slug:       "acme-corp",
		SchemaName: "tenant_acme_corp",
		Status:     models.TenantReady,
	}
}
