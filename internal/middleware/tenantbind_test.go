package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/middleware"
	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/tenantctx"
)

// stubTenantService implements domain.TenantService for bind tests.
type stubTenantService struct {
	tenant     *models.Tenant
	membership *models.Membership
	err        error
}

func (s *stubTenantService) Register(context.Context, uuid.UUID, models.CreateTenantRequest) (*models.Tenant, error) {
	return nil, nil
}

func (s *stubTenantService) Status(context.Context, uuid.UUID, string) (*models.Tenant, error) {
	return nil, nil
}

func (s *stubTenantService) UpdateSettings(context.Context, uuid.UUID, string, models.UpdateTenantRequest) (*models.Tenant, error) {
	return nil, nil
}

func (s *stubTenantService) RetryProvision(context.Context, uuid.UUID, string) (*models.Tenant, error) {
	return nil, nil
}

func (s *stubTenantService) RequestDeletion(context.Context, uuid.UUID, string, models.DeleteTenantRequest) error {
	return nil
}

func (s *stubTenantService) Resolve(context.Context, string, uuid.UUID) (*models.Tenant, *models.Membership, error) {
	return s.tenant, s.membership, s.err
}

func (s *stubTenantService) DefaultOrg(context.Context, uuid.UUID, string) (*models.Tenant, error) {
	return nil, nil
}

func newBindRouter(svc *stubTenantService, authed bool) *gin.Engine {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	r := gin.New()
	if authed {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.UserIDKey, uuid.New())
			c.Next()
		})
	}
	r.Use(middleware.TenantBind(svc, log))
	r.GET("/orgs/:slug/whoami", func(c *gin.Context) {
		t, err := tenantctx.From(c.Request.Context())
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, t.Role)
	})
	return r
}

func bindRequest(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orgs/acme/whoami", http.NoBody)
	r.ServeHTTP(w, req)
	return w
}

func TestTenantBind(t *testing.T) {
	ready := &models.Tenant{
		ID: uuid.New(), Slug: "acme", SchemaName: "tenant_acme", Status: models.TenantReady,
	}

	tests := []struct {
		name       string
		svc        *stubTenantService
		authed     bool
		wantStatus int
		wantBody   string
	}{
		{
			name:       "binds member of ready tenant",
			svc:        &stubTenantService{tenant: ready, membership: &models.Membership{Role: models.RoleAdmin}},
			authed:     true,
			wantStatus: http.StatusOK,
			wantBody:   models.RoleAdmin,
		},
		{
			name:       "non-member gets 404",
			svc:        &stubTenantService{err: models.ErrNotMember},
			authed:     true,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "pending tenant gets conflict",
			svc: &stubTenantService{
				tenant:     &models.Tenant{ID: uuid.New(), Slug: "acme", Status: models.TenantPending},
				membership: &models.Membership{Role: models.RoleOwner},
			},
			authed:     true,
			wantStatus: http.StatusConflict,
		},
		{
			name: "deleting tenant gets conflict",
			svc: &stubTenantService{
				tenant:     &models.Tenant{ID: uuid.New(), Slug: "acme", Status: models.TenantDeleting},
				membership: &models.Membership{Role: models.RoleOwner},
			},
			authed:     true,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unauthenticated gets 401",
			svc:        &stubTenantService{},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := bindRequest(newBindRouter(tc.svc, tc.authed))

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
			if tc.wantBody != "" && w.Body.String() != tc.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tc.wantBody)
			}
		})
	}
}
