package api_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/schemafence/schemafence/internal/models"
)

// mockTenantService implements domain.TenantService with per-call funcs.
type mockTenantService struct {
	registerFn   func(ctx context.Context, actor uuid.UUID, req models.CreateTenantRequest) (*models.Tenant, error)
	statusFn     func(ctx context.Context, actor uuid.UUID, slug string) (*models.Tenant, error)
	updateFn     func(ctx context.Context, actor uuid.UUID, slug string, req models.UpdateTenantRequest) (*models.Tenant, error)
	retryFn      func(ctx context.Context, actor uuid.UUID, slug string) (*models.Tenant, error)
	deleteFn     func(ctx context.Context, actor uuid.UUID, slug string, req models.DeleteTenantRequest) error
	resolveFn    func(ctx context.Context, slug string, userID uuid.UUID) (*models.Tenant, *models.Membership, error)
	defaultOrgFn func(ctx context.Context, userID uuid.UUID, fallbackSlug string) (*models.Tenant, error)
}

func (m *mockTenantService) Register(ctx context.Context, actor uuid.UUID, req models.CreateTenantRequest) (*models.Tenant, error) {
	return m.registerFn(ctx, actor, req)
}

func (m *mockTenantService) Status(ctx context.Context, actor uuid.UUID, slug string) (*models.Tenant, error) {
	return m.statusFn(ctx, actor, slug)
}

func (m *mockTenantService) UpdateSettings(ctx context.Context, actor uuid.UUID, slug string, req models.UpdateTenantRequest) (*models.Tenant, error) {
	return m.updateFn(ctx, actor, slug, req)
}

func (m *mockTenantService) RetryProvision(ctx context.Context, actor uuid.UUID, slug string) (*models.Tenant, error) {
	return m.retryFn(ctx, actor, slug)
}

func (m *mockTenantService) RequestDeletion(ctx context.Context, actor uuid.UUID, slug string, req models.DeleteTenantRequest) error {
	return m.deleteFn(ctx, actor, slug, req)
}

func (m *mockTenantService) Resolve(ctx context.Context, slug string, userID uuid.UUID) (*models.Tenant, *models.Membership, error) {
	return m.resolveFn(ctx, slug, userID)
}

func (m *mockTenantService) DefaultOrg(ctx context.Context, userID uuid.UUID, fallbackSlug string) (*models.Tenant, error) {
	return m.defaultOrgFn(ctx, userID, fallbackSlug)
}

// mockMemberService implements domain.MemberService.
type mockMemberService struct {
	listFn       func(ctx context.Context) ([]models.Membership, error)
	addFn        func(ctx context.Context, req models.AddMemberRequest) (*models.Membership, error)
	changeRoleFn func(ctx context.Context, userID uuid.UUID, req models.ChangeRoleRequest) (*models.Membership, error)
	removeFn     func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockMemberService) List(ctx context.Context) ([]models.Membership, error) {
	return m.listFn(ctx)
}

func (m *mockMemberService) Add(ctx context.Context, req models.AddMemberRequest) (*models.Membership, error) {
	return m.addFn(ctx, req)
}

func (m *mockMemberService) ChangeRole(ctx context.Context, userID uuid.UUID, req models.ChangeRoleRequest) (*models.Membership, error) {
	return m.changeRoleFn(ctx, userID, req)
}

func (m *mockMemberService) Remove(ctx context.Context, userID uuid.UUID) error {
	return m.removeFn(ctx, userID)
}

// mockAuditService implements domain.AuditService.
type mockAuditService struct {
	queryFn  func(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error)
	exportFn func(ctx context.Context) (string, error)
}

func (m *mockAuditService) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, bool, error) {
	return m.queryFn(ctx, opts)
}

func (m *mockAuditService) Export(ctx context.Context) (string, error) {
	return m.exportFn(ctx)
}

// mockMFAService implements domain.MFAService.
type mockMFAService struct {
	enrollFn func(ctx context.Context, userID uuid.UUID) (string, error)
	verifyFn func(ctx context.Context, userID uuid.UUID, code string) error
}

func (m *mockMFAService) Enroll(ctx context.Context, userID uuid.UUID) (string, error) {
	return m.enrollFn(ctx, userID)
}

func (m *mockMFAService) Verify(ctx context.Context, userID uuid.UUID, code string) error {
	return m.verifyFn(ctx, userID, code)
}
