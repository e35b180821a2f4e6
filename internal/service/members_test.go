package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/schemafence/schemafence/internal/models"
	"github.com/schemafence/schemafence/internal/tenantctx"
)

func boundCtx(t *testing.T, tenant *models.Tenant, userID uuid.UUID, role string) context.Context {
	t.Helper()
	ctx, err := tenantctx.Bind(context.Background(), tenantctx.Tenant{
		ID:         tenant.ID,
		Slug:       tenant.Slug,
		SchemaName: tenant.SchemaName,
		Status:     tenant.Status,
		UserID:     userID,
		Role:       role,
	})
	if err != nil {
		t.Fatalf("binding tenant: %v", err)
	}
	return ctx
}

func newMemberService(members *mockMembershipStore, tenants *mockTenantRegistry, sessions *mockSessionInvalidator, notifier *mockNotifier, audit *mockAuditEnqueuer) *MemberService {
	return NewMemberService(members, tenants, sessions, notifier, audit, testLogger())
}

func TestMemberService_ListRequiresBinding(t *testing.T) {
	svc := newMemberService(&mockMembershipStore{}, &mockTenantRegistry{}, &mockSessionInvalidator{}, &mockNotifier{}, &mockAuditEnqueuer{})

	if _, err := svc.List(context.Background()); !errors.Is(err, tenantctx.ErrNotBound) {
		t.Fatalf("error = %v, want ErrNotBound", err)
	}
}

func TestMemberService_Add(t *testing.T) {
	tenant := readyTenant()
	actor := uuid.New()
	newUser := uuid.New()

	tests := []struct {
		name     string
		actorRole string
		addRole  string
		wantErr  error
	}{
		{name: "admin adds member", actorRole: models.RoleAdmin, addRole: models.RoleMember},
		{name: "owner adds owner", actorRole: models.RoleOwner, addRole: models.RoleOwner},
		{name: "admin cannot add owner", actorRole: models.RoleAdmin, addRole: models.RoleOwner, wantErr: models.ErrInsufficientRole},
		{name: "member cannot add", actorRole: models.RoleMember, addRole: models.RoleViewer, wantErr: models.ErrInsufficientRole},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			members := &mockMembershipStore{}
			tenants := &mockTenantRegistry{
				getByID: func(context.Context, uuid.UUID) (*models.Tenant, error) { return tenant, nil },
			}
			notifier := &mockNotifier{}
			audit := &mockAuditEnqueuer{}

			svc := newMemberService(members, tenants, &mockSessionInvalidator{}, notifier, audit)
			ctx := boundCtx(t, tenant, actor, tc.actorRole)

			m, err := svc.Add(ctx, models.AddMemberRequest{UserID: newUser, Role: tc.addRole})

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Role != tc.addRole {
				t.Errorf("role = %q, want %q", m.Role, tc.addRole)
			}
			if calls := notifier.getCalls(); len(calls) != 1 || calls[0] != "MemberAdded" {
				t.Errorf("expected MemberAdded notification, got %v", calls)
			}
			aj := audit.getJobs()
			if len(aj) != 1 || aj[0].Action != models.ActionMemberAdded {
				t.Errorf("expected member.added audit, got %+v", aj)
			}
		})
	}
}

func TestMemberService_AddDuplicate(t *testing.T) {
	tenant := readyTenant()
	members := &mockMembershipStore{
		add: func(context.Context, uuid.UUID, uuid.UUID, string, *uuid.UUID) (*models.Membership, error) {
			return nil, models.ErrMemberExists
		},
	}

	svc := newMemberService(members, &mockTenantRegistry{}, &mockSessionInvalidator{}, &mockNotifier{}, &mockAuditEnqueuer{})
	ctx := boundCtx(t, tenant, uuid.New(), models.RoleOwner)

	_, err := svc.Add(ctx, models.AddMemberRequest{UserID: uuid.New(), Role: models.RoleMember})
	if !errors.Is(err, models.ErrMemberExists) {
		t.Fatalf("error = %v, want ErrMemberExists", err)
	}
}

func TestMemberService_ChangeRole(t *testing.T) {
	tenant := readyTenant()
	subject := uuid.New()

	tests := []struct {
		name        string
		actorRole   string
		subjectRole string
		newRole     string
		storeErr    error
		wantErr     error
	}{
		{name: "owner promotes to owner", actorRole: models.RoleOwner, newRole: models.RoleOwner},
		{name: "admin changes member to viewer", actorRole: models.RoleAdmin, subjectRole: models.RoleMember, newRole: models.RoleViewer},
		{name: "admin cannot grant owner", actorRole: models.RoleAdmin, subjectRole: models.RoleMember, newRole: models.RoleOwner, wantErr: models.ErrInsufficientRole},
		{name: "admin cannot demote owner", actorRole: models.RoleAdmin, subjectRole: models.RoleOwner, newRole: models.RoleMember, wantErr: models.ErrInsufficientRole},
		{name: "last owner demotion surfaces", actorRole: models.RoleOwner, newRole: models.RoleViewer, storeErr: models.ErrLastOwner, wantErr: models.ErrLastOwner},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			members := &mockMembershipStore{
				get: func(context.Context, uuid.UUID, uuid.UUID) (*models.Membership, error) {
					return &models.Membership{UserID: subject, Role: tc.subjectRole, Status: models.MemberActive}, nil
				},
			}
			if tc.storeErr != nil {
				members.changeRole = func(context.Context, uuid.UUID, uuid.UUID, string) (*models.Membership, error) {
					return nil, tc.storeErr
				}
			}
			audit := &mockAuditEnqueuer{}

			svc := newMemberService(members, &mockTenantRegistry{}, &mockSessionInvalidator{}, &mockNotifier{}, audit)
			ctx := boundCtx(t, tenant, uuid.New(), tc.actorRole)

			m, err := svc.ChangeRole(ctx, subject, models.ChangeRoleRequest{Role: tc.newRole})

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Role != tc.newRole {
				t.Errorf("role = %q, want %q", m.Role, tc.newRole)
			}
			aj := audit.getJobs()
			if len(aj) != 1 || aj[0].Action != models.ActionMemberRoleChanged {
				t.Errorf("expected member.role_changed audit, got %+v", aj)
			}
		})
	}
}

func TestMemberService_Remove(t *testing.T) {
	tenant := readyTenant()
	actor := uuid.New()
	other := uuid.New()

	tests := []struct {
		name      string
		actorRole string
		subject   uuid.UUID
		storeErr  error
		wantErr   error
	}{
		{name: "admin removes other", actorRole: models.RoleAdmin, subject: other},
		{name: "viewer removes self", actorRole: models.RoleViewer, subject: actor},
		{name: "viewer cannot remove other", actorRole: models.RoleViewer, subject: other, wantErr: models.ErrInsufficientRole},
		{name: "last owner self-removal refused", actorRole: models.RoleOwner, subject: actor, storeErr: models.ErrLastOwner, wantErr: models.ErrLastOwner},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			members := &mockMembershipStore{}
			if tc.storeErr != nil {
				members.remove = func(context.Context, uuid.UUID, uuid.UUID) (*models.Membership, error) {
					return nil, tc.storeErr
				}
			}
			sessions := &mockSessionInvalidator{}
			audit := &mockAuditEnqueuer{}

			svc := newMemberService(members, &mockTenantRegistry{}, sessions, &mockNotifier{}, audit)
			ctx := boundCtx(t, tenant, actor, tc.actorRole)

			err := svc.Remove(ctx, tc.subject)

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				if len(sessions.getUsers()) != 0 {
					t.Error("sessions invalidated despite refused removal")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if users := sessions.getUsers(); len(users) != 1 || users[0] != tc.subject {
				t.Errorf("expected session invalidation for %v, got %v", tc.subject, users)
			}
			aj := audit.getJobs()
			if len(aj) != 1 || aj[0].Action != models.ActionMemberRemoved {
				t.Errorf("expected member.removed audit, got %+v", aj)
			}
		})
	}
}
