package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{TenantPending, TenantProvisioning, true},
		{TenantProvisioning, TenantReady, true},
		{TenantProvisioning, TenantFailed, true},
		{TenantFailed, TenantProvisioning, true},
		{TenantReady, TenantDeleting, true},

		{TenantPending, TenantReady, false},      // nothing skips provisioning
		{TenantFailed, TenantReady, false},       // failed must re-provision
		{TenantReady, TenantProvisioning, false}, // status never regresses
		{TenantDeleting, TenantReady, false},
		{TenantDeleting, TenantPending, false},
		{TenantReady, TenantReady, false},
	}

	for _, tc := range tests {
		if got := ValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCreateTenantRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateTenantRequest
		wantErr bool
	}{
		{name: "valid", req: CreateTenantRequest{Name: "Acme Corp"}},
		{name: "trims whitespace", req: CreateTenantRequest{Name: "  Acme  "}},
		{name: "empty name", req: CreateTenantRequest{Name: "   "}, wantErr: true},
		{name: "negative retention", req: CreateTenantRequest{Name: "x", RetentionDays: -1}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr && tc.req.RetentionDays == 0 {
				t.Error("retention default not applied")
			}
		})
	}
}

func TestUpdateTenantRequestValidate(t *testing.T) {
	empty := ""
	name := "New Name"
	zero := 0

	if err := (&UpdateTenantRequest{}).Validate(); err == nil {
		t.Error("empty update should be rejected")
	}

	if err := (&UpdateTenantRequest{Name: &empty}).Validate(); err == nil {
		t.Error("blank name should be rejected")
	}

	if err := (&UpdateTenantRequest{Name: &name}).Validate(); err != nil {
		t.Errorf("valid name update rejected: %v", err)
	}

	if err := (&UpdateTenantRequest{RetentionDays: &zero}).Validate(); err == nil {
		t.Error("zero retention should be rejected")
	}
}

func TestRoleHelpers(t *testing.T) {
	for _, r := range []string{RoleOwner, RoleAdmin, RoleMember, RoleViewer} {
		if !ValidRole(r) {
			t.Errorf("ValidRole(%s) = false", r)
		}
	}

	if ValidRole("superuser") {
		t.Error("unknown role accepted")
	}

	if !Elevated(RoleOwner) || !Elevated(RoleAdmin) {
		t.Error("owner/admin should be elevated")
	}

	if Elevated(RoleMember) || Elevated(RoleViewer) {
		t.Error("member/viewer should not be elevated")
	}
}

func TestAddMemberRequestValidate(t *testing.T) {
	if err := (&AddMemberRequest{UserID: uuid.New(), Role: RoleMember}).Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	if err := (&AddMemberRequest{Role: RoleMember}).Validate(); err == nil {
		t.Error("nil user id accepted")
	}

	if err := (&AddMemberRequest{UserID: uuid.New(), Role: "root"}).Validate(); err == nil {
		t.Error("bogus role accepted")
	}
}

func TestDeleteTenantRequestValidate(t *testing.T) {
	if err := (&DeleteTenantRequest{Confirm: "acme", TOTPCode: "123456"}).Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	if err := (&DeleteTenantRequest{TOTPCode: "123456"}).Validate(); err == nil {
		t.Error("missing confirm accepted")
	}

	if err := (&DeleteTenantRequest{Confirm: "acme", TOTPCode: "123"}).Validate(); err == nil {
		t.Error("short totp accepted")
	}
}
