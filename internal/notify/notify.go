// Package notify abstracts outbound member notifications. Real delivery
// channels plug in behind the Notifier interface; the default
// implementation writes structured log lines only.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/models"
)

// Notifier delivers lifecycle notifications to tenant members. Delivery
// is best-effort; implementations must not block the caller on transport
// failures.
type Notifier interface {
	TenantReady(ctx context.Context, tenant *models.Tenant, users []uuid.UUID)
	TenantDeleted(ctx context.Context, name, slug string, users []uuid.UUID)
	MemberAdded(ctx context.Context, tenant *models.Tenant, userID uuid.UUID, role string)
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// TenantReady logs that a tenant finished provisioning.
func (n *LogNotifier) TenantReady(_ context.Context, tenant *models.Tenant, users []uuid.UUID) {
	n.log.WithFields(logrus.Fields{
		"slug":       tenant.Slug,
		"recipients": len(users),
	}).Info("notify: tenant ready")
}

// TenantDeleted logs that a tenant was destroyed.
func (n *LogNotifier) TenantDeleted(_ context.Context, name, slug string, users []uuid.UUID) {
	n.log.WithFields(logrus.Fields{
		"name":       name,
		"slug":       slug,
		"recipients": len(users),
	}).Info("notify: tenant deleted")
}

// MemberAdded logs that a user was added to a tenant.
func (n *LogNotifier) MemberAdded(_ context.Context, tenant *models.Tenant, userID uuid.UUID, role string) {
	n.log.WithFields(logrus.Fields{
		"slug":    tenant.Slug,
		"user_id": userID,
		"role":    role,
	}).Info("notify: member added")
}
