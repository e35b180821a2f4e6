package ws

import (
	"encoding/json"
	"time"
)

// Lifecycle event types broadcast to tenant subscribers. The set mirrors
// the registry state machine plus the terminal deleted notification.
const (
	EventTenantProvisioning = "tenant.provisioning"
	EventTenantReady        = "tenant.ready"
	EventTenantFailed       = "tenant.failed"
	EventTenantDeleting     = "tenant.deleting"
	EventTenantDeleted      = "tenant.deleted"
)

// Event is the message delivered to subscribers. IDs are monotonic per
// tenant, so a client can resume from its last seen ID after a reconnect.
type Event struct {
	Type     string          `json:"type"`
	ID       uint64          `json:"id"`
	TenantID string          `json:"-"`
	Data     json.RawMessage `json:"data"`
	Time     time.Time       `json:"time"`
}

// SubscribeMsg is the optional first client message, requesting replay of
// events after LastEventID.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells a client its requested replay window has aged out and it
// must refresh its state from the API instead.
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
