// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them in the linking audit log.
package queue

// Queue names.  Both are durable.
const (
	ParentLinkedQueue      = "daycare.parent_linked"
	AccountRegisteredQueue = "daycare.account_registered"
)

// ParentLinkedEvent is published whenever a registered child receives a
// parent.  Trigger is one of register, profile, child_added, reconcile.
type ParentLinkedEvent struct {
	ChildID   string `json:"child_id"`
	ChildName string `json:"child_name"`
	AccountID string `json:"account_id"`
	ClassID   string `json:"class_id"`
	Trigger   string `json:"trigger"`
	LinkedAt  string `json:"linked_at"`
}

// AccountRegisteredEvent is published when a self-registration succeeds
// so staff tooling can prompt for approval.
type AccountRegisteredEvent struct {
	AccountID    string `json:"account_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	ClassID      string `json:"class_id,omitempty"`
	LinkedChild  string `json:"linked_child_id,omitempty"`
	RegisteredAt string `json:"registered_at"`
}
