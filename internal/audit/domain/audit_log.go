package domain

import "time"

// AuditLog represents one audit event recorded for an auth flow.
type AuditLog struct {
	ID        string
	MemberID  string // empty for events with no resolved member (e.g. failed login)
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
