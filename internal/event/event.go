package event

import (
	"encoding/json"
	"time"
)

// Event types emitted by the auth service.
const (
	TypeMemberRegistered = "member_registered"
	TypeRegisterConflict = "register_conflict"
	TypeLoginSuccess     = "login_success"
	TypeLoginFailure     = "login_failure"
	TypeTokenRefreshed   = "token_refreshed"
	TypeRefreshFailure   = "refresh_failure"
)

// AuthEvent is the payload published to the event stream for every
// authentication outcome. Consumers receive it JSON-encoded.
type AuthEvent struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	MemberID  string          `json:"memberId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
