package enums

type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusExtended SessionStatus = "extended"
	SessionStatusEnded    SessionStatus = "ended"
)

// Live reports whether the session still accepts messages (deadline aside).
func (s SessionStatus) Live() bool {
	return s == SessionStatusActive || s == SessionStatusExtended
}
