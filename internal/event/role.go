package event

// Role is a user's standing on a single event's team.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAssistant Role = "assistant"
	RoleObserver  Role = "observer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAssistant, RoleObserver:
		return true
	default:
		return false
	}
}
