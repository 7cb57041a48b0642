package enums

import "fmt"

// ActorRole is the role carried in access tokens.
type ActorRole string

const (
	ActorRoleCollector ActorRole = "collector"
	ActorRoleAdmin     ActorRole = "admin"
)

func (r ActorRole) IsValid() bool {
	return r == ActorRoleCollector || r == ActorRoleAdmin
}

func ParseActorRole(value string) (ActorRole, error) {
	r := ActorRole(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid actor role %q", value)
	}
	return r, nil
}
