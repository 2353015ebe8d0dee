package tenant

import "github.com/ScriptSmith/hadrian/types"

// OwnerType is the discriminant of the OwnerRef tagged union.
type OwnerType string

const (
	OwnerOrganization   OwnerType = "organization"
	OwnerTeam           OwnerType = "team"
	OwnerProject        OwnerType = "project"
	OwnerUser           OwnerType = "user"
	OwnerServiceAccount OwnerType = "service_account"
)

// OwnerRef is the tagged-union owner carried by every owner-scoped entity.
// It is persisted as a pair of plain columns (owner_type, owner_id) but
// exposed as a single validated struct so callers can't construct an
// inconsistent owner (e.g. OwnerType=team with a project's id).
type OwnerRef struct {
	Type OwnerType `json:"owner_type"`
	ID   string    `json:"owner_id"`
}

// Validate checks that Type is one of the known variants and ID is non-empty.
func (o OwnerRef) Validate() error {
	if o.ID == "" {
		return types.Validation("owner_id must not be empty")
	}
	switch o.Type {
	case OwnerOrganization, OwnerTeam, OwnerProject, OwnerUser, OwnerServiceAccount:
		return nil
	default:
		return types.Validation("unknown owner_type: " + string(o.Type))
	}
}
