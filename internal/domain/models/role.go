package models

// Role is the permission tier a user acts with. A message records the role
// the sender had at send time; later role changes do not rewrite history.
type Role string

const (
	RoleUser        Role = "user"
	RoleSquadLeader Role = "squadLeader"
	RoleModerator   Role = "moderator"
	RoleAdmin       Role = "admin"
	RoleSuperAdmin  Role = "superAdmin"
)

var roleRank = map[Role]int{
	RoleUser:        0,
	RoleSquadLeader: 1,
	RoleModerator:   2,
	RoleAdmin:       3,
	RoleSuperAdmin:  4,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// IsModeratorTier reports whether r may moderate: delete messages,
// timeout/ban users and manage polls.
func (r Role) IsModeratorTier() bool {
	return roleRank[r] >= roleRank[RoleModerator]
}
