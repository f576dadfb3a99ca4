package model

type Role string

const (
	RoleDirector   Role = "director"
	RoleLaboratory Role = "laboratory"
	RoleAdmin      Role = "admin"
)

// Principal is the caller behind a bearer token. Token is forwarded to the
// remote API unchanged.
type Principal struct {
	UserID string
	Role   Role
	Token  string
}

func (p Principal) IsDirector() bool {
	return p.Role == RoleDirector
}

func (p Principal) IsLaboratory() bool {
	return p.Role == RoleLaboratory
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) CanDecide() bool {
	return p.IsDirector() || p.IsAdmin()
}

func (p Principal) CanUpload() bool {
	return p.IsLaboratory() || p.IsAdmin()
}
