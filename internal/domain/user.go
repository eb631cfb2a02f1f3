package domain

import "time"

type UserType string

const (
	UserTypeStaff  UserType = "STAFF"
	UserTypeDriver UserType = "DRIVER"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypeStaff, UserTypeDriver:
		return true
	default:
		return false
	}
}

// RoleName is a named role a user may hold. A user can hold several roles.
type RoleName string

const (
	RoleNormalStaff RoleName = "NORMAL_STAFF"
	RoleFaculty     RoleName = "FACULTY"
	// RoleTransportOfficer approves and declines subscription requests.
	RoleTransportOfficer RoleName = "TO"
)

func (r RoleName) Valid() bool {
	switch r {
	case RoleNormalStaff, RoleFaculty, RoleTransportOfficer:
		return true
	default:
		return false
	}
}

// User is the domain representation of an account. The password hash never leaves the
// persistence and accounts layers.
type User struct {
	ID       UserID
	Email    string
	FullName string
	Type     UserType
	Roles    []RoleName

	LastLoginAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) HasRole(role RoleName) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
