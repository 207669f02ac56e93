package enums

import "fmt"

// UserRole distinguishes pharmacy buyers from distributor staff.
type UserRole string

const (
	RolePharmacist UserRole = "pharmacist"
	RoleOperator   UserRole = "operator"
	RoleAdmin      UserRole = "admin"
)

var validUserRoles = []UserRole{
	RolePharmacist,
	RoleOperator,
	RoleAdmin,
}

func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the role matches a known value.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role belongs to distributor-side personnel.
func (r UserRole) IsStaff() bool {
	return r == RoleOperator || r == RoleAdmin
}

// ParseUserRole converts raw input into UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
