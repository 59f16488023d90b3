package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of staff roles. Every switch over Role handles all
// three values and returns an error from the default branch.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleWaiter  Role = "waiter"
	RoleKitchen Role = "kitchen"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleWaiter, RoleKitchen}

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleWaiter, RoleKitchen:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// LandingPath is the view a role is sent to after login.
func (r Role) LandingPath() (string, error) {
	switch r {
	case RoleAdmin:
		return "/admin", nil
	case RoleWaiter:
		return "/camarero", nil
	case RoleKitchen:
		return "/cocina", nil
	default:
		return "", fmt.Errorf("unknown role %q", string(r))
	}
}

// UsesPIN reports whether the role authenticates with a PIN code rather
// than a password.
func (r Role) UsesPIN() (bool, error) {
	switch r {
	case RoleWaiter, RoleKitchen:
		return true, nil
	case RoleAdmin:
		return false, nil
	default:
		return false, fmt.Errorf("unknown role %q", string(r))
	}
}

// LoggedOutPath is where a cleared session lands.
const LoggedOutPath = "/"

// User is a staff member. Waiters and kitchen staff carry a unique PIN in
// Code; admins carry a bcrypt hash in PasswordHash.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:255;not null;index" json:"name"`
	Code         *string   `gorm:"size:16;uniqueIndex" json:"code,omitempty"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Role         Role      `gorm:"size:20;not null;index" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return CollectionUsers }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// PIN returns the stored code or an empty string.
func (u User) PIN() string {
	if u.Code == nil {
		return ""
	}
	return *u.Code
}

// Identity is the role-bearing record kept in a session.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
	Role Role   `json:"role"`
}

// Identity projects the user into its session identity.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Code: u.PIN(), Role: u.Role}
}

func (i Identity) Subject() string  { return i.ID }
func (i Identity) RoleName() string { return string(i.Role) }

// Landing is the identity's own view, or the login screen for a role that
// has none.
func (i Identity) Landing() string {
	if path, err := i.Role.LandingPath(); err == nil {
		return path
	}
	return LoggedOutPath
}

// Valid reports whether the identity could have come from a real login.
func (i Identity) Valid() bool {
	if i.ID == "" || i.Name == "" {
		return false
	}
	_, err := ParseRole(string(i.Role))
	return err == nil
}
