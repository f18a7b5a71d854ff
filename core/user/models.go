package user

import (
	"time"

	"github.com/trezcool/academibot/core"
)

type Role string

// Roles
const (
	RoleDefault Role = "default"
	RoleAdmin   Role = "admin"
)

var AllRoles = []Role{RoleDefault, RoleAdmin}

func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Statuses reported by Service.Status
const (
	StatusActive        = "active"
	StatusBlocking      = "blocking"
	StatusNotRegistered = "not-registered"
)

// Temporary token purposes
const (
	PurposeRegister = "register"
)

type User struct {
	Address   string    `db:"address" json:"address"`
	Role      Role      `db:"role" json:"role"`
	Auth      string    `db:"auth" json:"-"` // hashed by the configured core.Checker
	CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Token is a temporary auth secret bound to a user address and a purpose.
type Token struct {
	Address string    `db:"address"`
	Purpose string    `db:"purpose"`
	Token   string    `db:"token"` // hashed
	StartAt time.Time `db:"start_at"`
	EndAt   time.Time `db:"end_at"`
}

func (tok Token) ActiveAt(now time.Time) bool {
	return !now.Before(tok.StartAt) && !now.After(tok.EndAt)
}

// Permission types
const (
	PermissionRole = "role"
)

type RequestStatus string

const (
	RequestRequested RequestStatus = "requested"
	RequestGranted   RequestStatus = "granted"
)

// Request is one side of a permission change: asked for by the user or granted by an admin.
// The permission is applied once both sides exist.
type Request struct {
	Address string        `db:"address"`
	Type    string        `db:"type"`
	Value   string        `db:"value"`
	Status  RequestStatus `db:"status"`
}

// NewUser contains information needed to register a User.
type NewUser struct {
	Address string `json:"address" validate:"required,address"`
	Role    Role   `json:"role" validate:"omitempty,role"`
}

func (nu *NewUser) Validate() error {
	nu.Address = core.CleanString(nu.Address, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleDefault
	}
	return core.CheckStruct(nu, "invalid user")
}

// NewPermission is what `request` and `grant` carry.
type NewPermission struct {
	Address string `json:"user" validate:"required,address"`
	Type    string `json:"type" validate:"required,oneof=role"`
	Value   string `json:"value" validate:"required,notblank"`
}

func (np *NewPermission) Validate() error {
	np.Address = core.CleanString(np.Address, true /* lower */)
	np.Value = core.CleanString(np.Value)
	if err := core.CheckStruct(np, "invalid permission"); err != nil {
		return err
	}
	if np.Type == PermissionRole {
		if _, ok := ParseRole(np.Value); !ok {
			return core.NewValidationError(
				core.NewArgumentError("invalid permission"),
				core.FieldError{Field: "value", Error: "unknown role '" + np.Value + "'"},
			)
		}
	}
	return nil
}
