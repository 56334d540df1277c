package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the portal a profile signs into.
type Role string

const (
	RoleTenant          Role = "tenant"
	RoleCaretaker       Role = "caretaker"
	RoleTechnician      Role = "technician"
	RolePropertyManager Role = "property_manager"
	RoleProprietor      Role = "proprietor"
	RoleSuperAdmin      Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleCaretaker, RoleTechnician, RolePropertyManager, RoleProprietor, RoleSuperAdmin:
		return true
	}
	return false
}

// Profile is the user directory entry used to stamp and display actors.
type Profile struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Email       string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	DisplayName string    `gorm:"size:255;not null" json:"display_name"`
	Role        Role      `gorm:"size:32;index;not null" json:"role"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (p *Profile) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PropertyStaff links a profile to a property it works on.
type PropertyStaff struct {
	PropertyID string    `gorm:"primaryKey;size:36" json:"property_id"`
	UserID     string    `gorm:"primaryKey;size:36;index" json:"user_id"`
	Role       Role      `gorm:"primaryKey;size:32" json:"role"`
	Active     bool      `gorm:"not null" json:"active"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

// TableName keeps the table name singular-noun friendly.
func (PropertyStaff) TableName() string { return "property_staff" }

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
