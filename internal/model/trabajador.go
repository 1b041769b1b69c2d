package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RolTrabajador = "trabajador"
	RolAdmin      = "admin"
)

// Trabajador stores system users with role-based access.
// Rol: "trabajador" | "admin"
type Trabajador struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Usuario      string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Rol          string    `gorm:"type:varchar(20);not null;default:'trabajador'"`
	Activo       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides GORM's English pluralizer.
func (Trabajador) TableName() string { return "trabajadores" }
