package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cliente is the registered owner of a plate. Contact data and the last agreed
// daily rate are refreshed on every check-in.
type Cliente struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Placa     string    `gorm:"uniqueIndex;not null"` // normalized: uppercase, trimmed
	Nombre    string    `gorm:"not null"`
	Celular   *string
	PrecioDia *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Cliente) TableName() string { return "clientes" }
