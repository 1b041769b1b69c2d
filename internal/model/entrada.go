package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EntradaAbierta = "abierta"
	EntradaCerrada = "cerrada"
)

// Entrada represents one vehicle's stay, from check-in to check-out.
// Estado: "abierta" | "cerrada". The close is terminal — no reopening —
// and rows are never deleted (append-only history for reporting).
type Entrada struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClienteID uuid.UUID `gorm:"type:uuid;not null;index"`
	// Placa is denormalized from Cliente so the "one open entrada per plate"
	// partial unique index can live on this table (see infra.NewDatabase).
	Placa        string    `gorm:"not null;index"`
	FechaEntrada time.Time `gorm:"not null"`
	// FechaHasta + HoraSalidaEsperada: agreed exit; drives the penalty policy.
	FechaHasta         *time.Time
	HoraSalidaEsperada *string `gorm:"type:varchar(5)"` // "HH:MM"

	DiasPactados  int             `gorm:"not null"`
	PrecioDia     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Adelanto      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PagoCompleto  bool            `gorm:"not null;default:false"`
	DejoLlave     bool            `gorm:"not null;default:false"`
	Observaciones string

	Estado string `gorm:"type:varchar(20);not null;default:'abierta';index"`

	// Stamped exactly once, by the check-out transaction.
	FechaSalida  *time.Time
	DiasReales   *int
	Penalidad    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Descuento    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoTotal   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoCobrado *decimal.Decimal `gorm:"type:decimal(12,2)"`

	TrabajadorID       uuid.UUID  `gorm:"type:uuid;not null"`
	TrabajadorSalidaID *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Cliente     *Cliente         `gorm:"foreignKey:ClienteID"`
	Trabajador  *Trabajador      `gorm:"foreignKey:TrabajadorID"`
	Movimientos []MovimientoCaja `gorm:"foreignKey:EntradaID"`
}

func (Entrada) TableName() string { return "entradas" }
