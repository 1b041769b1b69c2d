package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TurnoAbierto = "abierto"
	TurnoCerrado = "cerrado"
)

// Turno is one worker's accountable cash-handling period.
// Estado: "abierto" | "cerrado". Cierre is the only mutation after creation
// and is terminal: totals are frozen even if late movements turn up later
// (the ledger rejects writes against a closed turno).
type Turno struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TrabajadorID uuid.UUID `gorm:"type:uuid;not null;index"`
	FechaInicio  time.Time `gorm:"not null"`
	FechaFin     *time.Time
	Estado       string `gorm:"type:varchar(20);not null;default:'abierto';index"`

	// Frozen at close: computed totals, the worker's declaration, and the
	// signed differences (declarado - computado; positive = surplus).
	TotalEfectivo     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalYape         *decimal.Decimal `gorm:"type:decimal(12,2)"`
	EfectivoDeclarado *decimal.Decimal `gorm:"type:decimal(12,2)"`
	YapeDeclarado     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DifEfectivo       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DifYape           *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferencia        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Observaciones     *string

	// Shift-close report delivery, handled by the async worker pool.
	ReporteEnviado     bool `gorm:"not null;default:false"`
	ReporteIntentos    int  `gorm:"not null;default:0"`
	ProximoReintentoAt *time.Time
	UltimoErrorReporte *string

	Trabajador  *Trabajador      `gorm:"foreignKey:TrabajadorID"`
	Movimientos []MovimientoCaja `gorm:"foreignKey:TurnoID"`
}

func (Turno) TableName() string { return "turnos" }
