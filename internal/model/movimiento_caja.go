package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TipoMovimiento is the closed set of monetary event kinds. Aggregation and
// validation switch exhaustively on these — never on free-form strings.
type TipoMovimiento string

const (
	MovAdelanto     TipoMovimiento = "ADELANTO"
	MovPagoCompleto TipoMovimiento = "PAGO_COMPLETO"
	MovCobroSalida  TipoMovimiento = "COBRO_SALIDA"
	MovPenalidad    TipoMovimiento = "PENALIDAD"
)

// Valido reports whether t is one of the known movement kinds.
func (t TipoMovimiento) Valido() bool {
	switch t {
	case MovAdelanto, MovPagoCompleto, MovCobroSalida, MovPenalidad:
		return true
	}
	return false
}

// Payment methods accepted at the facility.
const (
	MetodoEfectivo = "efectivo"
	MetodoYape     = "yape"
)

// MetodoPagoValido reports whether m is a recognized payment method.
func MetodoPagoValido(m string) bool {
	return m == MetodoEfectivo || m == MetodoYape
}

// MovimientoCaja is an immutable monetary event owned by exactly one entrada
// and exactly one turno (the shift active when it was recorded). Movements are
// NEVER updated or deleted — corrections are new offsetting entries.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TurnoID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	EntradaID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	TrabajadorID uuid.UUID       `gorm:"type:uuid;not null"`
	Tipo         TipoMovimiento  `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago   string          `gorm:"type:varchar(20);not null;default:'efectivo'"`
	Descripcion  string
	CreatedAt    time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
