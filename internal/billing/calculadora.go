// Package billing implements the pure pricing rules for a parking stay.
// Everything here is side-effect free: the lifecycle service feeds it the
// session parameters and a reference time, and persists whatever comes back.
package billing

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEntradaInvalida marks a calculator precondition violation (negative
// amounts, non-positive rate, days < 1). It signals a caller defect rather
// than bad user input, so services log it before surfacing it.
var ErrEntradaInvalida = errors.New("parámetros de cobro inválidos")

// DiasTranscurridos returns the billable whole days between entrada and ref:
// the ceiling of the elapsed time in days, clamped to a minimum of 1. A
// same-instant (or earlier) reference still bills one day.
func DiasTranscurridos(entrada, ref time.Time) int {
	dias := int(math.Ceil(ref.Sub(entrada).Hours() / 24))
	if dias < 1 {
		return 1
	}
	return dias
}

// MontoDias prices dias whole days at precioDia, rounded to currency precision.
func MontoDias(dias int, precioDia decimal.Decimal) (decimal.Decimal, error) {
	if dias < 1 || !precioDia.IsPositive() {
		return decimal.Zero, ErrEntradaInvalida
	}
	return precioDia.Mul(decimal.NewFromInt(int64(dias))).Round(2), nil
}

// Parametros describes the session under quote plus the caller-supplied
// adjustments. Penalidad and Descuento default to zero; the engine only
// combines them, it never decides them (see PenalidadPolicy).
type Parametros struct {
	FechaEntrada time.Time
	DiasPactados int
	PrecioDia    decimal.Decimal
	Adelanto     decimal.Decimal
	PagoCompleto bool
	Penalidad    decimal.Decimal
	Descuento    decimal.Decimal
}

// Cotizacion is the full breakdown of what a session owes at an instant.
type Cotizacion struct {
	DiasPactados   int             `json:"dias_pactados"`
	DiasReales     int             `json:"dias_reales"`
	MontoDias      decimal.Decimal `json:"monto_dias"`
	Adelanto       decimal.Decimal `json:"adelanto"`
	YaPagoCompleto bool            `json:"ya_pago_completo"`
	Penalidad      decimal.Decimal `json:"penalidad"`
	Descuento      decimal.Decimal `json:"descuento"`
	MontoTotal     decimal.Decimal `json:"monto_total"`
	ACobrar        decimal.Decimal `json:"a_cobrar"`
	ExcedeTiempo   bool            `json:"excede_tiempo"`
}

// Cotizar computes the settlement breakdown for p at time ref.
//
// For a fully prepaid stay the day charge was covered at check-in, so only
// the penalty/discount pair moves money. Otherwise the charge is
// monto_dias + penalidad - descuento - adelanto. Either way the result is
// clamped at zero: a session can never owe negative money. Staying past
// dias_pactados is not an error — it is surfaced as ExcedeTiempo and billed
// at the real day count.
func Cotizar(p Parametros, ref time.Time) (*Cotizacion, error) {
	if p.DiasPactados < 1 || !p.PrecioDia.IsPositive() {
		return nil, ErrEntradaInvalida
	}
	if p.Adelanto.IsNegative() || p.Penalidad.IsNegative() || p.Descuento.IsNegative() {
		return nil, ErrEntradaInvalida
	}

	diasReales := DiasTranscurridos(p.FechaEntrada, ref)
	montoDias, err := MontoDias(diasReales, p.PrecioDia)
	if err != nil {
		return nil, err
	}

	montoTotal := montoDias.Add(p.Penalidad).Sub(p.Descuento).Round(2)

	var aCobrar decimal.Decimal
	if p.PagoCompleto {
		aCobrar = p.Penalidad.Sub(p.Descuento)
	} else {
		aCobrar = montoTotal.Sub(p.Adelanto)
	}
	if aCobrar.IsNegative() {
		aCobrar = decimal.Zero
	}

	return &Cotizacion{
		DiasPactados:   p.DiasPactados,
		DiasReales:     diasReales,
		MontoDias:      montoDias,
		Adelanto:       p.Adelanto,
		YaPagoCompleto: p.PagoCompleto,
		Penalidad:      p.Penalidad,
		Descuento:      p.Descuento,
		MontoTotal:     montoTotal,
		ACobrar:        aCobrar.Round(2),
		ExcedeTiempo:   diasReales > p.DiasPactados,
	}, nil
}
