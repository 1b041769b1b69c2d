package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PenalidadPolicy decides the suggested penalty for a stay at quote time.
// The engine never invents penalties on its own: whatever the policy
// suggests is shown to the operator, who confirms or overrides it at
// check-out.
type PenalidadPolicy interface {
	Sugerida(s SalidaPactada, ref time.Time) decimal.Decimal
}

// SalidaPactada is the agreed exit recorded at check-in, when there was one.
type SalidaPactada struct {
	FechaHasta         *time.Time
	HoraSalidaEsperada *string // "HH:MM"
	PrecioDia          decimal.Decimal
}

// SinPenalidad suggests nothing. Used when no policy is configured.
type SinPenalidad struct{}

func (SinPenalidad) Sugerida(SalidaPactada, time.Time) decimal.Decimal {
	return decimal.Zero
}

// PorTolerancia bills overdue hours at precio_dia/24 once the agreed exit
// plus a grace window has passed. Stays without an agreed exit never accrue
// a suggested penalty.
type PorTolerancia struct {
	Tolerancia time.Duration
}

func (p PorTolerancia) Sugerida(s SalidaPactada, ref time.Time) decimal.Decimal {
	if s.FechaHasta == nil || s.HoraSalidaEsperada == nil {
		return decimal.Zero
	}
	hm, err := time.Parse("15:04", *s.HoraSalidaEsperada)
	if err != nil {
		return decimal.Zero
	}

	f := *s.FechaHasta
	salida := time.Date(f.Year(), f.Month(), f.Day(), hm.Hour(), hm.Minute(), 0, 0, f.Location())
	limite := salida.Add(p.Tolerancia)
	if !ref.After(limite) {
		return decimal.Zero
	}

	horasExceso := decimal.NewFromFloat(ref.Sub(limite).Hours())
	precioHora := s.PrecioDia.Div(decimal.NewFromInt(24))
	return horasExceso.Mul(precioHora).Round(2)
}
