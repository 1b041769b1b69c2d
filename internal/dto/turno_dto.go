package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CierreTurnoRequest struct {
	EfectivoDeclarado decimal.Decimal `json:"efectivo_declarado" validate:"min=0"`
	YapeDeclarado     decimal.Decimal `json:"yape_declarado"     validate:"min=0"`
	Observaciones     string          `json:"observaciones"`
}

type TurnoFilter struct {
	TrabajadorID string
	Estado       string
	Desde        string
	Hasta        string
	Page         int
	Limit        int
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TotalesPorMetodo struct {
	Efectivo decimal.Decimal `json:"efectivo"`
	Yape     decimal.Decimal `json:"yape"`
	Total    decimal.Decimal `json:"total"`
}

// CierrePreview compares computed ledger totals against the worker's
// declaration. Sign convention: positive = surplus, negative = shortfall.
type CierrePreview struct {
	TurnoID           string           `json:"turno_id"`
	Computado         TotalesPorMetodo `json:"computado"`
	EfectivoDeclarado decimal.Decimal  `json:"efectivo_declarado"`
	YapeDeclarado     decimal.Decimal  `json:"yape_declarado"`
	DifEfectivo       decimal.Decimal  `json:"dif_efectivo"`
	DifYape           decimal.Decimal  `json:"dif_yape"`
	Diferencia        decimal.Decimal  `json:"diferencia"`
}

type CierreTurnoResponse struct {
	CierrePreview
	FechaInicio string `json:"fecha_inicio"`
	FechaFin    string `json:"fecha_fin"`
	Estado      string `json:"estado"`
}

type TurnoResumen struct {
	ID                string           `json:"id"`
	Trabajador        string           `json:"trabajador,omitempty"`
	FechaInicio       string           `json:"fecha_inicio"`
	FechaFin          *string          `json:"fecha_fin,omitempty"`
	Estado            string           `json:"estado"`
	TotalEfectivo     *decimal.Decimal `json:"total_efectivo,omitempty"`
	TotalYape         *decimal.Decimal `json:"total_yape,omitempty"`
	EfectivoDeclarado *decimal.Decimal `json:"efectivo_declarado,omitempty"`
	YapeDeclarado     *decimal.Decimal `json:"yape_declarado,omitempty"`
	Diferencia        *decimal.Decimal `json:"diferencia,omitempty"`
	Observaciones     *string          `json:"observaciones,omitempty"`
	NumMovimientos    int64            `json:"num_movimientos"`
}

type TurnoListResponse struct {
	Data  []TurnoResumen `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type MovimientoResponse struct {
	ID          string          `json:"id"`
	EntradaID   string          `json:"entrada_id"`
	Tipo        string          `json:"tipo"`
	Monto       decimal.Decimal `json:"monto"`
	MetodoPago  string          `json:"metodo_pago"`
	Descripcion string          `json:"descripcion"`
	Fecha       string          `json:"fecha"`
}

// ReporteTurno is the live per-shift report: running totals by method and by
// movement kind, all derived on demand from the ledger.
type ReporteTurno struct {
	TurnoID          string               `json:"turno_id"`
	Trabajador       string               `json:"trabajador"`
	FechaInicio      string               `json:"fecha_inicio"`
	Estado           string               `json:"estado"`
	Totales          TotalesPorMetodo     `json:"totales"`
	TotalAdelantos   decimal.Decimal      `json:"total_adelantos"`
	TotalCobros      decimal.Decimal      `json:"total_cobros"`
	TotalPenalidades decimal.Decimal      `json:"total_penalidades"`
	AutosIngresados  int64                `json:"autos_ingresados"`
	AutosSalieron    int64                `json:"autos_salieron"`
	Movimientos      []MovimientoResponse `json:"movimientos"`
}
