package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegistrarEntradaRequest struct {
	Placa   string `json:"placa"   validate:"required,min=2"`
	Cliente string `json:"cliente" validate:"required,min=2"`
	Celular string `json:"celular"`
	// Entry instant; empty means "now" per the service clock.
	FechaEntrada       string `json:"fecha_entrada"        validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	FechaHasta         string `json:"fecha_hasta"          validate:"omitempty,datetime=2006-01-02"`
	HoraSalidaEsperada string `json:"hora_salida_esperada" validate:"omitempty,datetime=15:04"`

	Dias     int             `json:"dias"     validate:"required,min=1"`
	Precio   decimal.Decimal `json:"precio"   validate:"required,gt=0"`
	Adelanto decimal.Decimal `json:"adelanto" validate:"min=0"`
	// Pagado marks a full prepayment: the advance is forced to dias * precio
	// regardless of the adelanto field.
	Pagado        bool   `json:"pagado"`
	MetodoPago    string `json:"metodo_pago" validate:"omitempty,oneof=efectivo yape"`
	DejoLlave     bool   `json:"dejo_llave"`
	Observaciones string `json:"observaciones"`
}

type RegistrarSalidaRequest struct {
	// DiasReales is advisory only — it lets the engine warn when the
	// operator's screen went stale. The billed figure is always recomputed
	// server-side.
	DiasReales    int             `json:"dias_reales"  validate:"min=0"`
	Penalidad     decimal.Decimal `json:"penalidad"    validate:"min=0"`
	Descuento     decimal.Decimal `json:"descuento"    validate:"min=0"`
	MetodoPago    string          `json:"metodo_pago"  validate:"omitempty,oneof=efectivo yape"`
	Observaciones string          `json:"observaciones"`
}

type HistorialFilter struct {
	Placa  string
	Estado string
	Desde  string
	Hasta  string
	Page   int
	Limit  int
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type EntradaResponse struct {
	ID                 string          `json:"id"`
	Placa              string          `json:"placa"`
	Cliente            string          `json:"cliente"`
	Celular            *string         `json:"celular,omitempty"`
	FechaEntrada       string          `json:"fecha_entrada"`
	FechaHasta         *string         `json:"fecha_hasta,omitempty"`
	HoraSalidaEsperada *string         `json:"hora_salida_esperada,omitempty"`
	DiasPactados       int             `json:"dias_pactados"`
	PrecioDia          decimal.Decimal `json:"precio_dia"`
	Adelanto           decimal.Decimal `json:"adelanto"`
	PagoCompleto       bool            `json:"pago_completo"`
	DejoLlave          bool            `json:"dejo_llave"`
	Estado             string          `json:"estado"`
	Observaciones      string          `json:"observaciones,omitempty"`
}

// AutoEnCochera is one open stay with its live quote folded in.
type AutoEnCochera struct {
	EntradaResponse
	DiasReales         int             `json:"dias_reales"`
	PenalidadSugerida  decimal.Decimal `json:"penalidad_sugerida"`
	Pendiente          decimal.Decimal `json:"pendiente"`
	ExcedeTiempo       bool            `json:"excede_tiempo"`
	TrabajadorEntrada  string          `json:"trabajador_entrada,omitempty"`
}

type CobroResponse struct {
	ID                string          `json:"id"`
	Placa             string          `json:"placa"`
	Cliente           string          `json:"cliente"`
	DiasPactados      int             `json:"dias_pactados"`
	DiasReales        int             `json:"dias_reales"`
	PrecioDia         decimal.Decimal `json:"precio_dia"`
	MontoDias         decimal.Decimal `json:"monto_dias"`
	PenalidadSugerida decimal.Decimal `json:"penalidad_sugerida"`
	MontoTotal        decimal.Decimal `json:"monto_total"`
	Adelanto          decimal.Decimal `json:"adelanto"`
	ACobrar           decimal.Decimal `json:"a_cobrar"`
	YaPagoCompleto    bool            `json:"ya_pago_completo"`
	ExcedeTiempo      bool            `json:"excede_tiempo"`
	DejoLlave         bool            `json:"dejo_llave"`
}

type SalidaResponse struct {
	ID             string          `json:"id"`
	DiasReales     int             `json:"dias_reales"`
	MontoTotal     decimal.Decimal `json:"monto_total"`
	Adelanto       decimal.Decimal `json:"adelanto"`
	Penalidad      decimal.Decimal `json:"penalidad"`
	Descuento      decimal.Decimal `json:"descuento"`
	MontoCobrado   decimal.Decimal `json:"monto_cobrado"`
	YaPagoCompleto bool            `json:"ya_pago_completo"`
	// DiasDesactualizados is set when the client sent a dias_reales that no
	// longer matches the server-side figure (stale quote on screen).
	DiasDesactualizados bool `json:"dias_desactualizados,omitempty"`
}

type HistorialResponse struct {
	Data  []EntradaResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
