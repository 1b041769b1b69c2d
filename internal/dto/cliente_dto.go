package dto

import "github.com/shopspring/decimal"

type CrearClienteRequest struct {
	Placa     string           `json:"placa"   validate:"required,min=2"`
	Nombre    string           `json:"nombre"  validate:"required,min=2"`
	Celular   string           `json:"celular"`
	PrecioDia *decimal.Decimal `json:"precio_dia" validate:"omitempty,gt=0"`
}

type ActualizarClienteRequest struct {
	Nombre    string           `json:"nombre"`
	Celular   *string          `json:"celular"`
	PrecioDia *decimal.Decimal `json:"precio_dia" validate:"omitempty,gt=0"`
}

type ClienteFilter struct {
	Busqueda string
	Page     int
	Limit    int
}

type ClienteResponse struct {
	ID        string           `json:"id"`
	Placa     string           `json:"placa"`
	Nombre    string           `json:"nombre"`
	Celular   *string          `json:"celular,omitempty"`
	PrecioDia *decimal.Decimal `json:"precio_dia,omitempty"`
}

type ClienteEstadisticas struct {
	TotalVisitas int64           `json:"total_visitas"`
	TotalGastado decimal.Decimal `json:"total_gastado"`
	PromedioDias float64         `json:"promedio_dias"`
}

type ClienteHistorialResponse struct {
	Cliente       ClienteResponse     `json:"cliente"`
	Estadisticas  ClienteEstadisticas `json:"estadisticas"`
	Visitas       []EntradaResponse   `json:"visitas"`
}

type ClienteListResponse struct {
	Data  []ClienteResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
