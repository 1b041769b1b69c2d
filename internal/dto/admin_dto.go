package dto

type ActualizarConfiguracionRequest struct {
	Valores map[string]string `json:"valores" validate:"required,min=1"`
}

type ConfiguracionResponse struct {
	Clave       string `json:"clave"`
	Valor       string `json:"valor"`
	Descripcion string `json:"descripcion,omitempty"`
}

type OcupacionResponse struct {
	Ocupados    int64   `json:"ocupados"`
	Disponibles int64   `json:"disponibles"`
	Capacidad   int     `json:"capacidad"`
	Porcentaje  float64 `json:"porcentaje"`
}

// Alerta niveles: "warning" | "danger"
type Alerta struct {
	Tipo    string `json:"tipo"`
	Nivel   string `json:"nivel"`
	Titulo  string `json:"titulo"`
	Mensaje string `json:"mensaje"`
	Placa   string `json:"placa,omitempty"`
}

type AlertasResponse struct {
	Alertas []Alerta `json:"alertas"`
	Total   int      `json:"total"`
}
