package model

import (
	"github.com/google/uuid"
)

// Runtime-tunable business parameters, stored as key/value rows so admins can
// change them without a redeploy.
const (
	ClaveToleranciaMinutos = "tolerancia_minutos" // grace minutes before penalty
	ClaveCapacidadMaxima   = "capacidad_maxima"   // facility capacity
	ClavePrecioDefault     = "precio_default"     // suggested daily rate
)

type Configuracion struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Clave       string    `gorm:"uniqueIndex;not null"`
	Valor       string    `gorm:"not null"`
	Descripcion string
}

func (Configuracion) TableName() string { return "configuraciones" }
