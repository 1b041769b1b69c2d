package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cochera/internal/billing"
	"cochera/internal/dto"
	"cochera/internal/model"
	"cochera/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const ocupacionCacheTTL = 30 * time.Second

const ocupacionCacheKey = "cochera:ocupacion"

// OcupacionHandler serves the occupancy gauge and the operational alerts the
// dashboard polls. The occupancy figure is cached briefly in Redis since every
// connected screen polls it.
type OcupacionHandler struct {
	entradaRepo repository.EntradaRepository
	configRepo  repository.ConfiguracionRepository
	rdb         *redis.Client
}

func NewOcupacionHandler(entradaRepo repository.EntradaRepository, configRepo repository.ConfiguracionRepository, rdb *redis.Client) *OcupacionHandler {
	return &OcupacionHandler{entradaRepo: entradaRepo, configRepo: configRepo, rdb: rdb}
}

// Ocupacion returns how full the garage is against the configured capacity.
func (h *OcupacionHandler) Ocupacion(c *gin.Context) {
	ctx := c.Request.Context()

	if h.rdb != nil {
		if cached, err := h.rdb.Get(ctx, ocupacionCacheKey).Bytes(); err == nil {
			var resp dto.OcupacionResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				c.JSON(http.StatusOK, resp)
				return
			}
		}
	}

	ocupados, err := h.entradaRepo.CountAbiertas(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	capacidad := h.configRepo.GetInt(ctx, model.ClaveCapacidadMaxima, 50)

	disponibles := int64(capacidad) - ocupados
	if disponibles < 0 {
		disponibles = 0
	}
	porcentaje := 0.0
	if capacidad > 0 {
		porcentaje = float64(ocupados) / float64(capacidad) * 100
	}
	resp := dto.OcupacionResponse{
		Ocupados:    ocupados,
		Disponibles: disponibles,
		Capacidad:   capacidad,
		Porcentaje:  porcentaje,
	}

	if h.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			_ = h.rdb.Set(context.Background(), ocupacionCacheKey, b, ocupacionCacheTTL).Err()
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Alertas flags overstayed vehicles and a near-full garage. Computed on
// demand, never cached: an operator acting on a stale alert is worse than the
// extra query.
func (h *OcupacionHandler) Alertas(c *gin.Context) {
	ctx := c.Request.Context()
	ahora := time.Now()

	alertas := []dto.Alerta{}

	entradas, err := h.entradaRepo.ListAbiertas(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, e := range entradas {
		dias := billing.DiasTranscurridos(e.FechaEntrada, ahora)
		if dias <= e.DiasPactados {
			continue
		}
		exceso := dias - e.DiasPactados
		nivel := "warning"
		if exceso >= 3 {
			nivel = "danger"
		}
		alertas = append(alertas, dto.Alerta{
			Tipo:    "tiempo_excedido",
			Nivel:   nivel,
			Titulo:  "Tiempo excedido",
			Mensaje: fmt.Sprintf("%s lleva %d día(s) sobre lo pactado", e.Placa, exceso),
			Placa:   e.Placa,
		})
	}

	capacidad := h.configRepo.GetInt(ctx, model.ClaveCapacidadMaxima, 50)
	if capacidad > 0 && len(entradas) >= capacidad*9/10 {
		nivel := "warning"
		if len(entradas) >= capacidad {
			nivel = "danger"
		}
		alertas = append(alertas, dto.Alerta{
			Tipo:    "capacidad",
			Nivel:   nivel,
			Titulo:  "Cochera casi llena",
			Mensaje: fmt.Sprintf("%d de %d espacios ocupados", len(entradas), capacidad),
		})
	}

	c.JSON(http.StatusOK, dto.AlertasResponse{Alertas: alertas, Total: len(alertas)})
}
