package handler

import (
	"net/http"
	"strconv"

	"cochera/internal/apierror"
	"cochera/internal/dto"
	"cochera/internal/model"
	"cochera/internal/repository"

	"github.com/gin-gonic/gin"
)

// AdminHandler covers the runtime configuration the admin screens edit:
// grace minutes, garage capacity and the default daily rate.
type AdminHandler struct {
	configRepo repository.ConfiguracionRepository
}

func NewAdminHandler(configRepo repository.ConfiguracionRepository) *AdminHandler {
	return &AdminHandler{configRepo: configRepo}
}

func (h *AdminHandler) ListarConfiguracion(c *gin.Context) {
	items, err := h.configRepo.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.ConfiguracionResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, dto.ConfiguracionResponse{
			Clave:       it.Clave,
			Valor:       it.Valor,
			Descripcion: it.Descripcion,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ActualizarConfiguracion accepts a key/value batch. Numeric keys are checked
// before writing so a typo cannot break the billing defaults.
func (h *AdminHandler) ActualizarConfiguracion(c *gin.Context) {
	var req dto.ActualizarConfiguracionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	for clave, valor := range req.Valores {
		switch clave {
		case model.ClaveToleranciaMinutos, model.ClaveCapacidadMaxima:
			if n, err := strconv.Atoi(valor); err != nil || n < 0 {
				c.JSON(http.StatusUnprocessableEntity, apierror.New(clave+" debe ser un entero no negativo"))
				return
			}
		case model.ClavePrecioDefault:
			if f, err := strconv.ParseFloat(valor, 64); err != nil || f <= 0 {
				c.JSON(http.StatusUnprocessableEntity, apierror.New(clave+" debe ser un número mayor a 0"))
				return
			}
		default:
			c.JSON(http.StatusUnprocessableEntity, apierror.New("clave de configuración desconocida: "+clave))
			return
		}
	}
	for clave, valor := range req.Valores {
		if err := h.configRepo.Set(c.Request.Context(), clave, valor); err != nil {
			respondError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}
