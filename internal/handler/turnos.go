package handler

import (
	"net/http"
	"strconv"

	"cochera/internal/apierror"
	"cochera/internal/dto"
	"cochera/internal/middleware"
	"cochera/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TurnoHandler struct{ svc service.TurnoService }

func NewTurnoHandler(svc service.TurnoService) *TurnoHandler { return &TurnoHandler{svc: svc} }

// Actual returns the authenticated worker's open shift.
func (h *TurnoHandler) Actual(c *gin.Context) {
	claims := middleware.GetClaims(c)
	turnoID, err := uuid.Parse(claims.TurnoID)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("El token no tiene un turno abierto"))
		return
	}
	resp, err := h.svc.Detalle(c.Request.Context(), turnoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Preview runs the close math without changing state so the worker sees the
// projected difference before committing.
func (h *TurnoHandler) Preview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.CierreTurnoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.PreviewCierre(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar closes the shift against the worker's declared amounts.
func (h *TurnoHandler) Cerrar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.CierreTurnoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reporte returns the live per-shift report derived from the ledger.
func (h *TurnoHandler) Reporte(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.Reporte(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial lists shifts, filterable by worker, state and date range.
func (h *TurnoHandler) Historial(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter := dto.TurnoFilter{
		TrabajadorID: c.Query("trabajador_id"),
		Estado:       c.Query("estado"),
		Desde:        c.Query("desde"),
		Hasta:        c.Query("hasta"),
		Page:         page,
		Limit:        limit,
	}
	resp, err := h.svc.Historial(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Detalle returns a single shift with its reconciliation figures.
func (h *TurnoHandler) Detalle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.Detalle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
