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

type EntradaHandler struct{ svc service.EntradaService }

func NewEntradaHandler(svc service.EntradaService) *EntradaHandler {
	return &EntradaHandler{svc: svc}
}

// claimIDs extracts the worker and shift ids from the JWT. Movement-writing
// endpoints need both; a token without a shift cannot move money.
func claimIDs(c *gin.Context) (trabajadorID, turnoID uuid.UUID, ok bool) {
	claims := middleware.GetClaims(c)
	trabajadorID, err := uuid.Parse(claims.TrabajadorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Token sin trabajador válido"))
		return uuid.Nil, uuid.Nil, false
	}
	turnoID, err = uuid.Parse(claims.TurnoID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("El token no tiene un turno abierto"))
		return uuid.Nil, uuid.Nil, false
	}
	return trabajadorID, turnoID, true
}

// Registrar checks a vehicle in.
func (h *EntradaHandler) Registrar(c *gin.Context) {
	var req dto.RegistrarEntradaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	trabajadorID, turnoID, ok := claimIDs(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarEntrada(c.Request.Context(), trabajadorID, turnoID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CalcularCobro returns the live quote for an open stay.
func (h *EntradaHandler) CalcularCobro(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.CalcularCobro(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Salida settles and closes a stay.
func (h *EntradaHandler) Salida(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	var req dto.RegistrarSalidaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	trabajadorID, turnoID, ok := claimIDs(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarSalida(c.Request.Context(), trabajadorID, turnoID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// EnCochera lists open stays with their live quotes.
func (h *EntradaHandler) EnCochera(c *gin.Context) {
	autos, err := h.svc.AutosEnCochera(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": autos, "total": len(autos)})
}

// Historial lists closed and open stays with filters and pagination.
func (h *EntradaHandler) Historial(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter := dto.HistorialFilter{
		Placa:  c.Query("placa"),
		Estado: c.Query("estado"),
		Desde:  c.Query("desde"),
		Hasta:  c.Query("hasta"),
		Page:   page,
		Limit:  limit,
	}
	resp, err := h.svc.Historial(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
