package service

import (
	"context"
	"fmt"
	"time"

	"cochera/internal/dto"
	"cochera/internal/model"
	"cochera/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReporteEnqueuer decouples shift close from the async report delivery.
// Implementations must be safe to call after the closing transaction commits.
type ReporteEnqueuer interface {
	EnqueueReporteTurno(ctx context.Context, turnoID uuid.UUID) error
}

// TurnoService manages shift sessions and their blind-count reconciliation.
type TurnoService interface {
	AbrirParaTrabajador(ctx context.Context, trabajadorID uuid.UUID) (*model.Turno, error)
	PreviewCierre(ctx context.Context, turnoID uuid.UUID, req dto.CierreTurnoRequest) (*dto.CierrePreview, error)
	Cerrar(ctx context.Context, turnoID uuid.UUID, req dto.CierreTurnoRequest) (*dto.CierreTurnoResponse, error)
	Reporte(ctx context.Context, turnoID uuid.UUID) (*dto.ReporteTurno, error)
	Historial(ctx context.Context, filter dto.TurnoFilter) (*dto.TurnoListResponse, error)
	Detalle(ctx context.Context, turnoID uuid.UUID) (*dto.TurnoResumen, error)
}

type turnoService struct {
	repo     repository.TurnoRepository
	movRepo  repository.MovimientoRepository
	enqueuer ReporteEnqueuer
	reloj    func() time.Time
}

// NewTurnoService wires the shift manager. enqueuer may be nil when report
// delivery is disabled; reloj nil means the real clock.
func NewTurnoService(
	repo repository.TurnoRepository,
	movRepo repository.MovimientoRepository,
	enqueuer ReporteEnqueuer,
	reloj func() time.Time,
) TurnoService {
	if reloj == nil {
		reloj = time.Now
	}
	return &turnoService{repo: repo, movRepo: movRepo, enqueuer: enqueuer, reloj: reloj}
}

// AbrirParaTrabajador returns the worker's open shift, creating one when none
// exists. A worker holds at most one open shift at a time, so the login flow
// calls this unconditionally.
func (s *turnoService) AbrirParaTrabajador(ctx context.Context, trabajadorID uuid.UUID) (*model.Turno, error) {
	if existente, err := s.repo.FindAbiertoPorTrabajador(ctx, trabajadorID); err == nil && existente != nil {
		return existente, nil
	}
	turno := &model.Turno{
		TrabajadorID: trabajadorID,
		FechaInicio:  s.reloj(),
		Estado:       model.TurnoAbierto,
	}
	if err := s.repo.Create(ctx, turno); err != nil {
		return nil, err
	}
	log.Info().Str("turno_id", turno.ID.String()).Str("trabajador_id", trabajadorID.String()).Msg("turno abierto")
	return turno, nil
}

// preview computes the reconciliation figures without touching state.
func preview(turnoID uuid.UUID, computado dto.TotalesPorMetodo, req dto.CierreTurnoRequest) dto.CierrePreview {
	difEfectivo := req.EfectivoDeclarado.Sub(computado.Efectivo).Round(2)
	difYape := req.YapeDeclarado.Sub(computado.Yape).Round(2)
	return dto.CierrePreview{
		TurnoID:           turnoID.String(),
		Computado:         computado,
		EfectivoDeclarado: req.EfectivoDeclarado.Round(2),
		YapeDeclarado:     req.YapeDeclarado.Round(2),
		DifEfectivo:       difEfectivo,
		DifYape:           difYape,
		Diferencia:        difEfectivo.Add(difYape).Round(2),
	}
}

func validarDeclarado(req dto.CierreTurnoRequest) error {
	if req.EfectivoDeclarado.IsNegative() || req.YapeDeclarado.IsNegative() {
		return fmt.Errorf("%w: los montos declarados no pueden ser negativos", ErrValidacion)
	}
	return nil
}

// PreviewCierre is the dry run of a close: same math, no state change, so the
// worker can see the projected difference before committing to it.
func (s *turnoService) PreviewCierre(ctx context.Context, turnoID uuid.UUID, req dto.CierreTurnoRequest) (*dto.CierrePreview, error) {
	if err := validarDeclarado(req); err != nil {
		return nil, err
	}
	turno, err := s.repo.FindByID(ctx, turnoID)
	if err != nil {
		return nil, ErrTurnoNoEncontrado
	}
	if turno.Estado != model.TurnoAbierto {
		return nil, ErrTurnoCerrado
	}
	computado, err := s.movRepo.SumPorMetodo(ctx, turnoID)
	if err != nil {
		return nil, err
	}
	p := preview(turnoID, computado, req)
	return &p, nil
}

// Cerrar closes the shift. The closing transaction takes the turno row
// exclusively before reading the ledger: movement writers holding the row
// shared commit first and are summed, and any writer arriving afterwards
// sees the row cerrado. The frozen totals therefore always equal the sum of
// the movements attached to the shift. The state flip itself stays a
// compare-and-swap, so a second close of the same shift gets ErrTurnoCerrado.
func (s *turnoService) Cerrar(ctx context.Context, turnoID uuid.UUID, req dto.CierreTurnoRequest) (*dto.CierreTurnoResponse, error) {
	if err := validarDeclarado(req); err != nil {
		return nil, err
	}
	turno, err := s.repo.FindByID(ctx, turnoID)
	if err != nil {
		return nil, ErrTurnoNoEncontrado
	}
	if turno.Estado != model.TurnoAbierto {
		return nil, ErrTurnoCerrado
	}

	ahora := s.reloj()
	var p dto.CierrePreview

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		bloqueado, err := s.repo.LockCierreTx(tx, turnoID)
		if err != nil {
			return ErrTurnoNoEncontrado
		}
		if bloqueado.Estado != model.TurnoAbierto {
			return ErrTurnoCerrado
		}

		computado, err := s.movRepo.SumPorMetodoTx(tx, turnoID)
		if err != nil {
			return err
		}
		p = preview(turnoID, computado, req)

		var obs *string
		if req.Observaciones != "" {
			o := req.Observaciones
			obs = &o
		}
		cierre := &model.Turno{
			ID:                 turnoID,
			FechaFin:           &ahora,
			TotalEfectivo:      &computado.Efectivo,
			TotalYape:          &computado.Yape,
			EfectivoDeclarado:  &p.EfectivoDeclarado,
			YapeDeclarado:      &p.YapeDeclarado,
			DifEfectivo:        &p.DifEfectivo,
			DifYape:            &p.DifYape,
			Diferencia:         &p.Diferencia,
			Observaciones:      obs,
			ProximoReintentoAt: &ahora,
		}
		ok, err := s.repo.CerrarTx(tx, cierre)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTurnoCerrado
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if !p.Diferencia.IsZero() {
		log.Warn().
			Str("turno_id", turnoID.String()).
			Str("diferencia", p.Diferencia.StringFixed(2)).
			Msg("turno cerrado con diferencia")
	}

	// Report delivery is best effort: a queue failure never unwinds the close,
	// the retry cron picks the shift up later.
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueReporteTurno(ctx, turnoID); err != nil {
			log.Error().Err(err).Str("turno_id", turnoID.String()).Msg("no se pudo encolar el reporte de cierre")
		}
	}

	return &dto.CierreTurnoResponse{
		CierrePreview: p,
		FechaInicio:   turno.FechaInicio.Format(time.RFC3339),
		FechaFin:      ahora.Format(time.RFC3339),
		Estado:        model.TurnoCerrado,
	}, nil
}

// Reporte builds the live shift report straight from the ledger.
func (s *turnoService) Reporte(ctx context.Context, turnoID uuid.UUID) (*dto.ReporteTurno, error) {
	turno, err := s.repo.FindByID(ctx, turnoID)
	if err != nil {
		return nil, ErrTurnoNoEncontrado
	}

	totales, err := s.movRepo.SumPorMetodo(ctx, turnoID)
	if err != nil {
		return nil, err
	}
	porTipo, err := s.movRepo.SumPorTipo(ctx, turnoID)
	if err != nil {
		return nil, err
	}
	movs, err := s.movRepo.ListPorTurno(ctx, turnoID)
	if err != nil {
		return nil, err
	}

	ingresados, err := s.movRepo.CountPorTipo(ctx, turnoID, model.MovAdelanto)
	if err != nil {
		return nil, err
	}
	prepagados, err := s.movRepo.CountPorTipo(ctx, turnoID, model.MovPagoCompleto)
	if err != nil {
		return nil, err
	}
	salieron, err := s.movRepo.CountPorTipo(ctx, turnoID, model.MovCobroSalida)
	if err != nil {
		return nil, err
	}

	nombre := ""
	if turno.Trabajador != nil {
		nombre = turno.Trabajador.Nombre
	}

	reporte := &dto.ReporteTurno{
		TurnoID:          turno.ID.String(),
		Trabajador:       nombre,
		FechaInicio:      turno.FechaInicio.Format(time.RFC3339),
		Estado:           turno.Estado,
		Totales:          totales,
		TotalAdelantos:   porTipo[model.MovAdelanto].Add(porTipo[model.MovPagoCompleto]),
		TotalCobros:      porTipo[model.MovCobroSalida],
		TotalPenalidades: porTipo[model.MovPenalidad],
		AutosIngresados:  ingresados + prepagados,
		AutosSalieron:    salieron,
		Movimientos:      make([]dto.MovimientoResponse, 0, len(movs)),
	}
	for _, m := range movs {
		reporte.Movimientos = append(reporte.Movimientos, dto.MovimientoResponse{
			ID:          m.ID.String(),
			EntradaID:   m.EntradaID.String(),
			Tipo:        string(m.Tipo),
			Monto:       m.Monto,
			MetodoPago:  m.MetodoPago,
			Descripcion: m.Descripcion,
			Fecha:       m.CreatedAt.Format(time.RFC3339),
		})
	}
	return reporte, nil
}

// Historial lists shifts, newest first, with their count of movements.
func (s *turnoService) Historial(ctx context.Context, filter dto.TurnoFilter) (*dto.TurnoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	turnos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TurnoResumen, 0, len(turnos))
	for _, t := range turnos {
		data = append(data, s.resumen(ctx, &t))
	}
	return &dto.TurnoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *turnoService) Detalle(ctx context.Context, turnoID uuid.UUID) (*dto.TurnoResumen, error) {
	turno, err := s.repo.FindByID(ctx, turnoID)
	if err != nil {
		return nil, ErrTurnoNoEncontrado
	}
	r := s.resumen(ctx, turno)
	return &r, nil
}

func (s *turnoService) resumen(ctx context.Context, t *model.Turno) dto.TurnoResumen {
	nombre := ""
	if t.Trabajador != nil {
		nombre = t.Trabajador.Nombre
	}
	r := dto.TurnoResumen{
		ID:                t.ID.String(),
		Trabajador:        nombre,
		FechaInicio:       t.FechaInicio.Format(time.RFC3339),
		Estado:            t.Estado,
		TotalEfectivo:     t.TotalEfectivo,
		TotalYape:         t.TotalYape,
		EfectivoDeclarado: t.EfectivoDeclarado,
		YapeDeclarado:     t.YapeDeclarado,
		Diferencia:        t.Diferencia,
		Observaciones:     t.Observaciones,
	}
	if t.FechaFin != nil {
		f := t.FechaFin.Format(time.RFC3339)
		r.FechaFin = &f
	}
	if movs, err := s.movRepo.ListPorTurno(ctx, t.ID); err == nil {
		r.NumMovimientos = int64(len(movs))
	}
	return r
}
