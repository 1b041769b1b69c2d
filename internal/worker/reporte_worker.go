package worker

// reporte_worker.go
// Builds the shift-close summary and mails it to the configured address.
// Delivery state lives on the turno row, so a crash between send and mark
// results in a duplicate email at worst, never a silently lost report.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cochera/internal/infra"
	"cochera/internal/model"
	"cochera/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// MaxReporteIntentos is the default cap on delivery attempts before the job
// lands in the DLQ for manual follow-up.
const MaxReporteIntentos = 5

// ReporteMailer is the outgoing-mail surface the worker needs. *infra.Mailer
// satisfies it.
type ReporteMailer interface {
	SendReporte(to, subject, body, htmlBody string) error
}

type ReporteWorker struct {
	turnoRepo   repository.TurnoRepository
	movRepo     repository.MovimientoRepository
	mailer      ReporteMailer
	cb          *infra.CircuitBreaker
	rdb         *redis.Client
	destino     string
	maxIntentos int
}

func NewReporteWorker(
	turnoRepo repository.TurnoRepository,
	movRepo repository.MovimientoRepository,
	mailer ReporteMailer,
	cb *infra.CircuitBreaker,
	rdb *redis.Client,
	destino string,
	maxIntentos int,
) *ReporteWorker {
	if maxIntentos <= 0 {
		maxIntentos = MaxReporteIntentos
	}
	return &ReporteWorker{
		turnoRepo:   turnoRepo,
		movRepo:     movRepo,
		mailer:      mailer,
		cb:          cb,
		rdb:         rdb,
		destino:     destino,
		maxIntentos: maxIntentos,
	}
}

// Process handles one report job.
func (w *ReporteWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReporteJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("reporte_worker: invalid payload")
		return
	}
	turnoID, err := uuid.Parse(payload.TurnoID)
	if err != nil {
		log.Error().Str("turno_id", payload.TurnoID).Msg("reporte_worker: malformed turno_id")
		return
	}
	w.Entregar(ctx, turnoID)
}

// Entregar attempts delivery for one closed shift and records the outcome.
func (w *ReporteWorker) Entregar(ctx context.Context, turnoID uuid.UUID) {
	turno, err := w.turnoRepo.FindByID(ctx, turnoID)
	if err != nil {
		log.Error().Err(err).Str("turno_id", turnoID.String()).Msg("reporte_worker: turno not found")
		return
	}
	if turno.Estado != model.TurnoCerrado || turno.ReporteEnviado {
		return
	}
	if w.destino == "" {
		// Delivery disabled; mark as sent so the cron stops picking it up.
		_ = w.turnoRepo.MarcarReporteEnviado(ctx, turnoID)
		return
	}

	cuerpo, err := w.construirCuerpo(ctx, turno)
	if err != nil {
		log.Error().Err(err).Str("turno_id", turnoID.String()).Msg("reporte_worker: failed to build report body")
		w.registrarFallo(ctx, turno, err)
		return
	}

	asunto := fmt.Sprintf("Cierre de turno %s — %s", turno.ID.String()[:8], turno.FechaInicio.Format("02/01/2006"))
	sendErr := w.cb.Execute(func() error {
		return w.mailer.SendReporte(w.destino, asunto, cuerpo, "")
	})
	if sendErr != nil {
		w.registrarFallo(ctx, turno, sendErr)
		return
	}

	if err := w.turnoRepo.MarcarReporteEnviado(ctx, turnoID); err != nil {
		log.Error().Err(err).Str("turno_id", turnoID.String()).Msg("reporte_worker: sent but could not mark as delivered")
		return
	}
	log.Info().Str("turno_id", turnoID.String()).Msg("reporte_worker: report delivered")
}

func (w *ReporteWorker) registrarFallo(ctx context.Context, turno *model.Turno, cause error) {
	intentos := turno.ReporteIntentos + 1
	if intentos >= w.maxIntentos {
		payload, _ := json.Marshal(ReporteJobPayload{TurnoID: turno.ID.String()})
		SendToDLQ(ctx, w.rdb, QueueReportes, "reporte_turno", payload,
			fmt.Sprintf("max retries (%d) exceeded: %s", w.maxIntentos, cause.Error()), intentos)
		// No next retry; the DLQ entry is the handoff to a human.
		_ = w.turnoRepo.RegistrarErrorReporte(ctx, turno.ID, cause.Error(), nil)
		return
	}

	proximo := time.Now().Add(reintentoBackoff(intentos))
	if err := w.turnoRepo.RegistrarErrorReporte(ctx, turno.ID, cause.Error(), &proximo); err != nil {
		log.Error().Err(err).Str("turno_id", turno.ID.String()).Msg("reporte_worker: could not record delivery failure")
		return
	}
	log.Warn().
		Str("turno_id", turno.ID.String()).
		Int("intentos", intentos).
		Time("proximo_reintento", proximo).
		Err(cause).
		Msg("reporte_worker: delivery failed, retry scheduled")
}

// reintentoBackoff doubles per attempt: 1m, 2m, 4m … capped at 30m.
func reintentoBackoff(intentos int) time.Duration {
	d := time.Minute << uint(intentos-1)
	if d > 30*time.Minute {
		return 30 * time.Minute
	}
	return d
}

func (w *ReporteWorker) construirCuerpo(ctx context.Context, turno *model.Turno) (string, error) {
	movs, err := w.movRepo.ListPorTurno(ctx, turno.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	nombre := "-"
	if turno.Trabajador != nil {
		nombre = turno.Trabajador.Nombre
	}
	fmt.Fprintf(&b, "Reporte de cierre de turno\n\n")
	fmt.Fprintf(&b, "Trabajador: %s\n", nombre)
	fmt.Fprintf(&b, "Inicio: %s\n", turno.FechaInicio.Format("02/01/2006 15:04"))
	if turno.FechaFin != nil {
		fmt.Fprintf(&b, "Fin: %s\n", turno.FechaFin.Format("02/01/2006 15:04"))
	}
	b.WriteString("\n")

	if turno.TotalEfectivo != nil {
		fmt.Fprintf(&b, "Efectivo computado: S/ %s\n", turno.TotalEfectivo.StringFixed(2))
	}
	if turno.TotalYape != nil {
		fmt.Fprintf(&b, "Yape computado: S/ %s\n", turno.TotalYape.StringFixed(2))
	}
	if turno.EfectivoDeclarado != nil {
		fmt.Fprintf(&b, "Efectivo declarado: S/ %s\n", turno.EfectivoDeclarado.StringFixed(2))
	}
	if turno.YapeDeclarado != nil {
		fmt.Fprintf(&b, "Yape declarado: S/ %s\n", turno.YapeDeclarado.StringFixed(2))
	}
	if turno.Diferencia != nil {
		fmt.Fprintf(&b, "Diferencia: S/ %s\n", turno.Diferencia.StringFixed(2))
	}
	if turno.Observaciones != nil && *turno.Observaciones != "" {
		fmt.Fprintf(&b, "Observaciones: %s\n", *turno.Observaciones)
	}

	fmt.Fprintf(&b, "\nMovimientos (%d):\n", len(movs))
	for _, m := range movs {
		fmt.Fprintf(&b, "  %s  %-13s  %-8s  S/ %8s  %s\n",
			m.CreatedAt.Format("15:04"), m.Tipo, m.MetodoPago, m.Monto.StringFixed(2), m.Descripcion)
	}
	return b.String(), nil
}
