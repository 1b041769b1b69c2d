package worker

// retry_cron.go
// Background goroutine that periodically re-attempts delivery of shift-close
// reports stuck with reporte_enviado=false and a proximo_reintento_at in the
// past. Uses the circuit breaker to avoid hammering a downed SMTP relay.

import (
	"context"
	"time"

	"cochera/internal/infra"
	"cochera/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	TurnoRepo repository.TurnoRepository
	Worker    *ReporteWorker
	CB        *infra.CircuitBreaker
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries shifts with an overdue report, and re-attempts delivery through
// the circuit breaker. It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed relay
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	turnos, err := cfg.TurnoRepo.PendientesReporte(ctx, time.Now(), retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending reports")
		return
	}
	if len(turnos) == 0 {
		return
	}

	log.Info().Int("count", len(turnos)).Msg("retry_cron: re-attempting pending reports")

	for i := range turnos {
		// Check CB state before each send — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}
		cfg.Worker.Entregar(ctx, turnos[i].ID)
	}
}
