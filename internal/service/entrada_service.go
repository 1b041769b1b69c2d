package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cochera/internal/billing"
	"cochera/internal/dto"
	"cochera/internal/model"
	"cochera/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntradaService owns the lifecycle of a vehicle's stay: check-in, live
// quote, and check-out. It is the only writer of entradas and the only
// producer of ledger movements tied to them.
type EntradaService interface {
	RegistrarEntrada(ctx context.Context, trabajadorID, turnoID uuid.UUID, req dto.RegistrarEntradaRequest) (*dto.EntradaResponse, error)
	CalcularCobro(ctx context.Context, entradaID uuid.UUID) (*dto.CobroResponse, error)
	RegistrarSalida(ctx context.Context, trabajadorID, turnoID, entradaID uuid.UUID, req dto.RegistrarSalidaRequest) (*dto.SalidaResponse, error)
	AutosEnCochera(ctx context.Context) ([]dto.AutoEnCochera, error)
	Historial(ctx context.Context, filter dto.HistorialFilter) (*dto.HistorialResponse, error)
}

type entradaService struct {
	repo        repository.EntradaRepository
	clienteRepo repository.ClienteRepository
	movRepo     repository.MovimientoRepository
	turnoRepo   repository.TurnoRepository
	configRepo  repository.ConfiguracionRepository
	reloj       func() time.Time
}

// NewEntradaService wires the lifecycle manager. reloj supplies the current
// time and may be nil for the real clock; tests inject a fixed one.
func NewEntradaService(
	repo repository.EntradaRepository,
	clienteRepo repository.ClienteRepository,
	movRepo repository.MovimientoRepository,
	turnoRepo repository.TurnoRepository,
	configRepo repository.ConfiguracionRepository,
	reloj func() time.Time,
) EntradaService {
	if reloj == nil {
		reloj = time.Now
	}
	return &entradaService{
		repo:        repo,
		clienteRepo: clienteRepo,
		movRepo:     movRepo,
		turnoRepo:   turnoRepo,
		configRepo:  configRepo,
		reloj:       reloj,
	}
}

// runTx executes fn inside a GORM transaction when db is available, or calls
// fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// politica builds the penalty policy from the runtime configuration.
func (s *entradaService) politica(ctx context.Context) billing.PenalidadPolicy {
	tolerancia := s.configRepo.GetInt(ctx, model.ClaveToleranciaMinutos, 60)
	return billing.PorTolerancia{Tolerancia: time.Duration(tolerancia) * time.Minute}
}

// NormalizarPlaca uppercases and trims a plate so the open-stay uniqueness
// guard always compares the same spelling.
func NormalizarPlaca(placa string) string {
	return strings.ToUpper(strings.TrimSpace(placa))
}

// ── RegistrarEntrada ──────────────────────────────────────────────────────────
// Check-in. Upserts the cliente, creates the entrada, and — when money changes
// hands at the door — appends the ADELANTO or PAGO_COMPLETO movement. All of
// it commits together or not at all.

func (s *entradaService) RegistrarEntrada(ctx context.Context, trabajadorID, turnoID uuid.UUID, req dto.RegistrarEntradaRequest) (*dto.EntradaResponse, error) {
	placa := NormalizarPlaca(req.Placa)
	if placa == "" || strings.TrimSpace(req.Cliente) == "" {
		return nil, fmt.Errorf("%w: placa y cliente son requeridos", ErrValidacion)
	}
	if !req.Precio.IsPositive() {
		return nil, fmt.Errorf("%w: el precio por día debe ser mayor a 0", ErrValidacion)
	}
	if req.Dias < 1 {
		return nil, fmt.Errorf("%w: días debe ser al menos 1", ErrValidacion)
	}
	if req.Adelanto.IsNegative() {
		return nil, fmt.Errorf("%w: el adelanto no puede ser negativo", ErrValidacion)
	}
	metodo := req.MetodoPago
	if metodo == "" {
		metodo = model.MetodoEfectivo
	}
	if !model.MetodoPagoValido(metodo) {
		return nil, fmt.Errorf("%w: método de pago no reconocido", ErrValidacion)
	}

	// Friendly pre-check; the authoritative guard is the partial unique index.
	if existing, err := s.repo.FindAbiertaPorPlaca(ctx, placa); err == nil && existing != nil && existing.ID != uuid.Nil {
		return nil, ErrEntradaDuplicada
	}

	fechaEntrada := s.reloj()
	if req.FechaEntrada != "" {
		t, err := time.Parse(time.RFC3339, req.FechaEntrada)
		if err != nil {
			return nil, fmt.Errorf("%w: fecha_entrada inválida", ErrValidacion)
		}
		fechaEntrada = t
	}

	var fechaHasta *time.Time
	if req.FechaHasta != "" {
		t, err := time.Parse("2006-01-02", req.FechaHasta)
		if err != nil {
			return nil, fmt.Errorf("%w: fecha_hasta inválida", ErrValidacion)
		}
		fechaHasta = &t
	}
	var horaSalida *string
	if req.HoraSalidaEsperada != "" {
		h := req.HoraSalidaEsperada
		horaSalida = &h
	}

	// A full prepayment covers the whole agreed stay, overriding any
	// caller-supplied adelanto.
	adelanto := req.Adelanto.Round(2)
	pagoCompleto := false
	if req.Pagado {
		monto, err := billing.MontoDias(req.Dias, req.Precio)
		if err != nil {
			return nil, err
		}
		adelanto = monto
		pagoCompleto = true
	}

	var celular *string
	if c := strings.TrimSpace(req.Celular); c != "" {
		celular = &c
	}

	precio := req.Precio.Round(2)
	entrada := &model.Entrada{
		Placa:              placa,
		FechaEntrada:       fechaEntrada,
		FechaHasta:         fechaHasta,
		HoraSalidaEsperada: horaSalida,
		DiasPactados:       req.Dias,
		PrecioDia:          precio,
		Adelanto:           adelanto,
		PagoCompleto:       pagoCompleto,
		DejoLlave:          req.DejoLlave,
		Observaciones:      req.Observaciones,
		Estado:             model.EntradaAbierta,
		TrabajadorID:       trabajadorID,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		cliente := &model.Cliente{
			Placa:     placa,
			Nombre:    strings.TrimSpace(req.Cliente),
			Celular:   celular,
			PrecioDia: &precio,
		}
		if err := s.clienteRepo.UpsertTx(tx, cliente); err != nil {
			return err
		}
		entrada.ClienteID = cliente.ID

		if err := s.repo.CreateTx(tx, entrada); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEntradaDuplicada
			}
			return err
		}

		if adelanto.IsPositive() {
			tipo := model.MovAdelanto
			if pagoCompleto {
				tipo = model.MovPagoCompleto
			}
			descripcion := fmt.Sprintf("%s - %s - %s - %d día(s)", tipo, placa, cliente.Nombre, req.Dias)
			return s.registrarMovimientoTx(tx, &model.MovimientoCaja{
				TurnoID:      turnoID,
				EntradaID:    entrada.ID,
				TrabajadorID: trabajadorID,
				Tipo:         tipo,
				Monto:        adelanto,
				MetodoPago:   metodo,
				Descripcion:  descripcion,
			})
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	resp := entradaToResponse(entrada, strings.TrimSpace(req.Cliente), celular)
	return &resp, nil
}

// registrarMovimientoTx appends a ledger movement after locking the owning
// turno row. A movement can never land on a closed turno: its totals were
// frozen at close and silently retro-applying money would break them.
func (s *entradaService) registrarMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	if m.Monto.IsNegative() || !model.MetodoPagoValido(m.MetodoPago) || !m.Tipo.Valido() {
		return fmt.Errorf("%w: movimiento mal formado", ErrValidacion)
	}
	turno, err := s.turnoRepo.LockTx(tx, m.TurnoID)
	if err != nil {
		return ErrTurnoNoEncontrado
	}
	if turno.Estado != model.TurnoAbierto {
		return ErrTurnoCerrado
	}
	return s.movRepo.CreateTx(tx, m)
}

// ── CalcularCobro ─────────────────────────────────────────────────────────────
// Live quote for an open stay. Pure read: repeatable with identical output
// while no movements land in between.

func (s *entradaService) CalcularCobro(ctx context.Context, entradaID uuid.UUID) (*dto.CobroResponse, error) {
	entrada, err := s.repo.FindByID(ctx, entradaID)
	if err != nil {
		return nil, ErrEntradaNoEncontrada
	}
	if entrada.Estado != model.EntradaAbierta {
		return nil, ErrEntradaYaSalio
	}

	ahora := s.reloj()
	sugerida := s.politica(ctx).Sugerida(billing.SalidaPactada{
		FechaHasta:         entrada.FechaHasta,
		HoraSalidaEsperada: entrada.HoraSalidaEsperada,
		PrecioDia:          entrada.PrecioDia,
	}, ahora)

	cot, err := billing.Cotizar(billing.Parametros{
		FechaEntrada: entrada.FechaEntrada,
		DiasPactados: entrada.DiasPactados,
		PrecioDia:    entrada.PrecioDia,
		Adelanto:     entrada.Adelanto,
		PagoCompleto: entrada.PagoCompleto,
		Penalidad:    sugerida,
	}, ahora)
	if err != nil {
		log.Error().Err(err).Str("entrada_id", entrada.ID.String()).Msg("cotización con parámetros persistidos inválidos")
		return nil, err
	}

	nombre := ""
	if entrada.Cliente != nil {
		nombre = entrada.Cliente.Nombre
	}
	return &dto.CobroResponse{
		ID:                entrada.ID.String(),
		Placa:             entrada.Placa,
		Cliente:           nombre,
		DiasPactados:      cot.DiasPactados,
		DiasReales:        cot.DiasReales,
		PrecioDia:         entrada.PrecioDia,
		MontoDias:         cot.MontoDias,
		PenalidadSugerida: sugerida,
		MontoTotal:        cot.MontoTotal,
		Adelanto:          cot.Adelanto,
		ACobrar:           cot.ACobrar,
		YaPagoCompleto:    cot.YaPagoCompleto,
		ExcedeTiempo:      cot.ExcedeTiempo,
		DejoLlave:         entrada.DejoLlave,
	}, nil
}

// ── RegistrarSalida ───────────────────────────────────────────────────────────
// Check-out. The money figure is recomputed server-side from the entry time
// and the service clock; the caller's dias_reales is advisory only. The state
// transition is a compare-and-swap: of two concurrent check-outs exactly one
// wins and the other gets ErrEntradaYaSalio.

func (s *entradaService) RegistrarSalida(ctx context.Context, trabajadorID, turnoID, entradaID uuid.UUID, req dto.RegistrarSalidaRequest) (*dto.SalidaResponse, error) {
	if req.Penalidad.IsNegative() || req.Descuento.IsNegative() {
		return nil, fmt.Errorf("%w: penalidad y descuento no pueden ser negativos", ErrValidacion)
	}
	metodo := req.MetodoPago
	if metodo == "" {
		metodo = model.MetodoEfectivo
	}
	if !model.MetodoPagoValido(metodo) {
		return nil, fmt.Errorf("%w: método de pago no reconocido", ErrValidacion)
	}

	entrada, err := s.repo.FindByID(ctx, entradaID)
	if err != nil {
		return nil, ErrEntradaNoEncontrada
	}
	if entrada.Estado != model.EntradaAbierta {
		return nil, ErrEntradaYaSalio
	}

	ahora := s.reloj()
	cot, err := billing.Cotizar(billing.Parametros{
		FechaEntrada: entrada.FechaEntrada,
		DiasPactados: entrada.DiasPactados,
		PrecioDia:    entrada.PrecioDia,
		Adelanto:     entrada.Adelanto,
		PagoCompleto: entrada.PagoCompleto,
		Penalidad:    req.Penalidad.Round(2),
		Descuento:    req.Descuento.Round(2),
	}, ahora)
	if err != nil {
		log.Error().Err(err).Str("entrada_id", entrada.ID.String()).Msg("liquidación con parámetros inválidos")
		return nil, err
	}

	nombre := ""
	if entrada.Cliente != nil {
		nombre = entrada.Cliente.Nombre
	}

	diasReales := cot.DiasReales
	observaciones := entrada.Observaciones
	if req.Observaciones != "" {
		observaciones = req.Observaciones
	}

	cierre := &model.Entrada{
		ID:                 entrada.ID,
		FechaSalida:        &ahora,
		DiasReales:         &diasReales,
		Penalidad:          &cot.Penalidad,
		Descuento:          &cot.Descuento,
		MontoTotal:         &cot.MontoTotal,
		MontoCobrado:       &cot.ACobrar,
		Observaciones:      observaciones,
		TrabajadorSalidaID: &trabajadorID,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ok, err := s.repo.CerrarTx(tx, cierre)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEntradaYaSalio
		}

		// The settlement is always recorded, even at zero, so every check-out
		// leaves exactly one COBRO_SALIDA in the ledger and shift reports can
		// count exits from it. A fully prepaid stay already covered its days,
		// so any remaining charge is a surcharge and goes in as a separate
		// PENALIDAD movement.
		montoSalida := cot.ACobrar
		descripcion := fmt.Sprintf("Cobro salida - %s - %s - %d día(s)", entrada.Placa, nombre, diasReales)
		if entrada.PagoCompleto {
			montoSalida = decimal.Zero
		} else {
			if cot.Penalidad.IsPositive() {
				descripcion += fmt.Sprintf(" (+ penalidad S/ %s)", cot.Penalidad.StringFixed(2))
			}
			if cot.Descuento.IsPositive() {
				descripcion += fmt.Sprintf(" (- descuento S/ %s)", cot.Descuento.StringFixed(2))
			}
		}

		if err := s.registrarMovimientoTx(tx, &model.MovimientoCaja{
			TurnoID:      turnoID,
			EntradaID:    entrada.ID,
			TrabajadorID: trabajadorID,
			Tipo:         model.MovCobroSalida,
			Monto:        montoSalida,
			MetodoPago:   metodo,
			Descripcion:  descripcion,
		}); err != nil {
			return err
		}

		if entrada.PagoCompleto && cot.ACobrar.IsPositive() {
			return s.registrarMovimientoTx(tx, &model.MovimientoCaja{
				TurnoID:      turnoID,
				EntradaID:    entrada.ID,
				TrabajadorID: trabajadorID,
				Tipo:         model.MovPenalidad,
				Monto:        cot.ACobrar,
				MetodoPago:   metodo,
				Descripcion:  fmt.Sprintf("Penalidad - %s - %s", entrada.Placa, nombre),
			})
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return &dto.SalidaResponse{
		ID:                  entrada.ID.String(),
		DiasReales:          diasReales,
		MontoTotal:          cot.MontoTotal,
		Adelanto:            cot.Adelanto,
		Penalidad:           cot.Penalidad,
		Descuento:           cot.Descuento,
		MontoCobrado:        cot.ACobrar,
		YaPagoCompleto:      cot.YaPagoCompleto,
		DiasDesactualizados: req.DiasReales != 0 && req.DiasReales != diasReales,
	}, nil
}

// ── AutosEnCochera ────────────────────────────────────────────────────────────

func (s *entradaService) AutosEnCochera(ctx context.Context) ([]dto.AutoEnCochera, error) {
	entradas, err := s.repo.ListAbiertas(ctx)
	if err != nil {
		return nil, err
	}

	ahora := s.reloj()
	politica := s.politica(ctx)

	autos := make([]dto.AutoEnCochera, 0, len(entradas))
	for _, e := range entradas {
		sugerida := politica.Sugerida(billing.SalidaPactada{
			FechaHasta:         e.FechaHasta,
			HoraSalidaEsperada: e.HoraSalidaEsperada,
			PrecioDia:          e.PrecioDia,
		}, ahora)

		cot, err := billing.Cotizar(billing.Parametros{
			FechaEntrada: e.FechaEntrada,
			DiasPactados: e.DiasPactados,
			PrecioDia:    e.PrecioDia,
			Adelanto:     e.Adelanto,
			PagoCompleto: e.PagoCompleto,
			Penalidad:    sugerida,
		}, ahora)
		if err != nil {
			log.Warn().Err(err).Str("entrada_id", e.ID.String()).Msg("entrada abierta con parámetros inválidos, omitida")
			continue
		}

		nombre := ""
		var celular *string
		if e.Cliente != nil {
			nombre = e.Cliente.Nombre
			celular = e.Cliente.Celular
		}
		trabajador := ""
		if e.Trabajador != nil {
			trabajador = e.Trabajador.Nombre
		}
		autos = append(autos, dto.AutoEnCochera{
			EntradaResponse:   entradaToResponse(&e, nombre, celular),
			DiasReales:        cot.DiasReales,
			PenalidadSugerida: sugerida,
			Pendiente:         cot.ACobrar,
			ExcedeTiempo:      cot.ExcedeTiempo,
			TrabajadorEntrada: trabajador,
		})
	}
	return autos, nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *entradaService) Historial(ctx context.Context, filter dto.HistorialFilter) (*dto.HistorialResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Placa != "" {
		filter.Placa = NormalizarPlaca(filter.Placa)
	}

	entradas, total, err := s.repo.Historial(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.EntradaResponse, 0, len(entradas))
	for _, e := range entradas {
		nombre := ""
		var celular *string
		if e.Cliente != nil {
			nombre = e.Cliente.Nombre
			celular = e.Cliente.Celular
		}
		data = append(data, entradaToResponse(&e, nombre, celular))
	}
	return &dto.HistorialResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func entradaToResponse(e *model.Entrada, cliente string, celular *string) dto.EntradaResponse {
	resp := dto.EntradaResponse{
		ID:            e.ID.String(),
		Placa:         e.Placa,
		Cliente:       cliente,
		Celular:       celular,
		FechaEntrada:  e.FechaEntrada.Format(time.RFC3339),
		DiasPactados:  e.DiasPactados,
		PrecioDia:     e.PrecioDia,
		Adelanto:      e.Adelanto,
		PagoCompleto:  e.PagoCompleto,
		DejoLlave:     e.DejoLlave,
		Estado:        e.Estado,
		Observaciones: e.Observaciones,
	}
	if e.FechaHasta != nil {
		f := e.FechaHasta.Format("2006-01-02")
		resp.FechaHasta = &f
	}
	resp.HoraSalidaEsperada = e.HoraSalidaEsperada
	return resp
}
