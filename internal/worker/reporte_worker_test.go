package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"cochera/internal/dto"
	"cochera/internal/infra"
	"cochera/internal/model"
	"cochera/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory TurnoRepository stub ────────────────────────────────────────────

type fakeTurnoRepo struct {
	mu     sync.Mutex
	turnos map[uuid.UUID]*model.Turno
}

func newFakeTurnoRepo() *fakeTurnoRepo {
	return &fakeTurnoRepo{turnos: make(map[uuid.UUID]*model.Turno)}
}

func (r *fakeTurnoRepo) Create(_ context.Context, t *model.Turno) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.turnos[t.ID] = t
	return nil
}

func (r *fakeTurnoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.turnos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTurnoRepo) FindAbiertoPorTrabajador(_ context.Context, _ uuid.UUID) (*model.Turno, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTurnoRepo) LockTx(_ *gorm.DB, id uuid.UUID) (*model.Turno, error) {
	return r.FindByID(context.Background(), id)
}

func (r *fakeTurnoRepo) LockCierreTx(_ *gorm.DB, id uuid.UUID) (*model.Turno, error) {
	return r.FindByID(context.Background(), id)
}

func (r *fakeTurnoRepo) CerrarTx(_ *gorm.DB, _ *model.Turno) (bool, error) { return false, nil }

func (r *fakeTurnoRepo) List(_ context.Context, _ dto.TurnoFilter) ([]model.Turno, int64, error) {
	return nil, 0, nil
}

func (r *fakeTurnoRepo) PendientesReporte(_ context.Context, ahora time.Time, _ int) ([]model.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Turno
	for _, t := range r.turnos {
		if t.Estado == model.TurnoCerrado && !t.ReporteEnviado &&
			t.ProximoReintentoAt != nil && !t.ProximoReintentoAt.After(ahora) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTurnoRepo) MarcarReporteEnviado(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.turnos[id]; ok {
		t.ReporteEnviado = true
		t.ProximoReintentoAt = nil
		t.UltimoErrorReporte = nil
	}
	return nil
}

func (r *fakeTurnoRepo) RegistrarErrorReporte(_ context.Context, id uuid.UUID, msg string, proximo *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.turnos[id]; ok {
		t.ReporteIntentos++
		t.ProximoReintentoAt = proximo
		t.UltimoErrorReporte = &msg
	}
	return nil
}

func (r *fakeTurnoRepo) DB() *gorm.DB { return nil }

var _ repository.TurnoRepository = (*fakeTurnoRepo)(nil)

// ── In-memory MovimientoRepository stub (reads only) ──────────────────────────

type fakeMovRepo struct {
	movimientos []model.MovimientoCaja
}

func (r *fakeMovRepo) CreateTx(_ *gorm.DB, m *model.MovimientoCaja) error {
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *fakeMovRepo) ListPorTurno(_ context.Context, turnoID uuid.UUID) ([]model.MovimientoCaja, error) {
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.TurnoID == turnoID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovRepo) ListPorEntrada(_ context.Context, _ uuid.UUID) ([]model.MovimientoCaja, error) {
	return nil, nil
}

func (r *fakeMovRepo) SumPorMetodo(_ context.Context, _ uuid.UUID) (dto.TotalesPorMetodo, error) {
	return dto.TotalesPorMetodo{}, nil
}

func (r *fakeMovRepo) SumPorMetodoTx(_ *gorm.DB, _ uuid.UUID) (dto.TotalesPorMetodo, error) {
	return dto.TotalesPorMetodo{}, nil
}

func (r *fakeMovRepo) SumPorTipo(_ context.Context, _ uuid.UUID) (map[model.TipoMovimiento]decimal.Decimal, error) {
	return nil, nil
}

func (r *fakeMovRepo) CountPorTipo(_ context.Context, _ uuid.UUID, _ model.TipoMovimiento) (int64, error) {
	return 0, nil
}

var _ repository.MovimientoRepository = (*fakeMovRepo)(nil)

// ── Mailer stub ───────────────────────────────────────────────────────────────

type fakeMailer struct {
	err      error
	enviados []string // bodies
	asuntos  []string
}

func (m *fakeMailer) SendReporte(_, subject, body, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.asuntos = append(m.asuntos, subject)
	m.enviados = append(m.enviados, body)
	return nil
}

var _ ReporteMailer = (*fakeMailer)(nil)

// ── helpers ───────────────────────────────────────────────────────────────────

func dec(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func turnoCerrado(repo *fakeTurnoRepo) *model.Turno {
	fin := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	ahora := fin
	t := &model.Turno{
		ID:                 uuid.New(),
		TrabajadorID:       uuid.New(),
		FechaInicio:        fin.Add(-9 * time.Hour),
		FechaFin:           &fin,
		Estado:             model.TurnoCerrado,
		TotalEfectivo:      dec(120),
		TotalYape:          dec(45),
		EfectivoDeclarado:  dec(120),
		YapeDeclarado:      dec(45),
		Diferencia:         dec(0),
		ProximoReintentoAt: &ahora,
		Trabajador:         &model.Trabajador{Nombre: "María Torres"},
	}
	repo.turnos[t.ID] = t
	return t
}

func newWorker(turnos *fakeTurnoRepo, movs *fakeMovRepo, mailer ReporteMailer, destino string) *ReporteWorker {
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	return NewReporteWorker(turnos, movs, mailer, cb, nil, destino, MaxReporteIntentos)
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestReporteWorkerEntregaYMarca(t *testing.T) {
	turnos := newFakeTurnoRepo()
	movs := &fakeMovRepo{}
	mailer := &fakeMailer{}
	turno := turnoCerrado(turnos)
	movs.movimientos = append(movs.movimientos, model.MovimientoCaja{
		TurnoID:     turno.ID,
		Tipo:        model.MovAdelanto,
		Monto:       decimal.NewFromInt(120),
		MetodoPago:  model.MetodoEfectivo,
		Descripcion: "ADELANTO - ABC-123 - Juan Quispe - 3 día(s)",
	})

	w := newWorker(turnos, movs, mailer, "dueno@cochera.pe")
	w.Entregar(context.Background(), turno.ID)

	require.Len(t, mailer.enviados, 1)
	assert.Contains(t, mailer.enviados[0], "María Torres")
	assert.Contains(t, mailer.enviados[0], "Efectivo computado: S/ 120.00")
	assert.Contains(t, mailer.enviados[0], "ABC-123")

	guardado, _ := turnos.FindByID(context.Background(), turno.ID)
	assert.True(t, guardado.ReporteEnviado)
	assert.Nil(t, guardado.ProximoReintentoAt)
}

func TestReporteWorkerFalloProgramaReintento(t *testing.T) {
	turnos := newFakeTurnoRepo()
	mailer := &fakeMailer{err: errors.New("relay caído")}
	turno := turnoCerrado(turnos)

	w := newWorker(turnos, &fakeMovRepo{}, mailer, "dueno@cochera.pe")
	w.Entregar(context.Background(), turno.ID)

	guardado, _ := turnos.FindByID(context.Background(), turno.ID)
	assert.False(t, guardado.ReporteEnviado)
	assert.Equal(t, 1, guardado.ReporteIntentos)
	require.NotNil(t, guardado.ProximoReintentoAt)
	assert.True(t, guardado.ProximoReintentoAt.After(time.Now()))
	require.NotNil(t, guardado.UltimoErrorReporte)
	assert.Contains(t, *guardado.UltimoErrorReporte, "relay caído")
}

func TestReporteWorkerAgotaIntentos(t *testing.T) {
	turnos := newFakeTurnoRepo()
	mailer := &fakeMailer{err: errors.New("relay caído")}
	turno := turnoCerrado(turnos)
	turno.ReporteIntentos = MaxReporteIntentos - 1

	w := newWorker(turnos, &fakeMovRepo{}, mailer, "dueno@cochera.pe")
	w.Entregar(context.Background(), turno.ID)

	// Terminal failure: no next retry, the DLQ entry is the handoff.
	guardado, _ := turnos.FindByID(context.Background(), turno.ID)
	assert.Equal(t, MaxReporteIntentos, guardado.ReporteIntentos)
	assert.Nil(t, guardado.ProximoReintentoAt)
	assert.False(t, guardado.ReporteEnviado)
}

func TestReporteWorkerDestinoVacio(t *testing.T) {
	turnos := newFakeTurnoRepo()
	mailer := &fakeMailer{}
	turno := turnoCerrado(turnos)

	w := newWorker(turnos, &fakeMovRepo{}, mailer, "")
	w.Entregar(context.Background(), turno.ID)

	// Delivery disabled: marked as sent so the cron stops picking it up.
	guardado, _ := turnos.FindByID(context.Background(), turno.ID)
	assert.True(t, guardado.ReporteEnviado)
	assert.Empty(t, mailer.enviados)
}

func TestReporteWorkerIgnoraTurnoAbierto(t *testing.T) {
	turnos := newFakeTurnoRepo()
	mailer := &fakeMailer{}
	abierto := &model.Turno{ID: uuid.New(), Estado: model.TurnoAbierto, FechaInicio: time.Now()}
	turnos.turnos[abierto.ID] = abierto

	w := newWorker(turnos, &fakeMovRepo{}, mailer, "dueno@cochera.pe")
	w.Entregar(context.Background(), abierto.ID)

	assert.Empty(t, mailer.enviados)
	assert.False(t, turnos.turnos[abierto.ID].ReporteEnviado)
}

func TestReporteWorkerPayloadInvalidoNoPanic(t *testing.T) {
	w := newWorker(newFakeTurnoRepo(), &fakeMovRepo{}, &fakeMailer{}, "dueno@cochera.pe")

	assert.NotPanics(t, func() {
		w.Process(context.Background(), json.RawMessage(`{`))
	})
	assert.NotPanics(t, func() {
		w.Process(context.Background(), json.RawMessage(`{"turno_id":"no-es-uuid"}`))
	})
}

func TestReintentoBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, reintentoBackoff(1))
	assert.Equal(t, 2*time.Minute, reintentoBackoff(2))
	assert.Equal(t, 4*time.Minute, reintentoBackoff(3))
	assert.Equal(t, 16*time.Minute, reintentoBackoff(5))
	assert.Equal(t, 30*time.Minute, reintentoBackoff(6))
	assert.Equal(t, 30*time.Minute, reintentoBackoff(10))
}
