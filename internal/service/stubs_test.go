package service

import (
	"context"
	"sync"
	"time"

	"cochera/internal/dto"
	"cochera/internal/model"
	"cochera/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory EntradaRepository stub ──────────────────────────────────────────
// Every stub returns a nil *gorm.DB from DB(), so runTx calls the body
// directly and the CAS semantics live in the stubs themselves.

type stubEntradaRepo struct {
	mu       sync.Mutex
	entradas map[uuid.UUID]*model.Entrada
}

func newStubEntradaRepo() *stubEntradaRepo {
	return &stubEntradaRepo{entradas: make(map[uuid.UUID]*model.Entrada)}
}

func (r *stubEntradaRepo) CreateTx(_ *gorm.DB, e *model.Entrada) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.entradas {
		if ex.Placa == e.Placa && ex.Estado == model.EntradaAbierta {
			return gorm.ErrDuplicatedKey
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	r.entradas[e.ID] = &cp
	return nil
}

func (r *stubEntradaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Entrada, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entradas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *stubEntradaRepo) FindAbiertaPorPlaca(_ context.Context, placa string) (*model.Entrada, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entradas {
		if e.Placa == placa && e.Estado == model.EntradaAbierta {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubEntradaRepo) ListAbiertas(_ context.Context) ([]model.Entrada, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Entrada
	for _, e := range r.entradas {
		if e.Estado == model.EntradaAbierta {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *stubEntradaRepo) CountAbiertas(_ context.Context) (int64, error) {
	abiertas, _ := r.ListAbiertas(context.Background())
	return int64(len(abiertas)), nil
}

func (r *stubEntradaRepo) CerrarTx(_ *gorm.DB, e *model.Entrada) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.entradas[e.ID]
	if !ok || existing.Estado != model.EntradaAbierta {
		return false, nil
	}
	existing.Estado = model.EntradaCerrada
	existing.FechaSalida = e.FechaSalida
	existing.DiasReales = e.DiasReales
	existing.Penalidad = e.Penalidad
	existing.Descuento = e.Descuento
	existing.MontoTotal = e.MontoTotal
	existing.MontoCobrado = e.MontoCobrado
	existing.Observaciones = e.Observaciones
	existing.TrabajadorSalidaID = e.TrabajadorSalidaID
	return true, nil
}

func (r *stubEntradaRepo) ListPorCliente(_ context.Context, clienteID uuid.UUID) ([]model.Entrada, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Entrada
	for _, e := range r.entradas {
		if e.ClienteID == clienteID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *stubEntradaRepo) Historial(_ context.Context, filter dto.HistorialFilter) ([]model.Entrada, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Entrada
	for _, e := range r.entradas {
		if filter.Placa != "" && e.Placa != filter.Placa {
			continue
		}
		if filter.Estado != "" && e.Estado != filter.Estado {
			continue
		}
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (r *stubEntradaRepo) DB() *gorm.DB { return nil }

var _ repository.EntradaRepository = (*stubEntradaRepo)(nil)

// ── In-memory ClienteRepository stub ──────────────────────────────────────────

type stubClienteRepo struct {
	mu       sync.Mutex
	clientes map[string]*model.Cliente // keyed by placa
}

func newStubClienteRepo() *stubClienteRepo {
	return &stubClienteRepo{clientes: make(map[string]*model.Cliente)}
}

func (r *stubClienteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clientes {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubClienteRepo) FindByPlaca(_ context.Context, placa string) (*model.Cliente, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clientes[placa]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *stubClienteRepo) UpsertTx(_ *gorm.DB, c *model.Cliente) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clientes[c.Placa]; ok {
		c.ID = existing.ID
		existing.Nombre = c.Nombre
		existing.Celular = c.Celular
		existing.PrecioDia = c.PrecioDia
		return nil
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.clientes[c.Placa] = &cp
	return nil
}

func (r *stubClienteRepo) Create(_ context.Context, c *model.Cliente) error {
	return r.UpsertTx(nil, c)
}

func (r *stubClienteRepo) Update(_ context.Context, c *model.Cliente) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.clientes[c.Placa] = &cp
	return nil
}

func (r *stubClienteRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for placa, c := range r.clientes {
		if c.ID == id {
			delete(r.clientes, placa)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubClienteRepo) List(_ context.Context, _ dto.ClienteFilter) ([]model.Cliente, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Cliente
	for _, c := range r.clientes {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *stubClienteRepo) Estadisticas(_ context.Context, _ uuid.UUID) (*dto.ClienteEstadisticas, error) {
	return &dto.ClienteEstadisticas{}, nil
}

var _ repository.ClienteRepository = (*stubClienteRepo)(nil)

// ── In-memory MovimientoRepository stub ───────────────────────────────────────

type stubMovimientoRepo struct {
	mu          sync.Mutex
	movimientos []model.MovimientoCaja
}

func newStubMovimientoRepo() *stubMovimientoRepo { return &stubMovimientoRepo{} }

func (r *stubMovimientoRepo) CreateTx(_ *gorm.DB, m *model.MovimientoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.movimientos = append(r.movimientos, *m)
	return nil
}

func (r *stubMovimientoRepo) ListPorTurno(_ context.Context, turnoID uuid.UUID) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.TurnoID == turnoID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubMovimientoRepo) ListPorEntrada(_ context.Context, entradaID uuid.UUID) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoCaja
	for _, m := range r.movimientos {
		if m.EntradaID == entradaID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubMovimientoRepo) sum(turnoID uuid.UUID) dto.TotalesPorMetodo {
	t := dto.TotalesPorMetodo{Efectivo: decimal.Zero, Yape: decimal.Zero}
	for _, m := range r.movimientos {
		if m.TurnoID != turnoID {
			continue
		}
		switch m.MetodoPago {
		case model.MetodoEfectivo:
			t.Efectivo = t.Efectivo.Add(m.Monto)
		case model.MetodoYape:
			t.Yape = t.Yape.Add(m.Monto)
		}
	}
	t.Total = t.Efectivo.Add(t.Yape)
	return t
}

func (r *stubMovimientoRepo) SumPorMetodo(_ context.Context, turnoID uuid.UUID) (dto.TotalesPorMetodo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum(turnoID), nil
}

func (r *stubMovimientoRepo) SumPorMetodoTx(_ *gorm.DB, turnoID uuid.UUID) (dto.TotalesPorMetodo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum(turnoID), nil
}

func (r *stubMovimientoRepo) SumPorTipo(_ context.Context, turnoID uuid.UUID) (map[model.TipoMovimiento]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sums := make(map[model.TipoMovimiento]decimal.Decimal)
	for _, m := range r.movimientos {
		if m.TurnoID == turnoID {
			sums[m.Tipo] = sums[m.Tipo].Add(m.Monto)
		}
	}
	return sums, nil
}

func (r *stubMovimientoRepo) CountPorTipo(_ context.Context, turnoID uuid.UUID, tipo model.TipoMovimiento) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.movimientos {
		if m.TurnoID == turnoID && m.Tipo == tipo {
			n++
		}
	}
	return n, nil
}

var _ repository.MovimientoRepository = (*stubMovimientoRepo)(nil)

// ── In-memory TurnoRepository stub ────────────────────────────────────────────

type stubTurnoRepo struct {
	mu     sync.Mutex
	turnos map[uuid.UUID]*model.Turno

	// onLockCierre runs just before the close acquires the row, standing in
	// for a movement writer whose commit lands ahead of the exclusive lock.
	onLockCierre func()
}

func newStubTurnoRepo() *stubTurnoRepo {
	return &stubTurnoRepo{turnos: make(map[uuid.UUID]*model.Turno)}
}

func (r *stubTurnoRepo) abrir(trabajadorID uuid.UUID) *model.Turno {
	t := &model.Turno{
		ID:           uuid.New(),
		TrabajadorID: trabajadorID,
		FechaInicio:  time.Now(),
		Estado:       model.TurnoAbierto,
	}
	r.mu.Lock()
	r.turnos[t.ID] = t
	r.mu.Unlock()
	return t
}

func (r *stubTurnoRepo) Create(_ context.Context, t *model.Turno) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	cp := *t
	r.turnos[t.ID] = &cp
	return nil
}

func (r *stubTurnoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.turnos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *stubTurnoRepo) FindAbiertoPorTrabajador(_ context.Context, trabajadorID uuid.UUID) (*model.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.turnos {
		if t.TrabajadorID == trabajadorID && t.Estado == model.TurnoAbierto {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubTurnoRepo) LockTx(_ *gorm.DB, id uuid.UUID) (*model.Turno, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.turnos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *stubTurnoRepo) LockCierreTx(_ *gorm.DB, id uuid.UUID) (*model.Turno, error) {
	if r.onLockCierre != nil {
		r.onLockCierre()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.turnos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *stubTurnoRepo) CerrarTx(_ *gorm.DB, t *model.Turno) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.turnos[t.ID]
	if !ok || existing.Estado != model.TurnoAbierto {
		return false, nil
	}
	existing.Estado = model.TurnoCerrado
	existing.FechaFin = t.FechaFin
	existing.TotalEfectivo = t.TotalEfectivo
	existing.TotalYape = t.TotalYape
	existing.EfectivoDeclarado = t.EfectivoDeclarado
	existing.YapeDeclarado = t.YapeDeclarado
	existing.DifEfectivo = t.DifEfectivo
	existing.DifYape = t.DifYape
	existing.Diferencia = t.Diferencia
	existing.Observaciones = t.Observaciones
	existing.ProximoReintentoAt = t.ProximoReintentoAt
	return true, nil
}

func (r *stubTurnoRepo) List(_ context.Context, _ dto.TurnoFilter) ([]model.Turno, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Turno
	for _, t := range r.turnos {
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

func (r *stubTurnoRepo) PendientesReporte(_ context.Context, ahora time.Time, _ int) ([]model.Turno, error) {
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

func (r *stubTurnoRepo) MarcarReporteEnviado(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.turnos[id]; ok {
		t.ReporteEnviado = true
		t.ProximoReintentoAt = nil
		t.UltimoErrorReporte = nil
	}
	return nil
}

func (r *stubTurnoRepo) RegistrarErrorReporte(_ context.Context, id uuid.UUID, msg string, proximo *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.turnos[id]; ok {
		t.ReporteIntentos++
		t.ProximoReintentoAt = proximo
		t.UltimoErrorReporte = &msg
	}
	return nil
}

func (r *stubTurnoRepo) DB() *gorm.DB { return nil }

var _ repository.TurnoRepository = (*stubTurnoRepo)(nil)

// ── In-memory ConfiguracionRepository stub ────────────────────────────────────

type stubConfigRepo struct {
	valores map[string]string
}

func newStubConfigRepo() *stubConfigRepo {
	return &stubConfigRepo{valores: map[string]string{
		model.ClaveToleranciaMinutos: "60",
		model.ClaveCapacidadMaxima:   "50",
		model.ClavePrecioDefault:     "10",
	}}
}

func (r *stubConfigRepo) Get(_ context.Context, clave string) (string, error) {
	v, ok := r.valores[clave]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return v, nil
}

func (r *stubConfigRepo) GetInt(ctx context.Context, clave string, def int) int {
	v, err := r.Get(ctx, clave)
	if err != nil {
		return def
	}
	n := 0
	for _, ch := range v {
		if ch < '0' || ch > '9' {
			return def
		}
		n = n*10 + int(ch-'0')
	}
	return n
}

func (r *stubConfigRepo) Set(_ context.Context, clave, valor string) error {
	r.valores[clave] = valor
	return nil
}

func (r *stubConfigRepo) List(_ context.Context) ([]model.Configuracion, error) {
	var out []model.Configuracion
	for k, v := range r.valores {
		out = append(out, model.Configuracion{Clave: k, Valor: v})
	}
	return out, nil
}

var _ repository.ConfiguracionRepository = (*stubConfigRepo)(nil)
