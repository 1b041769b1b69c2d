package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"cochera/internal/dto"
	"cochera/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inicio = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type entradaFixture struct {
	entradas *stubEntradaRepo
	clientes *stubClienteRepo
	movs     *stubMovimientoRepo
	turnos   *stubTurnoRepo
	svc      EntradaService

	trabajadorID uuid.UUID
	turno        *model.Turno
	ahora        time.Time
}

func newEntradaFixture() *entradaFixture {
	f := &entradaFixture{
		entradas:     newStubEntradaRepo(),
		clientes:     newStubClienteRepo(),
		movs:         newStubMovimientoRepo(),
		turnos:       newStubTurnoRepo(),
		trabajadorID: uuid.New(),
		ahora:        inicio,
	}
	f.turno = f.turnos.abrir(f.trabajadorID)
	f.svc = NewEntradaService(
		f.entradas, f.clientes, f.movs, f.turnos, newStubConfigRepo(),
		func() time.Time { return f.ahora },
	)
	return f
}

func reqEntrada(placa string) dto.RegistrarEntradaRequest {
	return dto.RegistrarEntradaRequest{
		Placa:      placa,
		Cliente:    "Juan Quispe",
		Dias:       3,
		Precio:     decimal.NewFromInt(10),
		Adelanto:   decimal.NewFromInt(10),
		MetodoPago: model.MetodoEfectivo,
	}
}

func TestRegistrarEntradaConAdelanto(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	resp, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("  abc-123 "))
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", resp.Placa)
	assert.Equal(t, model.EntradaAbierta, resp.Estado)
	assert.Equal(t, "10", resp.Adelanto.String())
	assert.False(t, resp.PagoCompleto)

	// The advance lands in the shift ledger as ADELANTO.
	movs, err := f.movs.ListPorTurno(ctx, f.turno.ID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, model.MovAdelanto, movs[0].Tipo)
	assert.Equal(t, "10", movs[0].Monto.String())
	assert.Equal(t, model.MetodoEfectivo, movs[0].MetodoPago)

	// The cliente directory entry was created keyed by plate.
	cliente, err := f.clientes.FindByPlaca(ctx, "ABC-123")
	require.NoError(t, err)
	assert.Equal(t, "Juan Quispe", cliente.Nombre)
}

func TestRegistrarEntradaPagoCompleto(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	req := reqEntrada("XYZ-987")
	req.Pagado = true
	req.Adelanto = decimal.NewFromInt(1) // ignored: the full prepayment wins

	resp, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, req)
	require.NoError(t, err)
	assert.True(t, resp.PagoCompleto)
	assert.Equal(t, "30", resp.Adelanto.String())

	movs, _ := f.movs.ListPorTurno(ctx, f.turno.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, model.MovPagoCompleto, movs[0].Tipo)
	assert.Equal(t, "30", movs[0].Monto.String())
}

func TestRegistrarEntradaSinAdelanto(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	req := reqEntrada("DEF-456")
	req.Adelanto = decimal.Zero

	_, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, req)
	require.NoError(t, err)

	movs, _ := f.movs.ListPorTurno(ctx, f.turno.ID)
	assert.Empty(t, movs, "sin dinero no hay movimiento")
}

func TestRegistrarEntradaDuplicada(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	_, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("ABC-123"))
	require.NoError(t, err)

	// Same plate, different spelling: the normalized form collides.
	_, err = f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada(" abc-123"))
	assert.ErrorIs(t, err, ErrEntradaDuplicada)
}

func TestRegistrarEntradaConcurrente(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("ABC-123"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	exitos := 0
	for err := range errs {
		if err == nil {
			exitos++
		} else {
			assert.ErrorIs(t, err, ErrEntradaDuplicada)
		}
	}
	assert.Equal(t, 1, exitos, "solo una entrada abierta por placa")
}

func TestRegistrarEntradaValidaciones(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	casos := []struct {
		nombre string
		mut    func(*dto.RegistrarEntradaRequest)
	}{
		{"placa vacía", func(r *dto.RegistrarEntradaRequest) { r.Placa = "  " }},
		{"cliente vacío", func(r *dto.RegistrarEntradaRequest) { r.Cliente = "" }},
		{"precio cero", func(r *dto.RegistrarEntradaRequest) { r.Precio = decimal.Zero }},
		{"días cero", func(r *dto.RegistrarEntradaRequest) { r.Dias = 0 }},
		{"adelanto negativo", func(r *dto.RegistrarEntradaRequest) { r.Adelanto = decimal.NewFromInt(-1) }},
		{"método desconocido", func(r *dto.RegistrarEntradaRequest) { r.MetodoPago = "tarjeta" }},
		{"fecha_hasta inválida", func(r *dto.RegistrarEntradaRequest) { r.FechaHasta = "10/03/2026" }},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			req := reqEntrada("VAL-000")
			c.mut(&req)
			_, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, req)
			assert.ErrorIs(t, err, ErrValidacion)
		})
	}
}

func TestRegistrarEntradaTurnoCerrado(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	cerrado := &model.Turno{ID: f.turno.ID}
	_, err := f.turnos.CerrarTx(nil, cerrado)
	require.NoError(t, err)

	_, err = f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("GHI-789"))
	assert.ErrorIs(t, err, ErrTurnoCerrado)
}

func TestRegistrarEntradaTurnoInexistente(t *testing.T) {
	f := newEntradaFixture()
	_, err := f.svc.RegistrarEntrada(context.Background(), f.trabajadorID, uuid.New(), reqEntrada("JKL-012"))
	assert.ErrorIs(t, err, ErrTurnoNoEncontrado)
}

func TestCalcularCobro(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	resp, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("ABC-123"))
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	// 50h after entry: third calendar-day block started.
	f.ahora = inicio.Add(50 * time.Hour)

	cobro, err := f.svc.CalcularCobro(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, cobro.DiasReales)
	assert.Equal(t, "30.00", cobro.MontoDias.StringFixed(2))
	assert.Equal(t, "20.00", cobro.ACobrar.StringFixed(2))
	assert.False(t, cobro.ExcedeTiempo)

	// Same instant, same answer.
	otra, err := f.svc.CalcularCobro(ctx, id)
	require.NoError(t, err)
	assert.True(t, cobro.ACobrar.Equal(otra.ACobrar))
}

func TestCalcularCobroNoEncontrada(t *testing.T) {
	f := newEntradaFixture()
	_, err := f.svc.CalcularCobro(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrEntradaNoEncontrada)
}

func TestRegistrarSalida(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	resp, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("ABC-123"))
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	f.ahora = inicio.Add(50 * time.Hour)

	salida, err := f.svc.RegistrarSalida(ctx, f.trabajadorID, f.turno.ID, id, dto.RegistrarSalidaRequest{
		MetodoPago: model.MetodoYape,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, salida.DiasReales)
	assert.Equal(t, "30.00", salida.MontoTotal.StringFixed(2))
	assert.Equal(t, "20.00", salida.MontoCobrado.StringFixed(2))

	cerrada, err := f.entradas.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.EntradaCerrada, cerrada.Estado)
	require.NotNil(t, cerrada.MontoCobrado)
	assert.Equal(t, "20.00", cerrada.MontoCobrado.StringFixed(2))

	// Advance at check-in plus settlement at check-out.
	movs, _ := f.movs.ListPorTurno(ctx, f.turno.ID)
	require.Len(t, movs, 2)
	ultimo := movs[1]
	assert.Equal(t, model.MovCobroSalida, ultimo.Tipo)
	assert.Equal(t, "20.00", ultimo.Monto.StringFixed(2))
	assert.Equal(t, model.MetodoYape, ultimo.MetodoPago)
}

func TestRegistrarSalidaCeroSeRegistra(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	req := reqEntrada("XYZ-987")
	req.Pagado = true
	resp, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, req)
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	// Prepaid and on time: nothing owed, yet the settlement is still recorded.
	f.ahora = inicio.Add(20 * time.Hour)
	salida, err := f.svc.RegistrarSalida(ctx, f.trabajadorID, f.turno.ID, id, dto.RegistrarSalidaRequest{})
	require.NoError(t, err)
	assert.True(t, salida.MontoCobrado.IsZero())
	assert.True(t, salida.YaPagoCompleto)

	movs, _ := f.movs.ListPorTurno(ctx, f.turno.ID)
	require.Len(t, movs, 2)
	assert.Equal(t, model.MovCobroSalida, movs[1].Tipo)
	assert.True(t, movs[1].Monto.IsZero())
}

func TestRegistrarSalidaPenalidadPrepago(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	req := reqEntrada("XYZ-987")
	req.Pagado = true
	resp, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, req)
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	f.ahora = inicio.Add(20 * time.Hour)
	salida, err := f.svc.RegistrarSalida(ctx, f.trabajadorID, f.turno.ID, id, dto.RegistrarSalidaRequest{
		Penalidad: decimal.NewFromInt(8),
		Descuento: decimal.NewFromInt(3),
	})
	require.NoError(t, err)
	assert.Equal(t, "5.00", salida.MontoCobrado.StringFixed(2))

	// The exit settles at zero and the charge rides alongside as PENALIDAD.
	movs, _ := f.movs.ListPorTurno(ctx, f.turno.ID)
	require.Len(t, movs, 3)
	assert.Equal(t, model.MovCobroSalida, movs[1].Tipo)
	assert.True(t, movs[1].Monto.IsZero())
	assert.Equal(t, model.MovPenalidad, movs[2].Tipo)
	assert.Equal(t, "5.00", movs[2].Monto.StringFixed(2))

	// The shift report sees one exit, with the money under penalidades.
	turnoSvc := NewTurnoService(f.turnos, f.movs, nil, func() time.Time { return f.ahora })
	r, err := turnoSvc.Reporte(ctx, f.turno.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.AutosSalieron)
	assert.Equal(t, "0.00", r.TotalCobros.StringFixed(2))
	assert.Equal(t, "5.00", r.TotalPenalidades.StringFixed(2))
}

func TestRegistrarSalidaDoble(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	resp, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("ABC-123"))
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	_, err = f.svc.RegistrarSalida(ctx, f.trabajadorID, f.turno.ID, id, dto.RegistrarSalidaRequest{})
	require.NoError(t, err)

	_, err = f.svc.RegistrarSalida(ctx, f.trabajadorID, f.turno.ID, id, dto.RegistrarSalidaRequest{})
	assert.ErrorIs(t, err, ErrEntradaYaSalio)
}

func TestRegistrarSalidaConcurrente(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	resp, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("ABC-123"))
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RegistrarSalida(ctx, f.trabajadorID, f.turno.ID, id, dto.RegistrarSalidaRequest{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ganadores := 0
	for err := range errs {
		if err == nil {
			ganadores++
		} else {
			assert.ErrorIs(t, err, ErrEntradaYaSalio)
		}
	}
	assert.Equal(t, 1, ganadores, "exactamente una salida debe ganar")
}

func TestRegistrarSalidaDiasDesactualizados(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	resp, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("ABC-123"))
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	f.ahora = inicio.Add(50 * time.Hour) // server sees 3 days

	salida, err := f.svc.RegistrarSalida(ctx, f.trabajadorID, f.turno.ID, id, dto.RegistrarSalidaRequest{
		DiasReales: 2, // stale figure from the operator's screen
	})
	require.NoError(t, err)
	assert.Equal(t, 3, salida.DiasReales)
	assert.True(t, salida.DiasDesactualizados)
}

func TestAutosEnCochera(t *testing.T) {
	f := newEntradaFixture()
	ctx := context.Background()

	_, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("ABC-123"))
	require.NoError(t, err)
	resp2, err := f.svc.RegistrarEntrada(ctx, f.trabajadorID, f.turno.ID, reqEntrada("DEF-456"))
	require.NoError(t, err)

	_, err = f.svc.RegistrarSalida(ctx, f.trabajadorID, f.turno.ID, uuid.MustParse(resp2.ID), dto.RegistrarSalidaRequest{})
	require.NoError(t, err)

	// The listing carries the name of the worker who admitted the vehicle.
	f.entradas.mu.Lock()
	for _, e := range f.entradas.entradas {
		e.Trabajador = &model.Trabajador{Nombre: "María Torres"}
	}
	f.entradas.mu.Unlock()

	autos, err := f.svc.AutosEnCochera(ctx)
	require.NoError(t, err)
	require.Len(t, autos, 1)
	assert.Equal(t, "ABC-123", autos[0].Placa)
	assert.Equal(t, "María Torres", autos[0].TrabajadorEntrada)
}

func TestNormalizarPlaca(t *testing.T) {
	assert.Equal(t, "ABC-123", NormalizarPlaca(" abc-123 "))
	assert.Equal(t, "V2G-771", NormalizarPlaca("v2g-771"))
	assert.Equal(t, "", NormalizarPlaca("   "))
}
