package service

import "errors"

// Business-rule and stale-reference errors. Handlers map these to HTTP
// statuses; none of them is retried automatically — the caller must correct
// its input or refresh its view of the state.
var (
	ErrValidacion          = errors.New("datos inválidos")
	ErrEntradaDuplicada    = errors.New("este vehículo ya se encuentra en la cochera")
	ErrEntradaNoEncontrada = errors.New("entrada no encontrada")
	ErrEntradaYaSalio      = errors.New("este auto ya salió")
	ErrTurnoNoEncontrado   = errors.New("turno no encontrado")
	ErrTurnoCerrado        = errors.New("el turno ya está cerrado")
	ErrClienteNoEncontrado = errors.New("cliente no encontrado")
	ErrCredenciales        = errors.New("credenciales inválidas")
)
