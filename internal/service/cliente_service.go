package service

import (
	"context"
	"fmt"
	"strings"

	"cochera/internal/dto"
	"cochera/internal/model"
	"cochera/internal/repository"

	"github.com/google/uuid"
)

// ClienteService exposes the plate-keyed customer directory. Most clientes are
// created implicitly at check-in; this service covers the explicit CRUD the
// admin screens use plus the per-customer visit history.
type ClienteService interface {
	Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
	Listar(ctx context.Context, filter dto.ClienteFilter) (*dto.ClienteListResponse, error)
	Historial(ctx context.Context, id uuid.UUID) (*dto.ClienteHistorialResponse, error)
	BuscarPorPlaca(ctx context.Context, placa string) (*dto.ClienteResponse, error)
}

type clienteService struct {
	repo        repository.ClienteRepository
	entradaRepo repository.EntradaRepository
}

func NewClienteService(repo repository.ClienteRepository, entradaRepo repository.EntradaRepository) ClienteService {
	return &clienteService{repo: repo, entradaRepo: entradaRepo}
}

func (s *clienteService) Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error) {
	placa := NormalizarPlaca(req.Placa)
	if placa == "" || strings.TrimSpace(req.Nombre) == "" {
		return nil, fmt.Errorf("%w: placa y nombre son requeridos", ErrValidacion)
	}
	if req.PrecioDia != nil && !req.PrecioDia.IsPositive() {
		return nil, fmt.Errorf("%w: el precio por día debe ser mayor a 0", ErrValidacion)
	}

	var celular *string
	if c := strings.TrimSpace(req.Celular); c != "" {
		celular = &c
	}
	cliente := &model.Cliente{
		Placa:     placa,
		Nombre:    strings.TrimSpace(req.Nombre),
		Celular:   celular,
		PrecioDia: req.PrecioDia,
	}
	if err := s.repo.Create(ctx, cliente); err != nil {
		return nil, err
	}
	r := clienteToResponse(cliente)
	return &r, nil
}

func (s *clienteService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error) {
	cliente, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrClienteNoEncontrado
	}
	if n := strings.TrimSpace(req.Nombre); n != "" {
		cliente.Nombre = n
	}
	if req.Celular != nil {
		if c := strings.TrimSpace(*req.Celular); c != "" {
			cliente.Celular = &c
		} else {
			cliente.Celular = nil
		}
	}
	if req.PrecioDia != nil {
		if !req.PrecioDia.IsPositive() {
			return nil, fmt.Errorf("%w: el precio por día debe ser mayor a 0", ErrValidacion)
		}
		cliente.PrecioDia = req.PrecioDia
	}
	if err := s.repo.Update(ctx, cliente); err != nil {
		return nil, err
	}
	r := clienteToResponse(cliente)
	return &r, nil
}

func (s *clienteService) Eliminar(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return ErrClienteNoEncontrado
	}
	return s.repo.Delete(ctx, id)
}

func (s *clienteService) Listar(ctx context.Context, filter dto.ClienteFilter) (*dto.ClienteListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	clientes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ClienteResponse, 0, len(clientes))
	for _, c := range clientes {
		data = append(data, clienteToResponse(&c))
	}
	return &dto.ClienteListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Historial joins the cliente with aggregate stats and the full list of
// closed and open stays for the plate.
func (s *clienteService) Historial(ctx context.Context, id uuid.UUID) (*dto.ClienteHistorialResponse, error) {
	cliente, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrClienteNoEncontrado
	}
	stats, err := s.repo.Estadisticas(ctx, id)
	if err != nil {
		return nil, err
	}
	visitas, err := s.entradaRepo.ListPorCliente(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.ClienteHistorialResponse{
		Cliente:      clienteToResponse(cliente),
		Estadisticas: *stats,
		Visitas:      make([]dto.EntradaResponse, 0, len(visitas)),
	}
	for _, e := range visitas {
		resp.Visitas = append(resp.Visitas, entradaToResponse(&e, cliente.Nombre, cliente.Celular))
	}
	return resp, nil
}

func (s *clienteService) BuscarPorPlaca(ctx context.Context, placa string) (*dto.ClienteResponse, error) {
	cliente, err := s.repo.FindByPlaca(ctx, NormalizarPlaca(placa))
	if err != nil {
		return nil, ErrClienteNoEncontrado
	}
	r := clienteToResponse(cliente)
	return &r, nil
}

func clienteToResponse(c *model.Cliente) dto.ClienteResponse {
	return dto.ClienteResponse{
		ID:        c.ID.String(),
		Placa:     c.Placa,
		Nombre:    c.Nombre,
		Celular:   c.Celular,
		PrecioDia: c.PrecioDia,
	}
}
