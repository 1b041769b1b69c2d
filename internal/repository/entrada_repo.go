package repository

import (
	"context"

	"cochera/internal/dto"
	"cochera/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntradaRepository is the data access contract for parking stays. Services
// depend on this interface, not on the concrete GORM implementation, enabling
// clean unit testing via in-memory stubs.
type EntradaRepository interface {
	// CreateTx inserts a new entrada inside the caller's transaction. The
	// partial unique index on (placa) WHERE estado='abierta' rejects a second
	// open stay for the same plate; the violation surfaces as
	// gorm.ErrDuplicatedKey.
	CreateTx(tx *gorm.DB, e *model.Entrada) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Entrada, error)
	FindAbiertaPorPlaca(ctx context.Context, placa string) (*model.Entrada, error)
	ListAbiertas(ctx context.Context) ([]model.Entrada, error)
	CountAbiertas(ctx context.Context) (int64, error)

	// CerrarTx performs the compare-and-swap close: it only touches rows still
	// in estado='abierta' and reports whether the transition happened.
	CerrarTx(tx *gorm.DB, e *model.Entrada) (bool, error)

	ListPorCliente(ctx context.Context, clienteID uuid.UUID) ([]model.Entrada, error)
	Historial(ctx context.Context, filter dto.HistorialFilter) ([]model.Entrada, int64, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type entradaRepo struct{ db *gorm.DB }

func NewEntradaRepository(db *gorm.DB) EntradaRepository { return &entradaRepo{db: db} }

func (r *entradaRepo) CreateTx(tx *gorm.DB, e *model.Entrada) error {
	return tx.Create(e).Error
}

func (r *entradaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Entrada, error) {
	var e model.Entrada
	err := r.db.WithContext(ctx).Preload("Cliente").First(&e, "id = ?", id).Error
	return &e, err
}

func (r *entradaRepo) FindAbiertaPorPlaca(ctx context.Context, placa string) (*model.Entrada, error) {
	var e model.Entrada
	err := r.db.WithContext(ctx).
		Where("placa = ? AND estado = ?", placa, model.EntradaAbierta).
		First(&e).Error
	return &e, err
}

func (r *entradaRepo) ListAbiertas(ctx context.Context) ([]model.Entrada, error) {
	var entradas []model.Entrada
	err := r.db.WithContext(ctx).Preload("Cliente").Preload("Trabajador").
		Where("estado = ?", model.EntradaAbierta).
		Order("fecha_entrada DESC").
		Find(&entradas).Error
	return entradas, err
}

func (r *entradaRepo) CountAbiertas(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Entrada{}).
		Where("estado = ?", model.EntradaAbierta).Count(&n).Error
	return n, err
}

func (r *entradaRepo) CerrarTx(tx *gorm.DB, e *model.Entrada) (bool, error) {
	res := tx.Model(&model.Entrada{}).
		Where("id = ? AND estado = ?", e.ID, model.EntradaAbierta).
		Updates(map[string]interface{}{
			"estado":               model.EntradaCerrada,
			"fecha_salida":         e.FechaSalida,
			"dias_reales":          e.DiasReales,
			"penalidad":            e.Penalidad,
			"descuento":            e.Descuento,
			"monto_total":          e.MontoTotal,
			"monto_cobrado":        e.MontoCobrado,
			"observaciones":        e.Observaciones,
			"trabajador_salida_id": e.TrabajadorSalidaID,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *entradaRepo) ListPorCliente(ctx context.Context, clienteID uuid.UUID) ([]model.Entrada, error) {
	var entradas []model.Entrada
	err := r.db.WithContext(ctx).
		Where("cliente_id = ?", clienteID).
		Order("fecha_entrada DESC").
		Find(&entradas).Error
	return entradas, err
}

func (r *entradaRepo) Historial(ctx context.Context, filter dto.HistorialFilter) ([]model.Entrada, int64, error) {
	var entradas []model.Entrada
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Entrada{}).Preload("Cliente")

	if filter.Placa != "" {
		q = q.Where("placa LIKE ?", "%"+filter.Placa+"%")
	}
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Desde != "" {
		q = q.Where("fecha_entrada >= ?", filter.Desde)
	}
	if filter.Hasta != "" {
		q = q.Where("fecha_entrada <= ?", filter.Hasta)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("fecha_entrada DESC").Limit(filter.Limit).Offset(offset).Find(&entradas).Error
	return entradas, total, err
}

func (r *entradaRepo) DB() *gorm.DB { return r.db }
