package repository

import (
	"context"

	"cochera/internal/dto"
	"cochera/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClienteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	FindByPlaca(ctx context.Context, placa string) (*model.Cliente, error)
	// UpsertTx creates the cliente for a plate or refreshes its contact data
	// and rate, inside the check-in transaction.
	UpsertTx(tx *gorm.DB, c *model.Cliente) error
	Create(ctx context.Context, c *model.Cliente) error
	Update(ctx context.Context, c *model.Cliente) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter dto.ClienteFilter) ([]model.Cliente, int64, error)
	Estadisticas(ctx context.Context, clienteID uuid.UUID) (*dto.ClienteEstadisticas, error)
}

type clienteRepo struct{ db *gorm.DB }

func NewClienteRepository(db *gorm.DB) ClienteRepository { return &clienteRepo{db: db} }

func (r *clienteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *clienteRepo) FindByPlaca(ctx context.Context, placa string) (*model.Cliente, error) {
	var c model.Cliente
	err := r.db.WithContext(ctx).Where("placa = ?", placa).First(&c).Error
	return &c, err
}

func (r *clienteRepo) UpsertTx(tx *gorm.DB, c *model.Cliente) error {
	var existing model.Cliente
	err := tx.Where("placa = ?", c.Placa).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return tx.Create(c).Error
	}
	if err != nil {
		return err
	}
	c.ID = existing.ID
	return tx.Model(&existing).Updates(map[string]interface{}{
		"nombre":     c.Nombre,
		"celular":    c.Celular,
		"precio_dia": c.PrecioDia,
	}).Error
}

func (r *clienteRepo) Create(ctx context.Context, c *model.Cliente) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *clienteRepo) Update(ctx context.Context, c *model.Cliente) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *clienteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Cliente{}, "id = ?", id).Error
}

func (r *clienteRepo) List(ctx context.Context, filter dto.ClienteFilter) ([]model.Cliente, int64, error) {
	var clientes []model.Cliente
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Cliente{})
	if filter.Busqueda != "" {
		term := "%" + filter.Busqueda + "%"
		q = q.Where("placa LIKE ? OR nombre ILIKE ?", term, term)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("nombre ASC").Limit(filter.Limit).Offset(offset).Find(&clientes).Error
	return clientes, total, err
}

func (r *clienteRepo) Estadisticas(ctx context.Context, clienteID uuid.UUID) (*dto.ClienteEstadisticas, error) {
	var stats dto.ClienteEstadisticas
	err := r.db.WithContext(ctx).Model(&model.Entrada{}).
		Select(`COUNT(*) AS total_visitas,
			COALESCE(SUM(monto_total), 0) AS total_gastado,
			COALESCE(AVG(dias_reales), 0) AS promedio_dias`).
		Where("cliente_id = ? AND estado = ?", clienteID, model.EntradaCerrada).
		Scan(&stats).Error
	return &stats, err
}
