package repository

import (
	"context"

	"cochera/internal/dto"
	"cochera/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovimientoRepository is the append-only ledger. There is deliberately no
// Update or Delete: corrections are modeled as new offsetting movements so
// the audit trail stays immutable.
type MovimientoRepository interface {
	// CreateTx appends a movement inside the caller's transaction. Callers
	// must hold the owning turno row (see TurnoRepository.LockTx) so a
	// movement can never land on a turno that closes concurrently.
	CreateTx(tx *gorm.DB, m *model.MovimientoCaja) error

	ListPorTurno(ctx context.Context, turnoID uuid.UUID) ([]model.MovimientoCaja, error)
	ListPorEntrada(ctx context.Context, entradaID uuid.UUID) ([]model.MovimientoCaja, error)

	// SumPorMetodo aggregates the turno's movements by payment method. Pure
	// read, no side effects; the reconciliation engine is its only consumer.
	SumPorMetodo(ctx context.Context, turnoID uuid.UUID) (dto.TotalesPorMetodo, error)
	// SumPorMetodoTx is the same aggregation bound to an open transaction,
	// used by the shift close to recompute against the latest committed state.
	SumPorMetodoTx(tx *gorm.DB, turnoID uuid.UUID) (dto.TotalesPorMetodo, error)

	SumPorTipo(ctx context.Context, turnoID uuid.UUID) (map[model.TipoMovimiento]decimal.Decimal, error)
	CountPorTipo(ctx context.Context, turnoID uuid.UUID, tipo model.TipoMovimiento) (int64, error)
}

type movimientoRepo struct{ db *gorm.DB }

func NewMovimientoRepository(db *gorm.DB) MovimientoRepository { return &movimientoRepo{db: db} }

func (r *movimientoRepo) CreateTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

func (r *movimientoRepo) ListPorTurno(ctx context.Context, turnoID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("turno_id = ?", turnoID).
		Order("created_at DESC").
		Find(&movs).Error
	return movs, err
}

func (r *movimientoRepo) ListPorEntrada(ctx context.Context, entradaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("entrada_id = ?", entradaID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *movimientoRepo) SumPorMetodo(ctx context.Context, turnoID uuid.UUID) (dto.TotalesPorMetodo, error) {
	return sumPorMetodo(r.db.WithContext(ctx), turnoID)
}

func (r *movimientoRepo) SumPorMetodoTx(tx *gorm.DB, turnoID uuid.UUID) (dto.TotalesPorMetodo, error) {
	return sumPorMetodo(tx, turnoID)
}

func sumPorMetodo(db *gorm.DB, turnoID uuid.UUID) (dto.TotalesPorMetodo, error) {
	var rows []struct {
		MetodoPago string
		Total      decimal.Decimal
	}
	err := db.Model(&model.MovimientoCaja{}).
		Select("metodo_pago, COALESCE(SUM(monto), 0) AS total").
		Where("turno_id = ?", turnoID).
		Group("metodo_pago").
		Scan(&rows).Error
	if err != nil {
		return dto.TotalesPorMetodo{}, err
	}

	t := dto.TotalesPorMetodo{Efectivo: decimal.Zero, Yape: decimal.Zero}
	for _, row := range rows {
		switch row.MetodoPago {
		case model.MetodoEfectivo:
			t.Efectivo = row.Total
		case model.MetodoYape:
			t.Yape = row.Total
		}
	}
	t.Total = t.Efectivo.Add(t.Yape)
	return t, nil
}

func (r *movimientoRepo) SumPorTipo(ctx context.Context, turnoID uuid.UUID) (map[model.TipoMovimiento]decimal.Decimal, error) {
	var rows []struct {
		Tipo  model.TipoMovimiento
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.MovimientoCaja{}).
		Select("tipo, COALESCE(SUM(monto), 0) AS total").
		Where("turno_id = ?", turnoID).
		Group("tipo").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[model.TipoMovimiento]decimal.Decimal, len(rows))
	for _, row := range rows {
		sums[row.Tipo] = row.Total
	}
	return sums, nil
}

func (r *movimientoRepo) CountPorTipo(ctx context.Context, turnoID uuid.UUID, tipo model.TipoMovimiento) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.MovimientoCaja{}).
		Where("turno_id = ? AND tipo = ?", turnoID, tipo).Count(&n).Error
	return n, err
}
