package repository

import (
	"context"
	"time"

	"cochera/internal/dto"
	"cochera/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TurnoRepository interface {
	Create(ctx context.Context, t *model.Turno) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Turno, error)
	FindAbiertoPorTrabajador(ctx context.Context, trabajadorID uuid.UUID) (*model.Turno, error)

	// LockTx reads the turno row under a share lock inside the caller's
	// transaction. Every movement write goes through this so a concurrent
	// close (which takes the row exclusively) serializes against it.
	LockTx(tx *gorm.DB, id uuid.UUID) (*model.Turno, error)

	// LockCierreTx takes the turno row exclusively (FOR UPDATE) inside the
	// closing transaction, before the ledger sums are read. Share-holding
	// movement writers commit first and get counted; writers arriving after
	// the lock see the row cerrado and are rejected.
	LockCierreTx(tx *gorm.DB, id uuid.UUID) (*model.Turno, error)

	// CerrarTx performs the compare-and-swap close on rows still abiertas
	// and reports whether the transition happened.
	CerrarTx(tx *gorm.DB, t *model.Turno) (bool, error)

	List(ctx context.Context, filter dto.TurnoFilter) ([]model.Turno, int64, error)

	// Shift-close report bookkeeping for the worker pool.
	PendientesReporte(ctx context.Context, ahora time.Time, limit int) ([]model.Turno, error)
	MarcarReporteEnviado(ctx context.Context, id uuid.UUID) error
	RegistrarErrorReporte(ctx context.Context, id uuid.UUID, msg string, proximo *time.Time) error

	DB() *gorm.DB
}

type turnoRepo struct{ db *gorm.DB }

func NewTurnoRepository(db *gorm.DB) TurnoRepository { return &turnoRepo{db: db} }

func (r *turnoRepo) Create(ctx context.Context, t *model.Turno) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *turnoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Turno, error) {
	var t model.Turno
	err := r.db.WithContext(ctx).Preload("Trabajador").First(&t, "id = ?", id).Error
	return &t, err
}

func (r *turnoRepo) FindAbiertoPorTrabajador(ctx context.Context, trabajadorID uuid.UUID) (*model.Turno, error) {
	var t model.Turno
	err := r.db.WithContext(ctx).
		Where("trabajador_id = ? AND estado = ?", trabajadorID, model.TurnoAbierto).
		Order("fecha_inicio DESC").
		First(&t).Error
	return &t, err
}

func (r *turnoRepo) LockTx(tx *gorm.DB, id uuid.UUID) (*model.Turno, error) {
	var t model.Turno
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&t, "id = ?", id).Error
	return &t, err
}

func (r *turnoRepo) LockCierreTx(tx *gorm.DB, id uuid.UUID) (*model.Turno, error) {
	var t model.Turno
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", id).Error
	return &t, err
}

func (r *turnoRepo) CerrarTx(tx *gorm.DB, t *model.Turno) (bool, error) {
	res := tx.Model(&model.Turno{}).
		Where("id = ? AND estado = ?", t.ID, model.TurnoAbierto).
		Updates(map[string]interface{}{
			"estado":               model.TurnoCerrado,
			"fecha_fin":            t.FechaFin,
			"total_efectivo":       t.TotalEfectivo,
			"total_yape":           t.TotalYape,
			"efectivo_declarado":   t.EfectivoDeclarado,
			"yape_declarado":       t.YapeDeclarado,
			"dif_efectivo":         t.DifEfectivo,
			"dif_yape":             t.DifYape,
			"diferencia":           t.Diferencia,
			"observaciones":        t.Observaciones,
			"proximo_reintento_at": t.ProximoReintentoAt,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *turnoRepo) List(ctx context.Context, filter dto.TurnoFilter) ([]model.Turno, int64, error) {
	var turnos []model.Turno
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Turno{}).Preload("Trabajador")

	if filter.TrabajadorID != "" {
		q = q.Where("trabajador_id = ?", filter.TrabajadorID)
	}
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Desde != "" {
		q = q.Where("fecha_inicio >= ?", filter.Desde)
	}
	if filter.Hasta != "" {
		q = q.Where("fecha_inicio <= ?", filter.Hasta)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("fecha_inicio DESC").Limit(filter.Limit).Offset(offset).Find(&turnos).Error
	return turnos, total, err
}

func (r *turnoRepo) PendientesReporte(ctx context.Context, ahora time.Time, limit int) ([]model.Turno, error) {
	var turnos []model.Turno
	err := r.db.WithContext(ctx).Preload("Trabajador").
		Where("estado = ? AND reporte_enviado = false AND proximo_reintento_at IS NOT NULL AND proximo_reintento_at <= ?",
			model.TurnoCerrado, ahora).
		Limit(limit).
		Find(&turnos).Error
	return turnos, err
}

func (r *turnoRepo) MarcarReporteEnviado(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Turno{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reporte_enviado":      true,
			"proximo_reintento_at": nil,
			"ultimo_error_reporte": nil,
		}).Error
}

func (r *turnoRepo) RegistrarErrorReporte(ctx context.Context, id uuid.UUID, msg string, proximo *time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Turno{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reporte_intentos":     gorm.Expr("reporte_intentos + 1"),
			"proximo_reintento_at": proximo,
			"ultimo_error_reporte": msg,
		}).Error
}

func (r *turnoRepo) DB() *gorm.DB { return r.db }
