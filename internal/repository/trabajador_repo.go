package repository

import (
	"context"

	"cochera/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrabajadorRepository interface {
	Create(ctx context.Context, t *model.Trabajador) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Trabajador, error)
	FindByUsuario(ctx context.Context, usuario string) (*model.Trabajador, error)
}

type trabajadorRepo struct{ db *gorm.DB }

func NewTrabajadorRepository(db *gorm.DB) TrabajadorRepository { return &trabajadorRepo{db: db} }

func (r *trabajadorRepo) Create(ctx context.Context, t *model.Trabajador) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *trabajadorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Trabajador, error) {
	var t model.Trabajador
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	return &t, err
}

func (r *trabajadorRepo) FindByUsuario(ctx context.Context, usuario string) (*model.Trabajador, error) {
	var t model.Trabajador
	err := r.db.WithContext(ctx).Where("usuario = ? AND activo = true", usuario).First(&t).Error
	return &t, err
}
