package repository

import (
	"context"
	"strconv"

	"cochera/internal/model"

	"gorm.io/gorm"
)

type ConfiguracionRepository interface {
	Get(ctx context.Context, clave string) (string, error)
	// GetInt returns the value parsed as int, or def when the row is missing
	// or malformed — business tunables always have a safe default.
	GetInt(ctx context.Context, clave string, def int) int
	Set(ctx context.Context, clave, valor string) error
	List(ctx context.Context) ([]model.Configuracion, error)
}

type configuracionRepo struct{ db *gorm.DB }

func NewConfiguracionRepository(db *gorm.DB) ConfiguracionRepository {
	return &configuracionRepo{db: db}
}

func (r *configuracionRepo) Get(ctx context.Context, clave string) (string, error) {
	var c model.Configuracion
	err := r.db.WithContext(ctx).Where("clave = ?", clave).First(&c).Error
	return c.Valor, err
}

func (r *configuracionRepo) GetInt(ctx context.Context, clave string, def int) int {
	valor, err := r.Get(ctx, clave)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(valor)
	if err != nil {
		return def
	}
	return n
}

func (r *configuracionRepo) Set(ctx context.Context, clave, valor string) error {
	res := r.db.WithContext(ctx).Model(&model.Configuracion{}).
		Where("clave = ?", clave).Update("valor", valor)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.db.WithContext(ctx).Create(&model.Configuracion{Clave: clave, Valor: valor}).Error
	}
	return nil
}

func (r *configuracionRepo) List(ctx context.Context) ([]model.Configuracion, error) {
	var configs []model.Configuracion
	err := r.db.WithContext(ctx).Order("clave ASC").Find(&configs).Error
	return configs, err
}
