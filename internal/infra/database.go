package infra

import (
	"fmt"

	"cochera/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that
// AutoMigrate cannot express (the partial unique index on open stays, seed
// rows for the runtime configuration).
//
// TranslateError is on so a unique-index violation surfaces as
// gorm.ErrDuplicatedKey instead of a driver-specific error string.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations applies the schema and the post-migration patches. Exposed
// separately so integration tests can run it against a scratch database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Trabajador{},
		&model.Cliente{},
		&model.Entrada{},
		&model.Turno{},
		&model.MovimientoCaja{},
		&model.Configuracion{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM AutoMigrate cannot fully
// handle on its own. Each statement uses IF NOT EXISTS / DO NOTHING semantics
// so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// One open stay per plate. A partial unique index lets the same plate
		// re-enter any number of times once its previous stay is closed, while
		// two concurrent check-ins for the same plate collide at the database.
		{"partial unique index on open entradas", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uni_entradas_placa_abierta') THEN
    CREATE UNIQUE INDEX uni_entradas_placa_abierta
        ON entradas (placa)
        WHERE estado = 'abierta';
  END IF;
END $$`},
		// Partial index for the report retry cron query.
		{"partial index on pending shift reports", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_turnos_reporte_pendiente') THEN
    CREATE INDEX idx_turnos_reporte_pendiente
        ON turnos (proximo_reintento_at)
        WHERE estado = 'cerrado' AND reporte_enviado = false AND proximo_reintento_at IS NOT NULL;
  END IF;
END $$`},
		// Seed the runtime configuration with its defaults.
		{"seed configuracion defaults", `
INSERT INTO configuraciones (id, clave, valor, descripcion)
VALUES
  (gen_random_uuid(), 'tolerancia_minutos', '60', 'Minutos de gracia antes de sugerir penalidad'),
  (gen_random_uuid(), 'capacidad_maxima', '50', 'Espacios totales de la cochera'),
  (gen_random_uuid(), 'precio_default', '10', 'Precio por día sugerido para clientes nuevos')
ON CONFLICT (clave) DO NOTHING`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
