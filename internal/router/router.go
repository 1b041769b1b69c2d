package router

import (
	"time"

	"cochera/internal/config"
	"cochera/internal/handler"
	"cochera/internal/middleware"
	"cochera/internal/model"
	"cochera/internal/repository"
	"cochera/internal/service"
	"cochera/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	trabajadorRepo := repository.NewTrabajadorRepository(db)
	clienteRepo := repository.NewClienteRepository(db)
	entradaRepo := repository.NewEntradaRepository(db)
	turnoRepo := repository.NewTurnoRepository(db)
	movRepo := repository.NewMovimientoRepository(db)
	configRepo := repository.NewConfiguracionRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	turnoSvc := service.NewTurnoService(turnoRepo, movRepo, dispatcher, nil)
	authSvc := service.NewAuthService(trabajadorRepo, turnoSvc, cfg)
	entradaSvc := service.NewEntradaService(entradaRepo, clienteRepo, movRepo, turnoRepo, configRepo, nil)
	clienteSvc := service.NewClienteService(clienteRepo, entradaRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	entradasH := handler.NewEntradaHandler(entradaSvc)
	turnosH := handler.NewTurnoHandler(turnoSvc)
	clientesH := handler.NewClienteHandler(clienteSvc)
	adminH := handler.NewAdminHandler(configRepo)
	ocupacionH := handler.NewOcupacionHandler(entradaRepo, configRepo, rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	operador := middleware.RequireRole(model.RolTrabajador, model.RolAdmin)
	admin := middleware.RequireRole(model.RolAdmin)
	v1 := r.Group("/v1", jwtMW)
	{
		entradas := v1.Group("/entradas", operador)
		{
			entradas.POST("", entradasH.Registrar)
			entradas.GET("/cochera", entradasH.EnCochera)
			entradas.GET("/:id/cobro", entradasH.CalcularCobro)
			entradas.POST("/:id/salida", entradasH.Salida)
			entradas.GET("", entradasH.Historial)
		}

		turnos := v1.Group("/turnos", operador)
		{
			turnos.GET("/actual", turnosH.Actual)
			turnos.POST("/:id/preview-cierre", turnosH.Preview)
			turnos.POST("/:id/cerrar", turnosH.Cerrar)
			turnos.GET("/:id/reporte", turnosH.Reporte)
			turnos.GET("/:id", turnosH.Detalle)
		}
		v1.GET("/turnos", admin, turnosH.Historial)

		clientes := v1.Group("/clientes", operador)
		{
			clientes.GET("", clientesH.Listar)
			clientes.GET("/placa/:placa", clientesH.PorPlaca)
			clientes.GET("/:id/historial", clientesH.Historial)
		}
		clientesAdmin := v1.Group("/clientes", admin)
		{
			clientesAdmin.POST("", clientesH.Crear)
			clientesAdmin.PUT("/:id", clientesH.Actualizar)
			clientesAdmin.DELETE("/:id", clientesH.Eliminar)
		}

		v1.GET("/ocupacion", operador, ocupacionH.Ocupacion)
		v1.GET("/alertas", operador, ocupacionH.Alertas)

		configuracion := v1.Group("/configuracion", admin)
		{
			configuracion.GET("", adminH.ListarConfiguracion)
			configuracion.PUT("", adminH.ActualizarConfiguracion)
		}
	}

	return r
}
