package service

import (
	"context"
	"time"

	"cochera/internal/config"
	"cochera/internal/dto"
	"cochera/internal/model"
	"cochera/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
}

type authService struct {
	repo   repository.TrabajadorRepository
	turnos TurnoService
	cfg    *config.Config
}

func NewAuthService(repo repository.TrabajadorRepository, turnos TurnoService, cfg *config.Config) AuthService {
	return &authService{repo: repo, turnos: turnos, cfg: cfg}
}

// Login verifies credentials and, for cash-handling workers, makes sure an
// open shift exists: the token carries its id so every movement the worker
// records lands on their own shift.
func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	trabajador, err := s.repo.FindByUsuario(ctx, req.Usuario)
	if err != nil || !trabajador.Activo {
		return nil, ErrCredenciales
	}
	if err := bcrypt.CompareHashAndPassword([]byte(trabajador.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrCredenciales
	}
	return s.emitirTokens(ctx, trabajador)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrCredenciales
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrCredenciales
	}
	idStr, ok := claims["trabajador_id"].(string)
	if !ok {
		return nil, ErrCredenciales
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, ErrCredenciales
	}

	trabajador, err := s.repo.FindByID(ctx, id)
	if err != nil || !trabajador.Activo {
		return nil, ErrCredenciales
	}
	return s.emitirTokens(ctx, trabajador)
}

func (s *authService) emitirTokens(ctx context.Context, trabajador *model.Trabajador) (*dto.LoginResponse, error) {
	turnoID := ""
	if trabajador.Rol != model.RolAdmin {
		turno, err := s.turnos.AbrirParaTrabajador(ctx, trabajador.ID)
		if err != nil {
			return nil, err
		}
		turnoID = turno.ID.String()
	}

	accessToken, err := s.generarToken(trabajador, turnoID, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generarToken(trabajador, turnoID, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		Trabajador: dto.TrabajadorResponse{
			ID:      trabajador.ID.String(),
			Usuario: trabajador.Usuario,
			Nombre:  trabajador.Nombre,
			Rol:     trabajador.Rol,
		},
		TurnoID: turnoID,
	}, nil
}

func (s *authService) generarToken(t *model.Trabajador, turnoID string, duracion time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"trabajador_id": t.ID.String(),
		"usuario":       t.Usuario,
		"rol":           t.Rol,
		"turno_id":      turnoID,
		"exp":           time.Now().Add(duracion).Unix(),
		"iat":           time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
