package api

import (
	"log/slog"

	"github.com/shaiso/Waferline/internal/lifecycle"
	"github.com/shaiso/Waferline/internal/saga"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	repo   lifecycle.Repository
	engine *lifecycle.Engine
	saga   *saga.Saga
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Repo   lifecycle.Repository
	Engine *lifecycle.Engine
	Saga   *saga.Saga
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		repo:   cfg.Repo,
		engine: cfg.Engine,
		saga:   cfg.Saga,
		logger: cfg.Logger,
	}
}
