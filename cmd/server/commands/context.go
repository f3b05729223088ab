package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/config"
)

// AppContext holds the application dependencies shared across all commands.
// Ctx is cancelled on SIGINT or SIGTERM.
type AppContext struct {
	Cfg    *config.Config
	Logger *zap.Logger
	Ctx    context.Context
}
