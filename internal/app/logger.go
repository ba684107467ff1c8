package app

import (
	"io"
	"os"

	"github.com/ChiaYuChang/hydrosearch/internal/config"
	"github.com/ChiaYuChang/hydrosearch/pkgs/utils"
	"github.com/rs/zerolog"
)

// NewLogger builds the process-wide zerolog logger, following the
// teacher's InitBaseLogger (internal/global/global.go) but taking
// configuration explicitly rather than reading package-level state.
func NewLogger(cfg config.LoggerConfig) zerolog.Logger {
	writer := utils.IfElse[io.Writer](cfg.Console, zerolog.ConsoleWriter{Out: os.Stdout}, os.Stdout)
	logger := zerolog.New(writer).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}
