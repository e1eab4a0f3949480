package app

import (
	"os"
	"path/filepath"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/logx"
)

// NewLogger returns the JSON stdout logger at the configured level, tagged with
// the binary name so API and intake worker entries can be told apart.
func NewLogger(cfg *config.Config) logx.Logger {
	return logx.NewJSON(os.Stdout, cfg.LogLevel).With(logx.String("service", filepath.Base(os.Args[0])))
}
