package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/datareadygo/internal/artifact"
	"github.com/vk/datareadygo/internal/config"
	"github.com/vk/datareadygo/internal/memstore"
	"github.com/vk/datareadygo/internal/session"
	"github.com/vk/datareadygo/internal/sqlitestore"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	cfg     *Config
	session *session.Session
	closer  func() error
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, store and
// session.
func NewApp(outW io.Writer, errW io.Writer, appConfig *Config) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, errW)
	logger.Debug("Logger configured successfully.")

	cfg := config.Default()
	if appConfig.ConfigPath != "" {
		loaded, err := config.Load(appConfig.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
	}

	var (
		store  artifact.Store
		closer func() error
	)
	if appConfig.StorePath != "" {
		db, err := sqlitestore.Open(appConfig.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open artifact store: %w", err)
		}
		store = db
		closer = db.Close
		logger.Debug("SQLite artifact store opened.", "path", appConfig.StorePath)
	} else {
		store = memstore.New()
		closer = func() error { return nil }
	}

	sess, err := session.New(cfg, store)
	if err != nil {
		_ = closer()
		return nil, err
	}

	return &App{
		outW:    outW,
		logger:  logger,
		cfg:     appConfig,
		session: sess,
		closer:  closer,
	}, nil
}

// Session returns the application's session. This is primarily for
// testing.
func (a *App) Session() *session.Session {
	return a.session
}

// Close releases the artifact store.
func (a *App) Close() error {
	return a.closer()
}
