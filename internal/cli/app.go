package cli

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"

	"learnemg/internal/config"
	"learnemg/internal/db"
	"learnemg/internal/gemini"
	"learnemg/internal/logging"
	"learnemg/internal/prefs"
)

// app holds the resources a command opened. close releases them in reverse.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	prefs  *prefs.Store
	db     *sql.DB
	dbErr  error
	client *gemini.Client

	closers []io.Closer
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagPersona != "" {
		cfg.Persona = flagPersona
	}
	if flagContentDir != "" {
		cfg.ContentDir = flagContentDir
	}
	if flagModel != "" {
		cfg.API.Model = flagModel
	}
	if flagTheme != "" {
		cfg.Theme = flagTheme
	}
	return cfg, nil
}

// openApp loads configuration and opens the log, preferences and API
// client. withDB also opens the transcript database; a database failure is
// kept in dbErr rather than failing the command.
func openApp(withDB bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	log, f, err := logging.OpenFile(cfg.Path("learnemg.log"), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a.log = log
	a.closers = append(a.closers, f)

	store, err := prefs.Open(cfg.Path("prefs.db"))
	if err != nil {
		a.close()
		return nil, err
	}
	a.prefs = store
	a.closers = append(a.closers, store)

	if withDB {
		a.db, a.dbErr = db.Open(cfg.Path("learnemg.db"))
		if a.dbErr != nil {
			a.log.Error("open transcript database", "error", a.dbErr)
		} else {
			a.closers = append(a.closers, a.db)
		}
	}

	a.client, err = gemini.New(gemini.Options{
		BaseURL:           cfg.API.BaseURL,
		Model:             cfg.API.Model,
		PinModel:          flagModel != "",
		APIKey:            cfg.APIKey,
		RequestTimeout:    cfg.API.RequestTimeout.Duration,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
	}, store, log)
	if err != nil {
		a.close()
		return nil, err
	}
	a.log.Info("started", "data_dir", cfg.DataDir, "model", a.client.Model())
	return a, nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
