package cli

import (
	"fmt"

	"learnemg/internal/companion"
	"learnemg/internal/content"
	"learnemg/internal/db"
	"learnemg/internal/persona"
	"learnemg/internal/reflex"
	"learnemg/internal/styles"
	"learnemg/internal/ui"

	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	lib, err := content.Load(cfg.ContentDir)
	if err != nil {
		return err
	}
	var watcher *content.Watcher
	if cfg.ContentDir != "" {
		watcher, err = content.Watch(cfg.ContentDir, a.log)
		if err != nil {
			// The page still works without live reload.
			a.log.Warn("module watcher unavailable", "dir", cfg.ContentDir, "error", err)
		}
	}

	personas := persona.NewManager()
	if _, err := personas.SetActive(cfg.Persona); err != nil {
		return fmt.Errorf("--persona: %w", err)
	}

	styles.InitTheme(cfg.Theme)

	deps := companion.Deps{
		Reflex:    reflex.NewMatcher(reflex.DefaultRules),
		Generator: a.client,
		Log:       a.log,
	}
	if a.db != nil {
		deps.Recorder = db.NewRecorder(a.db)
	}

	m := ui.New(ui.Options{
		Library:  lib,
		Watcher:  watcher,
		Personas: personas,
		Deps:     deps,
		Settings: cfg.Companion,
		Lister:   a.client,
		DB:       a.db,
		DBErr:    a.dbErr,
		Log:      a.log,
	})
	defer m.Close()

	if _, err := ui.NewProgram(m).Run(); err != nil {
		a.log.Error("program exited", "error", err)
		return err
	}
	return nil
}
