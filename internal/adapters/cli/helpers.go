package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	catalogLoader "github.com/andrescamacho/rts-production/internal/adapters/catalog"
	"github.com/andrescamacho/rts-production/internal/adapters/persistence"
	appProduction "github.com/andrescamacho/rts-production/internal/application/production"
	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
	"github.com/andrescamacho/rts-production/internal/infrastructure/config"
	"github.com/andrescamacho/rts-production/internal/infrastructure/database"
	"github.com/andrescamacho/rts-production/internal/infrastructure/logging"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed, color.Bold)
)

func disableColor() {
	color.NoColor = true
}

// environment bundles what every command that touches a world needs
type environment struct {
	cfg     *config.Config
	logger  zerolog.Logger
	costs   *catalog.Catalog
	closers []io.Closer
}

func newEnvironment() (*environment, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger, closer, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	costs, err := catalogLoader.LoadFileOrDefault(cfg.Economy.CatalogPath)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return &environment{cfg: cfg, logger: logger, costs: costs, closers: []io.Closer{closer}}, nil
}

func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

func (e *environment) worldConfig() appProduction.WorldConfig {
	return appProduction.WorldConfig{
		Factory:            e.cfg.Simulation.FactoryConfig(),
		Construction:       e.cfg.Construction.ToDomain(),
		FailureHistorySize: e.cfg.Economy.FailureHistorySize,
		BalanceCap:         e.cfg.Economy.BalanceCap,
	}
}

func (e *environment) worldOptions() []appProduction.WorldOption {
	opts := []appProduction.WorldOption{appProduction.WithWorldLogger(e.logger)}
	if e.cfg.Economy.Sandbox {
		opts = append(opts, appProduction.WithSandbox())
	}
	return opts
}

// newSeededWorld builds an empty world and applies the configured starting economies
func (e *environment) newSeededWorld() (*appProduction.World, error) {
	w, err := appProduction.NewWorld(e.costs, e.worldConfig(), e.worldOptions()...)
	if err != nil {
		return nil, err
	}
	if e.cfg.Economy.Sandbox {
		return w, nil
	}
	for _, f := range e.cfg.Economy.Factions {
		factionID, err := shared.NewFactionID(f.ID)
		if err != nil {
			return nil, err
		}
		if err := w.Deposit(factionID, f.REE, f.Power); err != nil {
			return nil, fmt.Errorf("seeding faction %d: %w", f.ID, err)
		}
		if f.CostModifier > 0 {
			if err := w.Validator.SetFactionModifier(factionID, f.CostModifier); err != nil {
				return nil, fmt.Errorf("seeding faction %d: %w", f.ID, err)
			}
		}
	}
	return w, nil
}

func (e *environment) openDatabase() (*gorm.DB, error) {
	db, err := database.NewConnection(&e.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	e.closers = append(e.closers, closerFunc(func() error { return database.Close(db) }))
	return db, nil
}

// loadWorld restores slot, or builds a fresh seeded world when the slot is empty
func (e *environment) loadWorld(ctx context.Context, repo *persistence.GormSaveRepository, slot string) (*appProduction.World, bool, error) {
	snapshot, err := repo.Load(ctx, slot)
	var notFound *persistence.ErrSaveSlotNotFound
	switch {
	case errors.As(err, &notFound):
		w, err := e.newSeededWorld()
		return w, false, err
	case err != nil:
		return nil, false, err
	}
	w, err := appProduction.RestoreWorld(snapshot, e.costs, e.worldConfig(), e.worldOptions()...)
	return w, true, err
}

// resolveSlot picks the --slot flag, then the user preference, then the configured slot
func (e *environment) resolveSlot() string {
	if slotFlag != "" {
		return slotFlag
	}
	if handler, err := config.NewUserConfigHandler(); err == nil {
		if userCfg, err := handler.Load(); err == nil && userCfg.DefaultSlot != "" {
			return userCfg.DefaultSlot
		}
	}
	return e.cfg.Server.SaveSlot
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
