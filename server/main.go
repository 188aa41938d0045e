package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"spotforge/server/classify"
	"spotforge/server/config"
	"spotforge/server/engine"
	"spotforge/server/freq"
	"spotforge/server/report"
	"spotforge/server/store"
)

// ErrBadSpots is returned by validate when at least one spot fails.
var ErrBadSpots = errors.New("validation failed")

var (
	logger     *zap.Logger
	cfg        config.Config
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "spotforge",
	Short: "Validate, repair and annotate poker training spots",
	Long: `spotforge checks training spots for tuple grammar, street order, pot
arithmetic and hand/node intent consistency, repairs arithmetic drift, and
fills fallback action frequencies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $SPOTFORGE_CONFIG)")
	rootCmd.AddCommand(validateCmd, repairCmd, freqCmd, backfillCmd, serveCmd, migrateCmd)
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

// deps is what the commands and the router share.
type deps struct {
	log        *zap.Logger
	store      store.Store
	classifier classify.Classifier
	validator  *engine.Validator
	table      *freq.Table
	workers    int
}

// openDeps builds the shared pieces. The store is opened only when asked
// for, or when path overrides it with a spot file.
func openDeps(ctx context.Context, withStore bool, path string) (*deps, error) {
	log := logger
	if log == nil {
		log = zap.NewNop()
	}
	d := &deps{
		log:        log,
		classifier: classify.Default{},
		table:      freq.Default(),
		workers:    cfg.ValidateWorkers,
	}
	d.validator = engine.NewValidator(d.classifier)
	if cfg.FreqTable != "" {
		t, err := freq.LoadTable(cfg.FreqTable)
		if err != nil {
			return nil, err
		}
		log.Info("frequency table loaded", zap.String("path", cfg.FreqTable), zap.Int("entries", t.Len()))
		d.table = t
	}
	switch {
	case strings.TrimSpace(path) != "":
		d.store = store.OpenFile(path, log)
	case withStore:
		st, err := store.Open(ctx, cfg.StoreOptions(log))
		if err != nil {
			return nil, err
		}
		log.Debug("store opened", zap.String("backend", cfg.Backend()))
		d.store = st
	}
	return d, nil
}

func (d *deps) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.Warn("store close", zap.Error(err))
		}
	}
}

func (d *deps) runner() *report.Runner {
	return &report.Runner{Validator: d.validator, Workers: d.workers, Logger: d.log}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrBadSpots) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
