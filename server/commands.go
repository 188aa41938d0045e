package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spotforge/server/classify"
	"spotforge/server/engine"
	"spotforge/server/freq"
	"spotforge/server/report"
	"spotforge/server/spot"
	"spotforge/server/store"
)

var (
	recordRun   bool
	jsonOut     bool
	repairWrite bool
	repairID    string
	fillWrite   bool
	freqHand    string
	freqTurn    string
	freqNode    string
	freqN       int
)

var validateCmd = &cobra.Command{
	Use:   "validate [spots-file]",
	Short: "Validate every spot in the store (or in a JSON/JSONL file)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

var repairCmd = &cobra.Command{
	Use:   "repair [spots-file]",
	Short: "Recompute pots and percent sizings, then re-validate",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRepair,
}

var freqCmd = &cobra.Command{
	Use:   "freq",
	Short: "Print the fallback frequency vector for an intent triple",
	RunE:  runFreq,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill [spots-file]",
	Short: "Fill missing meta.freq from the fallback table",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackfill,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the SQL schema for the configured store",
	RunE:  runMigrate,
}

func init() {
	validateCmd.Flags().BoolVar(&recordRun, "record", false, "persist the run when the store keeps run history")
	validateCmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")

	repairCmd.Flags().BoolVar(&repairWrite, "write", false, "write repaired spots back to the store")
	repairCmd.Flags().StringVar(&repairID, "id", "", "repair a single spot")

	backfillCmd.Flags().BoolVar(&fillWrite, "write", false, "write filled spots back to the store")

	freqCmd.Flags().StringVar(&freqHand, "hand", "", "hand intent")
	freqCmd.Flags().StringVar(&freqTurn, "turn", string(classify.BlankTurn), "turn type")
	freqCmd.Flags().StringVar(&freqNode, "node", "", "node intent")
	freqCmd.Flags().IntVarP(&freqN, "options", "n", 3, "number of options")
	_ = freqCmd.MarkFlagRequired("hand")
	_ = freqCmd.MarkFlagRequired("node")
}

func fileArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDeps(ctx, true, fileArg(args))
	if err != nil {
		return err
	}
	defer d.Close()

	spots, err := d.store.List(ctx)
	if err != nil {
		return err
	}
	rep, err := d.runner().Run(ctx, spots)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else if err := rep.WriteText(out); err != nil {
		return err
	}

	if recordRun {
		if rr, ok := d.store.(store.RunRecorder); ok {
			if err := rr.RecordRun(ctx, rep.Run()); err != nil {
				return err
			}
			d.log.Info("run recorded", zap.String("run_id", rep.RunID.String()))
		} else {
			d.log.Warn("store does not keep run history; --record ignored")
		}
	}
	if rep.Failed() {
		return ErrBadSpots
	}
	return nil
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDeps(ctx, true, fileArg(args))
	if err != nil {
		return err
	}
	defer d.Close()

	var spots []*spot.Spot
	if repairID != "" {
		s, err := d.store.Get(ctx, repairID)
		if err != nil {
			return fmt.Errorf("repair %s: %w", repairID, err)
		}
		spots = []*spot.Spot{s}
	} else if spots, err = d.store.List(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var changed []*spot.Spot
	stillBad := 0
	for _, s := range spots {
		fixed := engine.Repair(s)
		if !cmp.Equal(s, fixed) {
			changed = append(changed, fixed)
			fmt.Fprintf(out, "%s: repaired\n", s.ID)
		}
		if res := d.validator.Validate(fixed); !res.OK {
			stillBad++
			for _, e := range res.Errors {
				fmt.Fprintf(out, "%s: %s\n", s.ID, e)
			}
		}
	}
	report.CountRepairs(ctx, "cli", len(changed))

	if repairWrite && len(changed) > 0 {
		if err := d.store.Replace(ctx, changed); err != nil {
			return err
		}
		d.log.Info("repaired spots written", zap.Int("count", len(changed)))
	}
	fmt.Fprintf(out, "total=%d repaired=%d still_bad=%d\n", len(spots), len(changed), stillBad)
	return nil
}

func runFreq(cmd *cobra.Command, args []string) error {
	hand, turn, node := classify.HandIntent(freqHand), classify.TurnType(freqTurn), classify.NodeIntent(freqNode)
	if err := checkIntents(hand, turn, node); err != nil {
		return err
	}
	if freqN < 0 {
		return fmt.Errorf("n must be non-negative, got %d", freqN)
	}
	d, err := openDeps(cmd.Context(), false, "")
	if err != nil {
		return err
	}
	vec := d.table.Lookup(hand, turn, node, freqN)
	return json.NewEncoder(cmd.OutOrStdout()).Encode(vec)
}

func checkIntents(hand classify.HandIntent, turn classify.TurnType, node classify.NodeIntent) error {
	var errs []error
	if !hand.Valid() {
		errs = append(errs, fmt.Errorf("unknown hand intent %q", hand))
	}
	if !turn.Valid() {
		errs = append(errs, fmt.Errorf("unknown turn type %q", turn))
	}
	if !node.Valid() {
		errs = append(errs, fmt.Errorf("unknown node intent %q", node))
	}
	return errors.Join(errs...)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDeps(ctx, true, fileArg(args))
	if err != nil {
		return err
	}
	defer d.Close()

	spots, err := d.store.List(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	var filled []*spot.Spot
	for _, s := range spots {
		if f, ok := freq.Backfill(s, d.classifier, d.table); ok {
			filled = append(filled, f)
			b, _ := json.Marshal(f.Data.Meta.Freq)
			fmt.Fprintf(out, "%s: %s\n", f.ID, b)
		}
	}
	if fillWrite && len(filled) > 0 {
		if err := d.store.Replace(ctx, filled); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "total=%d filled=%d\n", len(spots), len(filled))
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDeps(ctx, true, "")
	if err != nil {
		return err
	}
	defer d.Close()
	m, ok := d.store.(store.Migrator)
	if !ok {
		d.log.Info("store has no schema to migrate", zap.String("backend", cfg.Backend()))
		return nil
	}
	if err := m.Migrate(ctx); err != nil {
		return err
	}
	d.log.Info("migrations applied", zap.String("backend", cfg.Backend()))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go watchSignals(cancel)

	d, err := openDeps(ctx, true, "")
	if err != nil {
		return err
	}
	defer d.Close()

	srv := &http.Server{Addr: cfg.Addr(), Handler: Router(d), ReadTimeout: 15 * time.Second, WriteTimeout: 30 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	d.log.Info("HTTP listening", zap.String("addr", srv.Addr), zap.String("backend", cfg.Backend()))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	d.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func watchSignals(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	cancel()
}
