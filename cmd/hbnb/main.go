// Command hbnb is the command interpreter for the hbnb object store.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hbnb/internal/config"
	"hbnb/internal/console"
	"hbnb/internal/core"
	"hbnb/internal/logging"
	"hbnb/pkg/domain"
)

// app carries flag values and the resources built in PersistentPreRunE.
type app struct {
	configPath string
	driver     string
	verbose    bool

	cfg     *config.Config
	logger  *zap.Logger
	metrics *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "hbnb",
		Short: "hbnb - command interpreter for the hbnb object store",
		Long: `hbnb manages BaseModel, User, State, City, Amenity, Place and Review
records persisted as one JSON document.

Run without arguments to start the interactive console; commands are also
read from a pipe:

  echo 'create User' | hbnb`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.logMetrics()
			_ = a.logger.Sync()
		},
		RunE: a.runConsole,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.driver, "driver", "", "storage driver override (file, memory, sqlite, postgres, s3)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "exec <line>...",
		Short: "Run each argument as a console command",
		Example: `  hbnb exec "create User"
  hbnb exec "User.count()" "all User"`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runExec,
	})
	root.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the persisted document as indented JSON",
		Args:  cobra.NoArgs,
		RunE:  a.runDump,
	})
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.driver != "" {
		cfg.Storage.Driver = a.driver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging, a.verbose)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.metrics = prometheus.NewRegistry()
	return nil
}

// openStore connects the configured backend and reloads the registry.
func (a *app) openStore(ctx context.Context) (*core.Store, error) {
	backend, err := core.OpenBackend(ctx, a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	metrics, err := core.NewMetrics(a.metrics)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	store := core.NewStore(backend, core.WithLogger(a.logger), core.WithMetrics(metrics))
	report, err := store.Reload(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.logger.Debug("store ready",
		zap.String("driver", string(backend.Driver())),
		zap.Int("records", len(store.All())),
		zap.Bool("corrupt", report.Corrupt),
		zap.Int("skipped", len(report.Skipped)))
	return store, nil
}

func (a *app) runConsole(cmd *cobra.Command, _ []string) error {
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	in := cmd.InOrStdin()
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = console.IsTerminal(f)
	}
	sh := console.New(store, cmd.OutOrStdout(), console.WithLogger(a.logger), console.WithInteractive(interactive))
	if err := sh.Run(cmd.Context(), in); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) runExec(cmd *cobra.Command, args []string) error {
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sh := console.New(store, cmd.OutOrStdout(), console.WithLogger(a.logger))
	for _, line := range args {
		if sh.Execute(cmd.Context(), line) {
			break
		}
	}
	return nil
}

func (a *app) runDump(cmd *cobra.Command, _ []string) error {
	backend, err := core.OpenBackend(cmd.Context(), a.cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	data, err := backend.Load(cmd.Context())
	if errors.Is(err, domain.ErrNoSnapshot) {
		data = []byte("{}")
	} else if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("snapshot is not valid JSON: %w", err)
	}
	buf.WriteByte('\n')
	_, err = io.Copy(cmd.OutOrStdout(), &buf)
	return err
}

// logMetrics writes the store counters at debug level.
func (a *app) logMetrics() {
	if a.metrics == nil || !a.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	families, err := a.metrics.Gather()
	if err != nil {
		a.logger.Debug("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName())}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			switch {
			case m.GetCounter() != nil:
				fields = append(fields, zap.Float64("value", m.GetCounter().GetValue()))
			case m.GetGauge() != nil:
				fields = append(fields, zap.Float64("value", m.GetGauge().GetValue()))
			}
			a.logger.Debug("metric", fields...)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
