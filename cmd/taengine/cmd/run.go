package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/taengine/backtest"
	"github.com/rustyeddy/taengine/config"
	"github.com/rustyeddy/taengine/engine"
	"github.com/rustyeddy/taengine/internal/logger"
	"github.com/rustyeddy/taengine/journal"
	"github.com/rustyeddy/taengine/memo"
	"github.com/rustyeddy/taengine/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a bar file through the configured strategy and indicators",
	Long: `Run replays the bar CSV named by run.data, evaluating the configured
strategy and indicator list on every bar and journaling what they emit.

TAENGINE_* environment variables (and a .env file) override the file.

Example:
  taengine run -f run.yaml
  taengine run -f run.yaml --report run.org`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runConfigPath string
	runReportPath string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "file", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().StringVarP(&runReportPath, "report", "r", "", "also write the org report to this file")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	run := engine.NewRun(
		engine.WithLogger(log),
		engine.WithStore(memo.NewStore(memo.WithMetrics(memo.NewMetrics(reg)))),
		engine.WithDepth(cfg.Run.Depth),
	)

	j, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	last := &capture{}
	defer j.Close()

	from, to, _ := cfg.Run.Range()
	feed, err := backtest.NewCSVFeed(cfg.Run.Data, from, to)
	if err != nil {
		return err
	}

	algo, err := strategies.FromConfig(cfg)
	if err != nil {
		feed.Close()
		return fmt.Errorf("strategy: %w", err)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		feed.Close()
		return err
	}

	r := &backtest.Runner{
		Run:       run,
		Feed:      feed,
		Algorithm: algo,
		Journal:   journal.Multi{j, last},
		Log:       log,
		Name:      cfg.Run.Name,
		Dataset:   cfg.Run.Data,
		Config:    raw,
	}
	_, runErr := r.Exec(ctx)

	rep := last.report()
	if err := journal.WriteRunReport(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	if runReportPath != "" {
		if err := journal.WriteRunReportFile(runReportPath, rep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if cfg.Metrics.File != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.File, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		log.Info("metrics written", zap.String("file", cfg.Metrics.File))
	}
	return runErr
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openJournal builds the journal a config asks for.
func openJournal(ctx context.Context, jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.ValuesFile, jc.RunsFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "redis":
		return journal.NewRedis(ctx, journal.RedisConfig{
			Addr:     jc.RedisAddr,
			Password: jc.RedisPassword,
			DB:       jc.RedisDB,
			Stream:   jc.Stream,
			MaxLen:   jc.MaxLen,
		})
	default:
		return journal.Nop{}, nil
	}
}

// capture keeps the run record and the last value of every emitted name.
type capture struct {
	run    journal.RunRecord
	latest map[string]journal.ValueRecord
}

func (c *capture) RecordValue(v journal.ValueRecord) error {
	if c.latest == nil {
		c.latest = make(map[string]journal.ValueRecord)
	}
	c.latest[v.Instrument+"\x00"+v.Name] = v
	return nil
}

func (c *capture) RecordRun(r journal.RunRecord) error {
	c.run = r
	return nil
}

func (c *capture) Close() error { return nil }

func (c *capture) report() journal.RunReport {
	rep := journal.RunReport{Run: c.run}
	for _, v := range c.latest {
		rep.Latest = append(rep.Latest, v)
	}
	sort.Slice(rep.Latest, func(i, k int) bool {
		a, b := rep.Latest[i], rep.Latest[k]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Instrument < b.Instrument
	})
	return rep
}
