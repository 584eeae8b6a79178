package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hermes/pkg/config"
	"hermes/pkg/models"
	"hermes/pkg/scheduler"
	"hermes/pkg/ui"
	"hermes/pkg/ui/tui"
)

var monitorInterval time.Duration

// monitorCmd groups the polling loops
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll a feed continuously for target usernames",
	Long: `Poll a TikTok feed until interrupted. Every match is printed, saved to the
state file immediately and counted in the run statistics.

Press Ctrl+C (or q in the dashboard) to stop. The state is saved once more
on the way out.`,
}

var monitorTrendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Watch the trending feed",
	Example: `  # Check the trending feed every minute for 4-character usernames
  hermes monitor trending

  # Look for 3-character handles every 30 seconds in the dashboard
  hermes monitor trending -n 3 --interval 30s --tui`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		extra := map[string]interface{}{}
		if cmd.Flags().Changed("interval") {
			extra["trending-interval"] = monitorInterval
		}
		cfg, err := loadConfig(cmd, extra)
		if err != nil {
			return err
		}

		return runMonitor(cmd.Context(), cfg, monitorRun{
			name:     "trending",
			interval: cfg.Discovery.TrendingInterval,
			round: func(e *engine, s *scheduler.Scheduler) scheduler.RoundFunc {
				return scheduler.StrategyRound(e.trending())
			},
		})
	},
}

var monitorKeywordsCmd = &cobra.Command{
	Use:   "keywords [keyword,...]",
	Short: "Search users for each keyword in turn",
	Long: `Search users for each keyword in turn, pausing a few seconds between
searches. Keywords come from the arguments (comma separated) or from
discovery.keywords in the config file.`,
	Example: `  hermes monitor keywords "funny,dance,music"
  hermes monitor keywords cats dogs --interval 5m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		extra := map[string]interface{}{}
		if kws := config.ParseKeywords(strings.Join(args, ",")); len(kws) > 0 {
			extra["keywords"] = kws
		}
		if cmd.Flags().Changed("interval") {
			extra["keyword-interval"] = monitorInterval
		}
		cfg, err := loadConfig(cmd, extra)
		if err != nil {
			return err
		}
		if len(cfg.Discovery.Keywords) == 0 {
			return errors.New("no keywords given; pass them as arguments or set discovery.keywords")
		}

		return runMonitor(cmd.Context(), cfg, monitorRun{
			name:     "keywords",
			interval: cfg.Discovery.KeywordInterval,
			round: func(e *engine, s *scheduler.Scheduler) scheduler.RoundFunc {
				return s.KeywordRound(e.keywordSearches(cfg.Discovery.Keywords))
			},
		})
	},
}

var suggestedCmd = &cobra.Command{
	Use:   "suggested",
	Short: "Check the suggested users list once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, map[string]interface{}{"tui": false})
		if err != nil {
			return err
		}

		return runMonitor(cmd.Context(), cfg, monitorRun{
			name: "suggested",
			once: true,
			round: func(e *engine, s *scheduler.Scheduler) scheduler.RoundFunc {
				return scheduler.StrategyRound(e.suggested())
			},
		})
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(suggestedCmd)
	monitorCmd.AddCommand(monitorTrendingCmd)
	monitorCmd.AddCommand(monitorKeywordsCmd)

	monitorTrendingCmd.Flags().DurationVar(&monitorInterval, "interval", 60*time.Second, "pause between checks")
	monitorKeywordsCmd.Flags().DurationVar(&monitorInterval, "interval", 120*time.Second, "pause between keyword rounds")
}

// monitorRun describes one scheduler invocation
type monitorRun struct {
	name     string
	interval time.Duration
	once     bool
	round    func(e *engine, s *scheduler.Scheduler) scheduler.RoundFunc
}

// runMonitor drives the scheduler and a display sink side by side until the
// run ends, then prints a summary
func runMonitor(parent context.Context, cfg *config.Config, run monitorRun) error {
	dashboard := cfg.Output.UseTUI && !run.once && isTerminal()
	if err := setupLogging(cfg, dashboard); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	sched := scheduler.New(e.gateway, e.store, e.backend, scheduler.Options{
		Interval:        run.interval,
		JitterFactor:    cfg.Discovery.JitterFactor,
		Tick:            time.Second,
		KeywordPauseMin: cfg.Discovery.KeywordPauseMin,
		KeywordPauseMax: cfg.Discovery.KeywordPauseMax,
	}, nil)

	notifier := ui.NewNotifier(cfg.Notifications)
	var sink ui.Sink
	if dashboard {
		notifier.SetOutput(io.Discard)
		sink = tui.NewTUI(cfg.Discovery.TargetLength, notifier, cancel)
	} else {
		plain := ui.NewPlainDisplay(os.Stdout, notifier, isTerminal())
		plain.SetQuiet(quiet)
		sink = plain
		if !quiet {
			printRunHeader(cfg, run, e)
		}
	}

	var stats models.RunStatistics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer sched.Close()
		var err error
		if run.once {
			stats, err = sched.RunOnce(gctx, run.name, run.round(e, sched))
		} else {
			stats, err = sched.Run(gctx, run.name, run.round(e, sched))
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return sink.Consume(gctx, sched.Reports())
	})

	if err := g.Wait(); err != nil {
		return err
	}

	printRunSummary(stats, e.store.Len())
	return nil
}

func printRunHeader(cfg *config.Config, run monitorRun, e *engine) {
	ui.PrintInfo("Target length", fmt.Sprintf("%d", cfg.Discovery.TargetLength))
	ui.PrintInfo("Source", run.name)
	if run.name == "keywords" {
		ui.PrintInfo("Keywords", strings.Join(cfg.Discovery.Keywords, ", "))
	}
	if !run.once {
		ui.PrintInfo("Interval", run.interval.String())
	}
	if n := e.pool.Len(); n > 0 {
		ui.PrintInfo("Proxies", fmt.Sprintf("%d (%s)", n, e.pool.Scheme()))
	}
	ui.PrintInfo("Known usernames", fmt.Sprintf("%d", e.store.Len()))
	fmt.Println()
}

func printRunSummary(stats models.RunStatistics, known int) {
	fmt.Println()
	ui.PrintSuccess(fmt.Sprintf("Found %d new usernames this run (%d known in total)", stats.Found, known))
	if quiet {
		return
	}
	ui.PrintInfo("Requests", fmt.Sprintf("%d (%.1f req/min)", stats.RequestsSent, stats.RequestsPerMinute(time.Now())))
	ui.PrintInfo("Usernames checked", fmt.Sprintf("%d", stats.CandidatesExamined))
	if stats.RateLimitHits > 0 {
		ui.PrintWarning(fmt.Sprintf("Rate limited %d time(s)", stats.RateLimitHits))
	}
}
