package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhalter/coachflow/ai/assemble"
	"github.com/mhalter/coachflow/ai/feedback"
	"github.com/mhalter/coachflow/ai/gateway"
	"github.com/mhalter/coachflow/ai/jobs"
	"github.com/mhalter/coachflow/ai/llm"
	"github.com/mhalter/coachflow/ai/metrics"
	"github.com/mhalter/coachflow/ai/mode"
	"github.com/mhalter/coachflow/ai/pipeline"
	"github.com/mhalter/coachflow/ai/prompt"
	"github.com/mhalter/coachflow/ai/session"
	"github.com/mhalter/coachflow/internal/profile"
	"github.com/mhalter/coachflow/internal/version"
	"github.com/mhalter/coachflow/store"
	"github.com/mhalter/coachflow/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "coachflow",
	Short: `An AI productivity coach. Talk to it; approve, tweak, or toss what it drafts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Only load .env for direct binary execution (not when running as a
		// systemd service, which carries its own environment).
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:        viper.GetString("mode"),
			Data:        viper.GetString("data"),
			Driver:      viper.GetString("driver"),
			DSN:         viper.GetString("dsn"),
			MetricsAddr: viper.GetString("metrics-addr"),
			Version:     version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}
		storeInstance := store.New(dbDriver)
		defer storeInstance.Close()
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		if !instanceProfile.IsAIEnabled() {
			slog.Error("no LLM API key configured, set COACHFLOW_LLM_API_KEY")
			return
		}
		llmService, err := llm.NewService(llm.ConfigFromProfile(instanceProfile))
		if err != nil {
			slog.Error("failed to create LLM service", "error", err)
			return
		}
		llmService.Warmup(ctx)

		gw := gateway.New(llmService, gateway.NewCircuitBreaker(0, 0, nil))
		exporter := metrics.NewExporter(metrics.DefaultConfig(), gw)

		sessions := session.NewManager(storeInstance, nil)
		detector := mode.NewDetector(hostCeremonies{}, nil)
		contexts := assemble.New(hostEntities{}, storeInstance, nil)
		prompts := prompt.NewAssembler(prompt.NewRegistry(storeInstance, nil))
		turns := pipeline.New(detector, sessions, contexts, prompts, gw, hostEntities{}, storeInstance, nil)

		collector := feedback.NewCollector(storeInstance, nil)
		learner := feedback.NewLearner(storeInstance)
		evolution := feedback.NewEvolutionService(storeInstance)
		approver := pipeline.NewApprover(storeInstance, hostEntities{}, collector, nil)

		scheduler := jobs.NewScheduler(
			jobs.NewSessionSweepJob(sessions),
			jobs.NewPatternLearningJob(storeInstance, learner),
			jobs.NewTrendReportJob(evolution, nil),
		)
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("scheduler stopped", "error", err)
			}
		}()

		var metricsServer *http.Server
		if instanceProfile.MetricsAddr != "" {
			metricsServer = startMetricsListener(instanceProfile.MetricsAddr, exporter)
		}

		c := make(chan os.Signal, 1)
		// SIGTERM is the graceful shutdown signal for most supervisors.
		signal.Notify(c, terminationSignals...)
		go func() {
			<-c
			if metricsServer != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = metricsServer.Shutdown(shutdownCtx)
			}
			cancel()
		}()

		printGreetings(instanceProfile, llmService.Name())
		runChatLoop(ctx, turns, approver, sessions, exporter, viper.GetInt32("user-id"))
		cancel()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of service, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "listen address for Prometheus metrics, empty disables")
	rootCmd.PersistentFlags().Int32("user-id", 1, "acting user id for the chat loop")

	for _, key := range []string{"mode", "data", "driver", "dsn", "metrics-addr", "user-id"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("coachflow")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func startMetricsListener(addr string, exporter *metrics.Exporter) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter)
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("metrics listener started", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics listener failed", "error", err)
		}
	}()
	return server
}

func printGreetings(p *profile.Profile, llmName string) {
	fmt.Printf("CoachFlow %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database: %s (%s)\n", p.DSN, p.Driver)
	fmt.Printf("Model: %s\n", llmName)
	if p.MetricsAddr != "" {
		fmt.Printf("Metrics: http://%s/metrics\n", p.MetricsAddr)
	}
	fmt.Println()
	fmt.Println(`Type a message and press enter. Commands: /drafts, /approve <uid>,`)
	fmt.Println(`/modify <uid> <json>, /reject <uid> [comment], /quit`)
	fmt.Println()
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
