package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"overseer/internal/agent"
	"overseer/internal/api"
	"overseer/internal/gateway"
	"overseer/internal/governance"
	"overseer/internal/observability"
	"overseer/internal/store"
	"overseer/internal/tools"
	"overseer/internal/vfs"
	"overseer/pkg/config"
)

const version = "0.2.0"

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "overseer",
		Short: "Objective orchestration engine",
		Long:  "Overseer decomposes a free-form objective into subtasks, executes them through capability-restricted workers and accumulates the results as versioned artifacts.",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	root.AddCommand(newRunCmd(), newServeCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("overseer " + version)
		},
	}
}

func newRunCmd() *cobra.Command {
	var maxIterations int
	cmd := &cobra.Command{
		Use:   "run <objective...>",
		Short: "Execute one objective and print the run report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if maxIterations > 0 {
				cfg.Orchestrator.MaxIterations = maxIterations
			}
			r, err := buildRunner(cfg)
			if err != nil {
				return err
			}
			defer r.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			state, err := r.Run(ctx, strings.Join(args, " "))
			if state != nil {
				fmt.Println(state.FinalResult)
			}
			if err != nil {
				return err
			}
			if state.Status == agent.RunStatusFailed {
				return fmt.Errorf("run failed: %s", state.FailureReason)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override the iteration cap for this run")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the messaging gateways, API and live dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			r, err := buildRunner(cfg)
			if err != nil {
				return err
			}
			defer r.Close()

			observability.PrintBanner()
			observability.InitializeTerminal()
			defer observability.CleanupTerminal()

			// Route all log output through the terminal mutex so it never
			// interrupts the dashboard's cursor save/restore sequence.
			log.SetOutput(observability.NewTermWriter())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if tgCfg, ok := cfg.GetTelegramConfig(); ok {
				tg, err := gateway.NewTelegramGateway(tgCfg.Token, r, r.logger)
				if err != nil {
					return err
				}
				go func() {
					if err := tg.Start(ctx); err != nil && ctx.Err() == nil {
						log.Printf("telegram gateway died: %v", err)
						stop()
					}
				}()
			} else {
				log.Println("telegram gateway disabled")
			}

			if cfg.API.Enabled {
				srv := api.NewServer(cfg.API.Listen, r.checkpoints, r.logger)
				go func() {
					if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
						log.Printf("api server died: %v", err)
						stop()
					}
				}()
			}

			go func() {
				ticker := time.NewTicker(1 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						observability.PrintLiveStatus()
					}
				}
			}()

			go func() {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						observability.Heartbeat()
						r.logger.LogHeartbeat()
					}
				}
			}()

			<-ctx.Done()
			time.Sleep(500 * time.Millisecond)
			return nil
		},
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("config %s unusable (%v), falling back to defaults", configPath, err)
		return config.Default()
	}
	return cfg
}

// runner builds one orchestrator per objective so every run gets its
// own artifact store. Model, registry, policy and checkpoints are
// shared.
type runner struct {
	cfg         *config.Config
	model       llms.Model
	registry    *tools.Registry
	policy      governance.PolicyEngine
	prompts     *agent.PromptManager
	logger      *observability.Logger
	checkpoints *store.CheckpointStore
}

func buildRunner(cfg *config.Config) (*runner, error) {
	registry := tools.NewRegistry()
	registry.Register(tools.NewExecTool())
	registry.Register(tools.NewScraperTool())
	registry.Register(tools.NewBrowserTool())
	if searchTool, err := tools.NewSearchTool(); err != nil {
		log.Printf("warning: search tool unavailable: %v", err)
	} else {
		registry.Register(searchTool)
	}

	model, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	checkpoints, err := store.Open(cfg.Memory.Path)
	if err != nil {
		return nil, err
	}

	return &runner{
		cfg:         cfg,
		model:       model,
		registry:    registry,
		policy:      governance.NewRestrictivePolicyEngine(),
		prompts:     agent.NewPromptManager("./prompts"),
		logger:      observability.NewLogger(),
		checkpoints: checkpoints,
	}, nil
}

func buildModel(cfg *config.Config) (llms.Model, error) {
	name, pCfg := cfg.GetDefaultProvider()
	if name == "" {
		return nil, fmt.Errorf("no enabled provider in config")
	}
	switch name {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("provider %q is not supported", name)
	}
}

func (r *runner) Run(ctx context.Context, objective string) (*agent.RunState, error) {
	return r.newOrchestrator().Run(ctx, objective)
}

func (r *runner) Close() {
	if r.checkpoints != nil {
		r.checkpoints.Close()
	}
}

func (r *runner) newOrchestrator() *agent.Orchestrator {
	oc := r.cfg.Orchestrator
	shared := vfs.NewStore()
	return &agent.Orchestrator{
		Planner: &agent.Planner{
			Model:    r.model,
			Prompts:  r.prompts,
			Registry: r.registry,
			Logger:   r.logger,
			Retries:  oc.PlannerRetries,
			Backoff:  time.Duration(oc.PlannerBackoffMS) * time.Millisecond,
		},
		Worker: &agent.LLMWorker{
			Model:    r.model,
			Registry: r.registry,
			Policy:   r.policy,
			Prompts:  r.prompts,
			Logger:   r.logger,
			Store:    shared,
			MaxSteps: oc.WorkerMaxSteps,
		},
		Specs: &agent.SpecFactory{
			Registry:      r.registry,
			Store:         shared,
			Logger:        r.logger,
			ContextBudget: oc.ContextBudgetChars,
		},
		Logger:              r.logger,
		Checkpoint:          r.checkpoints,
		MaxIterations:       oc.MaxIterations,
		SimilarityThreshold: oc.SimilarityThreshold,
	}
}
