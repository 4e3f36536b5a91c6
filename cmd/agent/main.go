package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gliderlab/planact/gateway"
	"github.com/gliderlab/planact/gateway/channels/terminal"
	pkgconfig "github.com/gliderlab/planact/pkg/config"
)

var (
	configPath    string
	envConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Plan-then-act chat agent with tool calling",
	Long: `agent reasons about each message before answering and may call tools
(web search, telephone lookup, memory) in between.

Examples:
  agent chat
  agent serve --config config.yaml
  MODE=production agent serve`,
	SilenceUsage: true,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in this terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApp(configPath, envConfigPath)
		if err != nil {
			return err
		}
		defer app.Close()

		repl := terminal.NewREPL(app.agent, cmd.InOrStdin(), cmd.OutOrStdout(), terminal.DefaultStyles())
		if err := repl.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApp(configPath, envConfigPath)
		if err != nil {
			return err
		}
		defer app.Close()

		gwCfg := gateway.DefaultConfig()
		gwCfg.Host = app.cfg.Gateway.Host
		gwCfg.Port = app.cfg.Gateway.Port
		gwCfg.AuthToken = os.Getenv("GATEWAY_AUTH_TOKEN")
		if app.cache != nil {
			gwCfg.Cache = app.cache
		}
		gw := gateway.New(gwCfg, app.agent)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(gw.Start)
		g.Go(func() error {
			<-gctx.Done()
			log.Println("Gateway shutting down...")
			gw.Stop()
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envConfigPath, "env-config", "env.config", "KEY=VALUE overrides file")
	rootCmd.AddCommand(chatCmd, serveCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig is shared by the subcommands
func loadConfig(path, envPath string) (*pkgconfig.Config, error) {
	cfg, err := pkgconfig.Load(path, envPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Config: mode=%s provider=%s model=%s API Key=%s BaseURL=%s",
		cfg.Mode, cfg.Provider, cfg.Profile().Model, maskKey(cfg.APIKey), cfg.BaseURL)
	return cfg, nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
