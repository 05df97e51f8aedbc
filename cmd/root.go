package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/substation/app"
	"github.com/kilianp07/substation/config"
	"github.com/kilianp07/substation/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "substation",
	Short:         "Electrical substation telemetry simulator",
	RunE:          serve,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulator with its API, MQTT and metrics adapters",
	RunE:  serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file (empty for defaults)")
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
