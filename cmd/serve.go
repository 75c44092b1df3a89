package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/career-twin/internal/logger"
	"github.com/spigell/career-twin/internal/server"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default is :8000)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

// setup builds the process logger and reads the config. Both commands start with it.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Debug(fmt.Sprintf("starting with config: \n %s", describeConfig(config)))

	return logger, config
}

// describeConfig renders the config for debug output. Secrets are tagged out of it.
func describeConfig(config *Config) string {
	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	return string(pretty)
}

func serve() {
	logger, config := setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting the career-twin api", zap.String("version", version), zap.String("listen", config.Server.Listen))

	pipeline, cleanup, err := buildPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the interview pipeline", zap.Error(err))
	}
	defer cleanup()

	app := server.New(server.Config{
		AppName:        config.App.Name,
		Version:        config.App.Version,
		AllowedOrigins: config.Server.AllowedOrigins,
		MaxUploadSize:  config.Interview.MaxUploadSize,
		RateLimit:      config.Server.RateLimit,
		RateWindow:     config.Server.RateWindow,
	}, pipeline, logger)

	errs := make(chan error, 1)
	go func() {
		errs <- app.Listen(config.Server.Listen)
	}()

	select {
	case err := <-errs:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
			cleanup()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("graceful shutdown", zap.Error(err))
		}
	}
}
