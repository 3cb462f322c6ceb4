// Command umebot is the orchestration fabric's composition root: it loads
// configuration, builds the logger, wires every component through
// internal/orchestrator, and runs until an OS signal requests shutdown.
//
// Grounded on cmd/agent/main.go's overall shape (env loading, signal
// handling), generalized from a single voice-agent loop to the full C1-C8
// system.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/config"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/logging"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the YAML configuration document")
	envPath := flag.String("env", ".env", "path to an optional .env file carrying API key secrets")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		log.Fatalf("umebot: configuration: %v", err)
	}

	logger, closeLog, err := logging.New(logging.Options{
		FilePath: cfg.Server.LogFile,
		Debug:    cfg.Server.LogLevel == config.LogLevelDebug,
	})
	if err != nil {
		log.Fatalf("umebot: logging: %v", err)
	}
	defer closeLog()

	deps := orchestrator.Dependencies{
		RobotRPC:      newLoggingRobotRPC(logger),
		ExpressionRPC: newLoggingExpressionRPC(logger),
	}

	orch, err := orchestrator.New(cfg, deps, logger)
	if err != nil {
		logger.Error("umebot: cannot build orchestrator", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		logger.Error("umebot: startup failed", "err", err)
		os.Exit(1)
	}
	logger.Info("umebot: started", "tablet_addr", cfg.Tablet.ListenAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("umebot: shutting down")
	orch.Stop()
}
