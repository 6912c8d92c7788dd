package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/config"
	"github.com/GriffinCanCode/turbosocket/internal/infrastructure/logging"
	"github.com/GriffinCanCode/turbosocket/internal/server"
	"github.com/GriffinCanCode/turbosocket/internal/shared/id"
)

func main() {
	// Flags override file and environment settings
	port := flag.String("port", "", "HTTP port")
	host := flag.String("host", "", "HTTP bind host")
	tcpAddr := flag.String("tcp", "", "Raw TCP address (\"off\" disables it)")
	executor := flag.String("executor", "", "Executor: echo, upper or hex")
	framing := flag.String("framing", "", "TCP framing: line or hex")
	dev := flag.Bool("dev", false, "Development mode (colored logs, debug level)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	switch *tcpAddr {
	case "":
	case "off":
		cfg.Server.TCPAddr = ""
	default:
		cfg.Server.TCPAddr = *tcpAddr
	}
	if *executor != "" {
		cfg.Pipeline.Executor = *executor
	}
	if *framing != "" {
		cfg.Pipeline.Framing = *framing
	}
	if *dev {
		cfg.Logging.Development = true
	}

	logCfg := cfg.Logging.Logger()
	logCfg.Fields = map[string]interface{}{"instance": id.Instance()}
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if _, err := srv.Start(); err != nil {
		logger.Error("Failed to start server", zap.Error(err))
		_, _ = srv.Stop()
		os.Exit(1)
	}
	logger.Info("TurboSocket running",
		zap.Stringer("http", srv.HTTPAddr()),
		zap.Any("tcp", srv.TCPAddr()),
	)

	code := 0
	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully...", zap.Stringer("signal", sig))
	case err := <-srv.Err():
		logger.Error("Server error", zap.Error(err))
		code = 1
	}

	if _, err := srv.Stop(); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		code = 1
	}
	if code != 0 {
		os.Exit(code)
	}
}
