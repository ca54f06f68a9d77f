package main

import (
	"flag"
	"log"
	"os"

	"TradePilot/internal/di"
	"TradePilot/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s mode=%s dry_run=%t symbols=%v journal=%s",
		cfg.Environment, cfg.Trading.Mode, cfg.Trading.DryRun, cfg.Trading.Symbols, cfg.Journal.Backend)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	err = app.Run()
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
