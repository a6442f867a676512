package main

import (
	"log"

	"feeledger_backend/cmd/feectl/cmd"
	"feeledger_backend/internals/configs"
	"feeledger_backend/internals/logger"
)

func main() {
	configs.LoadEnv()

	cfg, err := configs.Load()
	if err != nil {
		log.Printf("Warning: could not load configuration: %v", err)
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cmd.Execute(cfg)
}
