package main

import (
	"log"

	"notes-backend/internal/bootstrap"
	"notes-backend/internal/shared/config"
	"notes-backend/internal/shared/server"
	"notes-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	defer telemetry.Sync()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	addr := server.Addr(cfg.Port)
	telemetry.Info("api.started", map[string]any{"addr": addr, "env": cfg.Env, "queue": cfg.Worker.QueueURL != ""})

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
