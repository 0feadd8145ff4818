package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/tourai-backend/internal/bootstrap"
	"github.com/kirillkom/tourai-backend/internal/config"
	"github.com/kirillkom/tourai-backend/internal/infrastructure/catalog"
	"github.com/kirillkom/tourai-backend/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/tourai-backend/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logging.Setup("seed", cfg.LogLevel, cfg.LogFormat)

	file := flag.String("file", cfg.SeedFile, "catalog file to load (.yaml, .yml or .xlsx)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries, err := catalog.LoadFile(*file)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	db, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()

	created, err := catalog.Seed(ctx, postgres.NewTourRepository(db), entries)
	log.Printf("seeded %d of %d tours from %s", created, len(entries), *file)
	if err != nil {
		log.Printf("seed finished with errors: %v", err)
		os.Exit(1)
	}
}
