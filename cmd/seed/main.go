package main

import (
	"context"
	"flag"
	"os"

	"github.com/drishtilabs/drishti/internal/adapters/repository"
	"github.com/drishtilabs/drishti/internal/seed"
	"github.com/drishtilabs/drishti/pkg/logger"
)

func main() {
	dbPath := flag.String("db", "drishti.db", "path to the sqlite database")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	ctx := context.Background()

	store, err := repository.OpenSQLite(*dbPath)
	if err != nil {
		log.Error(ctx, "open store failed", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	n, err := seed.Run(ctx, store)
	if err != nil {
		log.Error(ctx, "seeding failed", logger.Error(err))
		os.Exit(1)
	}
	if n == 0 {
		log.Info(ctx, "system submissions already present; nothing to do")
		return
	}
	log.Info(ctx, "seeded system submissions",
		logger.Int("count", n),
		logger.String("db", *dbPath),
	)
}
