// Command sweep deletes stored covers and book files that no book references
// anymore. It runs out of band, against the same backends as the api.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bookshelf-service/cmd/api/backend"
	"github.com/bookshelf-service/cmd/api/book"
	"github.com/bookshelf-service/cmd/api/config"
)

func main() {
	var (
		minAge  = flag.Duration("min-age", time.Hour, "keep unreferenced assets younger than this")
		timeout = flag.Duration("timeout", 10*time.Minute, "give up after this long")
	)
	flag.Parse()

	if err := run(*minAge, *timeout); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run(minAge, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.StorageBackend == config.BackendMemory || cfg.AssetBackend == config.BackendMemory {
		return fmt.Errorf("nothing to sweep: in-memory backends only live inside the api process")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	backends, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	svc := book.NewService(backends.Repository, backends.Assets, nil, 0)
	report, err := svc.SweepOrphanAssets(ctx, minAge)
	log.Printf("sweep: scanned %d, deleted %d, failed %d", report.Scanned, report.Deleted, report.Failed)
	if err != nil {
		return fmt.Errorf("sweeping orphan assets: %w", err)
	}
	return nil
}
