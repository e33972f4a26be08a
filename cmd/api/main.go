package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookshelf-service/cmd/api/backend"
	"github.com/bookshelf-service/cmd/api/book"
	"github.com/bookshelf-service/cmd/api/config"
	bookhttp "github.com/bookshelf-service/cmd/api/http"
	"github.com/bookshelf-service/cmd/api/notifications"
)

func main() {
	err := run()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	//open the catalog and the asset store, migrating the db if needed:
	backends, err := backend.Open(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	ntfy := notifications.NewNtfy(cfg.NotificationsEnabled, cfg.NotificationsBaseURL, &http.Client{})

	bookService := book.NewService(backends.Repository, backends.Assets, ntfy, cfg.NotificationsTimeout)
	bookHandler := bookhttp.NewBookHandler(bookService)

	bookhttp.RequestTimeout = cfg.RequestTimeout
	bookhttp.MaxRequestBytes = 2*cfg.MaxAssetBytes + 1<<20

	//create and init http server:
	server := bookhttp.NewServer(bookhttp.ServerConfig{
		Port:           cfg.Port,
		JWTSecret:      cfg.JWTSecret,
		WriteRateLimit: cfg.WriteRateLimit,
	}, bookHandler)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", server.Addr)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("unexpected http server error: %w", err)
		}
		close(serverErr)
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sc:
	case err := <-serverErr:
		return err
	}

	ctx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	log.Println("Graceful shutdown complete.")
	return nil
}
