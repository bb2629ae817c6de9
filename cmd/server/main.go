package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/watchparty/server/internal/api"
	"github.com/watchparty/server/internal/catalog"
	"github.com/watchparty/server/internal/config"
	"github.com/watchparty/server/internal/database"
	"github.com/watchparty/server/internal/server"
	"github.com/watchparty/server/internal/session"
	"github.com/watchparty/server/internal/stats"
)

var configPath string

func main() {
	flag.StringVar(&configPath, "config", "", "directory containing watchparty.yaml")
	flag.Parse()

	logger := log.New(os.Stderr, "[watchparty] ", log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("config:", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgWatchPartyRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("db migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	watchServer := server.NewWatchServer(logger, statsUpdater)

	registry, err := session.NewRegistry(logger, watchServer, statsUpdater, cfg.IdleRoomTimeout)
	if err != nil {
		logger.Fatal("new registry:", err)
	}
	watchServer.SetRegistry(registry)

	cat := catalog.NewService(logger, dbConn)

	srv := api.NewWatchPartyApp(mux, logger, watchServer, registry, cat, dbConn, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go watchServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down watch server...")
	if err := watchServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("watch server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
