package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/dgraph-io/badger/v4"
	backend "github.com/ten-guardians/guardianvault"
	"golang.org/x/sync/errgroup"
)

var cfg struct {
	dbPath  string
	port    int
	issuer  string
	secret  string
	reserve string
}

func init() {
	flag.StringVar(&cfg.dbPath, "db", "guardianvault.db", "database path")
	flag.IntVar(&cfg.port, "port", 8080, "http port")
	flag.StringVar(&cfg.issuer, "issuer", "guardianvault", "access token issuer")
	flag.StringVar(&cfg.secret, "secret", "", "access token secret")
	flag.StringVar(&cfg.reserve, "reserve", "0", "reserve floor every vault retains")

	flag.Parse()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	if cfg.secret == "" {
		slog.Error("access token secret required")
		return
	}

	reserve, err := backend.ParseLimit(cfg.reserve)
	if err != nil {
		slog.Error("invalid reserve floor", slog.Any("err", err))
		return
	}

	db, err := badger.Open(badger.DefaultOptions(cfg.dbPath))
	if err != nil {
		slog.Error("open db failed", slog.Any("err", err))
		return
	}

	slog.Info("guardian vault launch", "ver", "0.1")

	svr := backend.NewServer(db, backend.Config{
		Issuer:       cfg.issuer,
		Secret:       []byte(cfg.secret),
		ReserveFloor: reserve,
	})

	s := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.port),
		Handler: svr.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listen", slog.String("addr", s.Addr))
		return s.ListenAndServe()
	})

	g.Go(func() error {
		<-ctx.Done()

		return s.Shutdown(ctx)
	})

	g.Go(func() error {
		return runGC(ctx, db, time.Minute)
	})

	g.Go(func() error {
		return svr.Run(ctx)
	})

	_ = g.Wait()
}

func runGC(ctx context.Context, db *badger.DB, dur time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			_ = db.RunValueLogGC(0.7)
		}
	}
}
