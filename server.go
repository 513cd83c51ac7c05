package guardianvault

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	// Issuer that access tokens must carry.
	Issuer string

	// Secret verifies access-token signatures.
	Secret []byte

	// ReserveFloor is the minimum balance every vault retains; spendable
	// balance is computed above it.
	ReserveFloor uint64
}

type Server struct {
	db    *badger.DB
	cfg   Config
	clock Clock

	events chan Event
}

func NewServer(db *badger.DB, cfg Config) *Server {
	return &Server{
		db:     db,
		cfg:    cfg,
		clock:  time.Now,
		events: make(chan Event, 256),
	}
}

func (s *Server) Run(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error {
		return s.LoopEvents(ctx)
	})

	return g.Wait()
}
