package guardianvault

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewServer(db, cfg)
}

// fixClock pins the server clock to a given instant.
func fixClock(s *Server, at time.Time) {
	s.clock = func() time.Time { return at }
}

func newPrincipal() string {
	return uuid.NewString()
}
