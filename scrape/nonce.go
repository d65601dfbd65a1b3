package scrape

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NonceStore persists the last nonce per credential across processes.
type NonceStore interface {
	NextNonce(ctx context.Context, key string, candidate int64) (int64, error)
}

// Noncer hands out strictly increasing millisecond nonces per api key.
type Noncer struct {
	mu    sync.Mutex
	last  map[string]int64
	store NonceStore
	now   func() time.Time
	lg    zerolog.Logger
}

func NewNoncer(store NonceStore) *Noncer {
	return &Noncer{
		last:  make(map[string]int64),
		store: store,
		now:   time.Now,
		lg:    zerolog.New(os.Stdout).With().Str("Module", "Noncer").Timestamp().Logger(),
	}
}

func (n *Noncer) Next(ctx context.Context, apiKey string) string {

	n.mu.Lock()
	defer n.mu.Unlock()

	key := credentialKey(apiKey)

	nonce := n.now().UnixMilli()
	if last := n.last[key]; nonce <= last {
		nonce = last + 1
	}

	if n.store != nil {
		stored, err := n.store.NextNonce(ctx, key, nonce)
		if err != nil {
			n.lg.Warn().Err(err).Msg("Nonce store unavailable, using in-process floor")
		} else if stored > nonce {
			nonce = stored
		}
	}

	n.last[key] = nonce
	return strconv.FormatInt(nonce, 10)
}

// the raw api key never leaves the process
func credentialKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "nonce:" + hex.EncodeToString(sum[:])
}
