package http

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"apartment/internal/cache"
	"apartment/internal/core"

	"golang.org/x/sync/singleflight"
)

const (
	// IdempotencyKeyHeader carries the client-chosen key of a submission.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks responses served from an earlier submission.
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
	idempotencyCacheSize    = 1000
)

type idempotentResult struct {
	fingerprint string
	tx          core.Transaction
}

// idempotencyStore remembers the transaction created for each key. Requests
// racing on the same key share one admission; failures are not remembered so
// the client may retry them.
type idempotencyStore struct {
	results *cache.LRUCache[idempotentResult]
	group   singleflight.Group
}

func newIdempotencyStore(ttl time.Duration) *idempotencyStore {
	return &idempotencyStore{
		results: cache.NewLRUCache[idempotentResult](idempotencyCacheSize, ttl),
	}
}

func validIdempotencyKey(key string) error {
	if len(key) > maxIdempotencyKeyLength {
		return core.NewValidationError(IdempotencyKeyHeader, "is too long (max 255 characters)")
	}
	for _, r := range key {
		if r < 0x21 || r > 0x7e {
			return core.NewValidationError(IdempotencyKeyHeader, "must be printable ASCII")
		}
	}
	return nil
}

// fingerprint identifies the content of a submission.
func fingerprint(n core.NewTransaction) string {
	parts := []string{
		n.RegisterID.String(),
		n.Amount.StringFixed(core.AmountScale),
		n.Direction.String(),
		strings.TrimSpace(n.Description),
	}
	if n.ApartmentID != nil {
		parts = append(parts, "apartment="+n.ApartmentID.String())
	}
	if n.FeeCategoryID != nil {
		parts = append(parts, "fee="+n.FeeCategoryID.String())
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Do runs record once per key. It reports replayed=true when the returned
// transaction came from an earlier or concurrent submission, and a conflict
// when the key was used for different content.
func (s *idempotencyStore) Do(key string, n core.NewTransaction, record func() (core.Transaction, error)) (tx core.Transaction, replayed bool, err error) {
	fp := fingerprint(n)
	if prev, ok := s.results.Get(key); ok {
		return matchFingerprint(prev, fp)
	}

	executed := false
	v, err, _ := s.group.Do(key, func() (any, error) {
		if prev, ok := s.results.Get(key); ok {
			return prev, nil
		}
		executed = true
		tx, err := record()
		if err != nil {
			return nil, err
		}
		res := idempotentResult{fingerprint: fp, tx: tx}
		s.results.Set(key, res)
		return res, nil
	})
	if err != nil {
		return core.Transaction{}, false, err
	}

	res := v.(idempotentResult)
	if executed {
		return res.tx, false, nil
	}
	return matchFingerprint(res, fp)
}

func matchFingerprint(prev idempotentResult, fp string) (core.Transaction, bool, error) {
	if prev.fingerprint != fp {
		return core.Transaction{}, false, core.ConflictError("idempotency key was already used for a different transaction")
	}
	return prev.tx, true, nil
}

func (s *idempotencyStore) Size() int {
	return s.results.Size()
}
