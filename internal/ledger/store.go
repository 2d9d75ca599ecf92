// Package ledger keeps the in-memory snapshot of contribution records for
// one scope and derives totals and page windows from it. The remote API
// stays the source of truth: every load is a wholesale replace, never an
// incremental merge.
package ledger

import (
	"context"
	"errors"
	"sync"

	"pocketgrow/internal/core"
	"pocketgrow/internal/log"
)

// Lister is the read side of the remote API consumed by the store.
type Lister interface {
	ListContributions(ctx context.Context) ([]core.Contribution, error)
}

// Store holds the fetched collection for its scope. Presentation layers
// only ever see copies of derived data; the snapshot itself is mutated by
// Load alone.
type Store struct {
	lister Lister
	scope  core.Scope
	logger *log.Logger

	mu      sync.Mutex
	records []core.Contribution
	issued  uint64 // sequence handed to the most recently started load
	applied uint64 // sequence of the snapshot currently in place
}

// New creates an empty store for scope. Nothing is fetched until Load.
func New(lister Lister, scope core.Scope, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{
		lister: lister,
		scope:  scope,
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

// Scope returns the scope this store was built for.
func (s *Store) Scope() core.Scope { return s.scope }

// Load replaces the snapshot with a fresh fetch. Concurrent loads are
// sequence-tagged: a response belonging to an older load than the one
// already applied is discarded, so a slow stale fetch can never overwrite
// fresher data. On failure the previous snapshot stays in place and the
// error surfaces as *core.FetchError.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	records, err := s.lister.ListContributions(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger load failed",
			log.FieldScope, s.scope.String(),
			log.FieldSeq, seq,
			log.FieldError, err.Error())
		var fe *core.FetchError
		if errors.As(err, &fe) {
			return err
		}
		return &core.FetchError{Message: "could not load contributions", Err: err}
	}

	// The server already scopes by the caller's token; filtering again
	// here keeps user-scoped stores correct when fed an admin token.
	if !s.scope.All() {
		filtered := records[:0]
		for _, rec := range records {
			if s.scope.Matches(rec.OwnerID) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		s.logger.DebugContext(ctx, "Discarding stale ledger load",
			log.FieldScope, s.scope.String(),
			log.FieldSeq, seq)
		return nil
	}
	s.records = records
	s.applied = seq

	s.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldScope, s.scope.String(),
		log.FieldSeq, seq,
		log.FieldRecords, len(records))
	return nil
}

// Total sums every amount in the snapshot; 0 when empty.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, rec := range s.records {
		total += rec.Amount
	}
	return total
}

// TotalFor sums the amounts owned by userID; 0 when none match.
func (s *Store) TotalFor(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, rec := range s.records {
		if rec.OwnerID == userID {
			total += rec.Amount
		}
	}
	return total
}

// Count returns the number of records inside the given scope.
func (s *Store) Count(scope core.Scope) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filtered(scope))
}

// PageCount reports ceil(count/pageSize) for the scope, never less than 1:
// an empty ledger still has one empty page. The pager UI shows controls
// only when the result exceeds 1.
func (s *Store) PageCount(scope core.Scope, pageSize int) int {
	if pageSize < 1 {
		return 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.filtered(scope))
	if count == 0 {
		return 1
	}
	return (count + pageSize - 1) / pageSize
}

// Page returns the 1-based page window for the scope. An out-of-range page
// number clamps to the nearest valid page, so a view pointed past the end
// after a deletion still shows the last page instead of an empty one.
func (s *Store) Page(scope core.Scope, page, pageSize int) []core.Contribution {
	if pageSize < 1 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.filtered(scope)
	if len(records) == 0 {
		return nil
	}

	last := (len(records) + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	if page > last {
		page = last
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}

	out := make([]core.Contribution, end-start)
	copy(out, records[start:end])
	return out
}

// ClampPage maps a requested page number onto the valid range for the
// scope, for callers that need the effective index (pager rendering).
func (s *Store) ClampPage(scope core.Scope, page, pageSize int) int {
	last := s.PageCount(scope, pageSize)
	if page < 1 {
		return 1
	}
	if page > last {
		return last
	}
	return page
}

// Owners returns the distinct owner ids present in the snapshot, in first
// appearance order.
func (s *Store) Owners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.records))
	var owners []string
	for _, rec := range s.records {
		if _, ok := seen[rec.OwnerID]; ok {
			continue
		}
		seen[rec.OwnerID] = struct{}{}
		owners = append(owners, rec.OwnerID)
	}
	return owners
}

// OwnerOf reports the owner of the record with the given id, per the
// current snapshot.
func (s *Store) OwnerOf(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return rec.OwnerID, true
		}
	}
	return "", false
}

// filtered returns the records inside scope; callers hold s.mu. The
// returned slice aliases the snapshot and must not escape without a copy.
func (s *Store) filtered(scope core.Scope) []core.Contribution {
	if scope.All() {
		return s.records
	}
	var out []core.Contribution
	for _, rec := range s.records {
		if scope.Matches(rec.OwnerID) {
			out = append(out, rec)
		}
	}
	return out
}
