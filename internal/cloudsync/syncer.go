package cloudsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/sakif/devnote/internal/model"
)

// DefaultDelay is how long Schedule waits for further changes before pushing.
const DefaultDelay = 2 * time.Second

// pushTimeout bounds a scheduled push, which has no caller context.
const pushTimeout = 30 * time.Second

// Field names of a user document.
const (
	fieldNotes      = "snippets"
	fieldCategories = "categories"
	fieldLastSynced = "lastSynced"
)

// Syncer pushes notebook snapshots to users/<owner> and pulls them back.
type Syncer struct {
	store  DocumentStore
	logger *slog.Logger
	delay  time.Duration
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]*pending
}

type pending struct {
	timer    *time.Timer
	snapshot func() (model.Snapshot, error)
}

// NewSyncer creates a Syncer. A non-positive delay means DefaultDelay.
func NewSyncer(store DocumentStore, delay time.Duration, logger *slog.Logger) *Syncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Syncer{
		store:   store,
		logger:  logger,
		delay:   delay,
		now:     time.Now,
		pending: make(map[string]*pending),
	}
}

// DocumentPath is the store path for an owner's notebook.
func DocumentPath(owner string) string {
	return "users/" + url.PathEscape(owner)
}

// Push writes the snapshot with a fresh lastSynced stamp, merging into the
// stored document.
func (s *Syncer) Push(ctx context.Context, owner string, snap model.Snapshot) error {
	if owner == "" {
		return errors.New("cloudsync: owner is required")
	}
	doc := Document{
		fieldNotes:      snap.Notes,
		fieldCategories: snap.Categories,
		fieldLastSynced: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.store.Set(ctx, DocumentPath(owner), doc, SetOptions{Merge: true}); err != nil {
		return err
	}
	s.logger.Debug("notebook pushed",
		slog.String("owner", owner),
		slog.Int("notes", len(snap.Notes)),
		slog.Int("categories", len(snap.Categories)),
	)
	return nil
}

// Pull reads the owner's snapshot. It returns false when nothing was ever
// pushed. Fields absent from the stored document come back nil.
func (s *Syncer) Pull(ctx context.Context, owner string) (model.Snapshot, bool, error) {
	doc, ok, err := s.store.Get(ctx, DocumentPath(owner))
	if err != nil || !ok {
		return model.Snapshot{}, false, err
	}
	snap, err := decodeSnapshot(doc)
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("cloudsync: decoding users/%s: %w", owner, err)
	}
	return snap, true, nil
}

// decodeSnapshot reads the notes and categories fields; other fields are
// ignored. A missing or null field decodes as a nil slice so callers can keep
// their local copy of it.
func decodeSnapshot(doc Document) (model.Snapshot, error) {
	raw, err := json.Marshal(Document{
		fieldNotes:      doc[fieldNotes],
		fieldCategories: doc[fieldCategories],
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// Schedule pushes the owner's notebook once no further Schedule call for the
// same owner arrived within the delay. snapshot is read when the push runs,
// so the latest state is sent. When it fails nothing is pushed, so the
// remote copy is never overwritten with an empty notebook. Failures are
// logged, never returned.
func (s *Syncer) Schedule(owner string, snapshot func() (model.Snapshot, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[owner]; ok {
		p.timer.Stop()
	}
	p := &pending{snapshot: snapshot}
	p.timer = time.AfterFunc(s.delay, func() { s.fire(owner, p) })
	s.pending[owner] = p
}

func (s *Syncer) fire(owner string, p *pending) {
	s.mu.Lock()
	if s.pending[owner] != p {
		// Superseded by a later Schedule.
		s.mu.Unlock()
		return
	}
	delete(s.pending, owner)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	s.push(ctx, owner, p)
}

func (s *Syncer) push(ctx context.Context, owner string, p *pending) {
	start := time.Now()
	snap, err := p.snapshot()
	if err != nil {
		s.logger.Warn("sync push skipped, snapshot unavailable",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.Push(ctx, owner, snap); err != nil {
		s.logger.Warn("sync push failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("sync push",
		slog.String("owner", owner),
		slog.Duration("duration", time.Since(start)),
	)
}

// Flush runs every pending push now. Call it on shutdown. A timer that
// already fired finds its entry gone and does nothing, so each pending push
// runs exactly once.
func (s *Syncer) Flush(ctx context.Context) {
	s.mu.Lock()
	due := s.pending
	s.pending = make(map[string]*pending)
	s.mu.Unlock()

	for owner, p := range due {
		p.timer.Stop()
		s.push(ctx, owner, p)
	}
}

// Pending reports how many owners have a push waiting.
func (s *Syncer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
