package cloudsync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devnote/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loadSample is sampleSnapshot in the shape Schedule reads.
func loadSample() (model.Snapshot, error) {
	return sampleSnapshot(), nil
}

func sampleSnapshot() model.Snapshot {
	parent := "c1"
	return model.Snapshot{
		Notes: []model.Note{{
			ID:        "n1",
			Title:     "Hello",
			Content:   "body",
			Category:  "Go",
			Tags:      []string{"a"},
			CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		}},
		Categories: []model.Category{
			{ID: "c1", Name: "Dev"},
			{ID: "c2", Name: "Go", ParentID: &parent},
		},
	}
}

// =========================================================================
// MEMORY STORE
// =========================================================================

func TestMemoryStore_SetMerge(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, ok, err := m.Get(ctx, "users/a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "users/a", Document{"x": 1.0, "y": "keep"}, SetOptions{}))
	require.NoError(t, m.Set(ctx, "users/a", Document{"x": 2.0}, SetOptions{Merge: true}))

	doc, ok, err := m.Get(ctx, "users/a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Document{"x": 2.0, "y": "keep"}, doc)

	require.NoError(t, m.Set(ctx, "users/a", Document{"x": 3.0}, SetOptions{}))
	doc, _, _ = m.Get(ctx, "users/a")
	assert.Equal(t, Document{"x": 3.0}, doc, "replace drops other fields")
}

// =========================================================================
// S3 STORE
// =========================================================================

// fakeS3 keeps objects in a map and answers like S3 for missing keys.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(raw))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	raw, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = raw
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_KeyLayout(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "users/alice", "users/alice.json"},
		{"devnote", "users/alice", "devnote/users/alice.json"},
		{"/devnote/", "/users/alice", "devnote/users/alice.json"},
	}
	for _, tt := range tests {
		s := newS3Store(newFakeS3(), "bucket", tt.prefix)
		assert.Equal(t, tt.want, s.key(tt.path))
	}
}

func TestS3Store_RoundTripAndMerge(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newS3Store(fake, "bucket", "devnote")

	_, ok, err := s.Get(ctx, "users/alice")
	require.NoError(t, err)
	assert.False(t, ok, "missing key is not an error")

	require.NoError(t, s.Set(ctx, "users/alice", Document{"a": "1", "b": "2"}, SetOptions{}))
	require.NoError(t, s.Set(ctx, "users/alice", Document{"b": "3"}, SetOptions{Merge: true}))

	assert.Contains(t, fake.objects, "bucket/devnote/users/alice.json")
	doc, ok, err := s.Get(ctx, "users/alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Document{"a": "1", "b": "3"}, doc)
}

func TestS3Store_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	s := newS3Store(fake, "bucket", "")

	err := s.Set(context.Background(), "users/alice", Document{}, SetOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

// =========================================================================
// SYNCER
// =========================================================================

func newTestSyncer(store DocumentStore, delay time.Duration) *Syncer {
	s := NewSyncer(store, delay, testLogger())
	s.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return s
}

func TestSyncer_PushPull(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := newTestSyncer(store, time.Hour)

	require.NoError(t, s.Push(ctx, "alice", sampleSnapshot()))

	doc, ok, _ := store.Get(ctx, "users/alice")
	require.True(t, ok)
	assert.Equal(t, "2026-03-02T08:00:00Z", doc["lastSynced"])

	got, ok, err := s.Pull(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleSnapshot(), got)
}

func TestSyncer_PushKeepsForeignFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "users/alice", Document{"profile": "kept"}, SetOptions{}))

	s := newTestSyncer(store, time.Hour)
	require.NoError(t, s.Push(ctx, "alice", sampleSnapshot()))

	doc, _, _ := store.Get(ctx, "users/alice")
	assert.Equal(t, "kept", doc["profile"])
}

func TestSyncer_PullMissing(t *testing.T) {
	s := newTestSyncer(NewMemoryStore(), time.Hour)
	_, ok, err := s.Pull(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSyncer_PullPartialDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "users/alice", Document{"lastSynced": "x"}, SetOptions{}))

	got, ok, err := newTestSyncer(store, time.Hour).Pull(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.Notes, "absent field stays nil")
	assert.Nil(t, got.Categories)
}

func TestSyncer_PushRequiresOwner(t *testing.T) {
	s := newTestSyncer(NewMemoryStore(), time.Hour)
	assert.Error(t, s.Push(context.Background(), "", model.Snapshot{}))
}

func TestDocumentPath_EscapesOwner(t *testing.T) {
	assert.Equal(t, "users/alice", DocumentPath("alice"))
	assert.Equal(t, "users/a%2Fb", DocumentPath("a/b"))
}

// countingStore records how many writes reached it.
type countingStore struct {
	*MemoryStore
	mu   sync.Mutex
	sets int
	done chan struct{}
}

func (c *countingStore) Set(ctx context.Context, path string, doc Document, opts SetOptions) error {
	err := c.MemoryStore.Set(ctx, path, doc, opts)
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	if c.done != nil {
		c.done <- struct{}{}
	}
	return err
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

func TestSyncer_ScheduleDebounces(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore(), done: make(chan struct{}, 4)}
	s := newTestSyncer(store, 20*time.Millisecond)

	var mu sync.Mutex
	title := ""
	snapshot := func() (model.Snapshot, error) {
		mu.Lock()
		defer mu.Unlock()
		snap := sampleSnapshot()
		snap.Notes[0].Title = title
		return snap, nil
	}

	for _, tt := range []string{"one", "two", "three"} {
		mu.Lock()
		title = tt
		mu.Unlock()
		s.Schedule("alice", snapshot)
	}

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled push never ran")
	}
	// Give a stray second push the chance to show up.
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 1, store.count())
	assert.Equal(t, 0, s.Pending())
	got, _, _ := s.Pull(context.Background(), "alice")
	assert.Equal(t, "three", got.Notes[0].Title)
}

func TestSyncer_FlushRunsPendingOnce(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	s := newTestSyncer(store, time.Hour)

	s.Schedule("alice", loadSample)
	s.Schedule("bob", loadSample)
	require.Equal(t, 2, s.Pending())

	s.Flush(context.Background())

	assert.Equal(t, 2, store.count())
	assert.Equal(t, 0, s.Pending())
}

// failingStore rejects every write.
type failingStore struct{ *MemoryStore }

func (f *failingStore) Set(context.Context, string, Document, SetOptions) error {
	return errors.New("offline")
}

func TestSyncer_FailuresAreLogged(t *testing.T) {
	var logs strings.Builder
	s := NewSyncer(&failingStore{NewMemoryStore()}, time.Hour,
		slog.New(slog.NewTextHandler(&logs, nil)))

	s.Schedule("alice", loadSample)
	s.Flush(context.Background())

	assert.Contains(t, logs.String(), "sync push failed")
	assert.Contains(t, logs.String(), "offline")
}

func TestSyncer_SnapshotErrorSkipsPush(t *testing.T) {
	ctx := context.Background()
	var logs strings.Builder
	store := &countingStore{MemoryStore: NewMemoryStore()}
	s := NewSyncer(store, time.Hour, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, s.Push(ctx, "alice", sampleSnapshot()))

	s.Schedule("alice", func() (model.Snapshot, error) {
		return model.Snapshot{}, errors.New("database is locked")
	})
	s.Flush(ctx)

	assert.Equal(t, 1, store.count())
	assert.Contains(t, logs.String(), "sync push skipped")
	got, ok, err := s.Pull(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleSnapshot(), got)
}
