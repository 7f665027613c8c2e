package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/localnerve/docstore/internal/document"
	"github.com/localnerve/docstore/internal/events"
	"github.com/localnerve/docstore/internal/session"
	"github.com/localnerve/docstore/internal/store"
	"github.com/localnerve/docstore/internal/testsupport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// fakeStore keeps documents in a map and counts calls; other operations are unused
type fakeStore struct {
	store.DocumentStore

	mu      sync.Mutex
	docs    map[string]*document.Document
	loads   int
	exists  int
	saves   int
	failing error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]*document.Document{}}
}

func (f *fakeStore) Load(_ context.Context, doc *document.Document) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.failing != nil {
		return nil, f.failing
	}
	stored, ok := f.docs[doc.Key()]
	if !ok {
		doc.SetNew(true)
		return doc, nil
	}
	out := stored.Clone()
	out.SetNew(false)
	return out, nil
}

func (f *fakeStore) Exists(_ context.Context, doc *document.Document) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exists++
	_, ok := f.docs[doc.Key()]
	return ok, nil
}

func (f *fakeStore) Save(_ context.Context, doc *document.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.failing != nil {
		return f.failing
	}
	f.docs[doc.Key()] = doc.Clone()
	return nil
}

func (f *fakeStore) Delete(_ context.Context, doc *document.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, doc.Key())
	return nil
}

func (f *fakeStore) GetClassList(context.Context) ([]string, error) {
	return []string{"XWiki.TagClass"}, nil
}

func newCache(t *testing.T, inner store.DocumentStore, capacity int) *Store {
	t.Helper()
	c, err := New(inner, Options{Capacity: capacity, ExistCapacity: capacity, MainWiki: "xwiki"}, nil, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func page(wiki, fullName string) *document.Document {
	doc := document.New(document.NewReference(wiki, fullName), "")
	doc.SetContent("content of " + fullName)
	return doc
}

func TestLoadHitsCache(t *testing.T) {
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	ctx := context.Background()
	require.NoError(t, c.Save(ctx, page("xwiki", "Main.A")))

	first, err := c.Load(ctx, document.New(document.NewReference("xwiki", "Main.A"), ""))
	require.NoError(t, err)
	assert.False(t, first.FromCache())

	second, err := c.Load(ctx, document.New(document.NewReference("xwiki", "Main.A"), ""))
	require.NoError(t, err)
	assert.True(t, second.FromCache())
	assert.Equal(t, "content of Main.A", second.Content)
	assert.Equal(t, 1, inner.loads)

	second.SetContent("mutated copy")
	third, err := c.Load(ctx, document.New(document.NewReference("xwiki", "Main.A"), ""))
	require.NoError(t, err)
	assert.Equal(t, "content of Main.A", third.Content)
}

func TestMissingDocumentIsRemembered(t *testing.T) {
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		doc, err := c.Load(ctx, page("xwiki", "Main.Nope"))
		require.NoError(t, err)
		assert.True(t, doc.IsNew())
	}
	assert.Equal(t, 1, inner.loads)

	found, err := c.Exists(ctx, page("xwiki", "Main.Nope"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, inner.exists)
}

func TestSaveInvalidates(t *testing.T) {
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	ctx := context.Background()

	_, err := c.Load(ctx, page("xwiki", "Main.B"))
	require.NoError(t, err)
	require.NoError(t, c.Save(ctx, page("xwiki", "Main.B")))

	found, err := c.Exists(ctx, page("xwiki", "Main.B"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, inner.exists)

	loaded, err := c.Load(ctx, page("xwiki", "Main.B"))
	require.NoError(t, err)
	assert.False(t, loaded.FromCache())
	assert.False(t, loaded.IsNew())
}

func TestFailedSaveStillInvalidates(t *testing.T) {
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	ctx := context.Background()
	require.NoError(t, c.Save(ctx, page("xwiki", "Main.C")))
	_, err := c.Load(ctx, page("xwiki", "Main.C"))
	require.NoError(t, err)

	inner.failing = errors.New("boom")
	assert.Error(t, c.Save(ctx, page("xwiki", "Main.C")))
	docs, _ := c.Stats()
	assert.Zero(t, docs)
}

func TestDeleteRemembersMissing(t *testing.T) {
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	ctx := context.Background()
	doc := page("xwiki", "Main.D")
	require.NoError(t, c.Save(ctx, doc))
	_, err := c.Load(ctx, page("xwiki", "Main.D"))
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, doc))
	found, err := c.Exists(ctx, page("xwiki", "Main.D"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, inner.exists)
}

func TestEvents(t *testing.T) {
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	ctx := context.Background()
	bus := events.NewBus(zerolog.Nop())
	bus.Subscribe(c)

	for _, d := range []*document.Document{page("xwiki", "Main.E"), page("sub", "Main.E"), page("sub", "Main.F")} {
		require.NoError(t, c.Save(ctx, d))
		_, err := c.Load(ctx, document.New(d.Ref, ""))
		require.NoError(t, err)
	}
	docs, _ := c.Stats()
	require.Equal(t, 3, docs)

	bus.Publish(events.Event{Kind: events.DocumentUpdated, Wiki: "xwiki", Reference: document.NewReference("xwiki", "Main.E")})
	docs, _ = c.Stats()
	assert.Equal(t, 3, docs, "local events are ignored")

	bus.Publish(events.Event{Kind: events.DocumentUpdated, Wiki: "xwiki", Reference: document.NewReference("", "Main.E"), Remote: true})
	docs, _ = c.Stats()
	assert.Equal(t, 2, docs)

	bus.Publish(events.Event{Kind: events.WikiDeleted, Wiki: "sub"})
	docs, exists := c.Stats()
	assert.Zero(t, docs)
	assert.Zero(t, exists)
}

func TestKeysResolveWikiFromContext(t *testing.T) {
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	noWiki := document.New(document.Reference{Space: "Main", Name: "G"}, "")

	assert.Equal(t, document.Key(document.NewReference("xwiki", "Main.G"), ""), c.key(context.Background(), noWiki))
	ctx := session.WithWiki(context.Background(), "sub")
	assert.Equal(t, document.Key(document.NewReference("sub", "Main.G"), ""), c.key(ctx, noWiki))
}

func TestEviction(t *testing.T) {
	inner := newFakeStore()
	c := newCache(t, inner, 2)
	ctx := context.Background()
	for _, n := range []string{"Main.1", "Main.2", "Main.3"} {
		require.NoError(t, c.Save(ctx, page("xwiki", n)))
		_, err := c.Load(ctx, page("xwiki", n))
		require.NoError(t, err)
	}
	docs, _ := c.Stats()
	assert.Equal(t, 2, docs)

	_, err := c.Load(ctx, page("xwiki", "Main.1"))
	require.NoError(t, err)
	assert.Equal(t, 4, inner.loads)
}

func TestPassThrough(t *testing.T) {
	c := newCache(t, newFakeStore(), 10)
	classes, err := c.GetClassList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"XWiki.TagClass"}, classes)
}

func TestUnitReadsAreNotCached(t *testing.T) {
	db := testsupport.OpenSQLite(t)
	gw := session.NewGateway(db, nil, "xwiki", zerolog.Nop())
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	require.NoError(t, inner.Save(context.Background(), page("xwiki", "Main.H")))

	err := gw.ExecuteRead(context.Background(), func(ctx context.Context, _ *gorm.DB) error {
		_, err := c.Load(ctx, page("xwiki", "Main.H"))
		return err
	})
	require.NoError(t, err)
	docs, exists := c.Stats()
	assert.Zero(t, docs)
	assert.Zero(t, exists)
}

func TestUnitWritesInvalidateAfterCommit(t *testing.T) {
	gw := session.NewGateway(testsupport.OpenSQLite(t), nil, "xwiki", zerolog.Nop())
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	ctx := context.Background()

	doc := page("xwiki", "Main.I")
	require.NoError(t, c.Save(ctx, doc))
	committed := doc.Clone()

	err := gw.ExecuteWrite(ctx, func(uctx context.Context, _ *gorm.DB) error {
		doc.SetContent("second")
		require.NoError(t, c.Save(uctx, doc))

		// until the unit commits other readers still see the first version
		written := inner.docs[doc.Key()]
		inner.docs[doc.Key()] = committed
		stale, err := c.Load(ctx, page("xwiki", "Main.I"))
		require.NoError(t, err)
		assert.Equal(t, "content of Main.I", stale.Content)
		inner.docs[doc.Key()] = written

		cached, _ := c.Stats()
		assert.Equal(t, 1, cached)
		return nil
	})
	require.NoError(t, err)

	cached, existence := c.Stats()
	assert.Zero(t, cached)
	assert.Zero(t, existence)
	loaded, err := c.Load(ctx, page("xwiki", "Main.I"))
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Content)
}

func TestUnitDeleteRemembersMissingAfterCommit(t *testing.T) {
	gw := session.NewGateway(testsupport.OpenSQLite(t), nil, "xwiki", zerolog.Nop())
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	ctx := context.Background()

	doc := page("xwiki", "Main.J")
	require.NoError(t, c.Save(ctx, doc))
	committed := doc.Clone()

	err := gw.ExecuteWrite(ctx, func(uctx context.Context, _ *gorm.DB) error {
		require.NoError(t, c.Delete(uctx, doc))

		inner.docs[doc.Key()] = committed
		found, err := c.Exists(ctx, page("xwiki", "Main.J"))
		require.NoError(t, err)
		assert.True(t, found)
		delete(inner.docs, doc.Key())
		return nil
	})
	require.NoError(t, err)

	calls := inner.exists
	found, err := c.Exists(ctx, page("xwiki", "Main.J"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, calls, inner.exists)

	// a rolled back deletion leaves no missing marker behind
	other := page("xwiki", "Main.K")
	require.NoError(t, c.Save(ctx, other))
	err = gw.ExecuteWrite(ctx, func(uctx context.Context, _ *gorm.DB) error {
		require.NoError(t, c.Delete(uctx, other))
		return errors.New("abort")
	})
	require.Error(t, err)
	_, existence := c.Stats()
	assert.Equal(t, 1, existence)
}

func TestConcurrentExists(t *testing.T) {
	inner := newFakeStore()
	c := newCache(t, inner, 10)
	ctx := context.Background()
	require.NoError(t, inner.Save(ctx, page("xwiki", "Main.L")))

	answers := make([]bool, 8)
	var g errgroup.Group
	for i := range answers {
		g.Go(func() error {
			found, err := c.Exists(ctx, page("xwiki", "Main.L"))
			answers[i] = found
			return err
		})
	}
	require.NoError(t, g.Wait())
	for i, found := range answers {
		assert.True(t, found, "answer %d", i)
	}
	assert.Positive(t, inner.exists)
	assert.LessOrEqual(t, inner.exists, len(answers))

	calls := inner.exists
	found, err := c.Exists(ctx, page("xwiki", "Main.L"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, calls, inner.exists)

	missing := make([]bool, 2)
	var misses errgroup.Group
	for i := range missing {
		misses.Go(func() error {
			found, err := c.Exists(ctx, page("xwiki", "Main.Gone"))
			missing[i] = found
			return err
		})
	}
	require.NoError(t, misses.Wait())
	assert.Equal(t, []bool{false, false}, missing)
	_, existence := c.Stats()
	assert.Equal(t, 2, existence)
}
