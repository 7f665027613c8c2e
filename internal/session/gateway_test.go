package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/localnerve/docstore/internal/models"
	"github.com/localnerve/docstore/internal/testsupport"
	"github.com/localnerve/docstore/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingSwitcher struct {
	mu       sync.Mutex
	calls    []string
	checkErr error
}

func (r *recordingSwitcher) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recordingSwitcher) CheckWiki(_ *gorm.DB, wikiID string) error {
	r.record("check:" + wikiID)
	return r.checkErr
}

func (r *recordingSwitcher) SwitchToWiki(_ *gorm.DB, wikiID string) (func() error, error) {
	r.record("switch:" + wikiID)
	return func() error {
		r.record("restore:" + wikiID)
		return nil
	}, nil
}

func newGateway(t *testing.T) (*Gateway, *recordingSwitcher) {
	sw := &recordingSwitcher{}
	return NewGateway(testsupport.OpenSQLite(t), sw, "xwiki", zerolog.Nop()), sw
}

func countLocks(t *testing.T, g *Gateway) int64 {
	var n int64
	require.NoError(t, g.DB().Model(&models.Lock{}).Count(&n).Error)
	return n
}

func TestExecuteCommits(t *testing.T) {
	g, sw := newGateway(t)
	ctx := WithWiki(context.Background(), "sub")

	err := g.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		assert.True(t, InUnit(ctx))
		return tx.Create(&models.Lock{DocID: 1, UserName: "XWiki.Admin"}).Error
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countLocks(t, g))
	assert.Equal(t, []string{"check:sub", "switch:sub", "restore:sub"}, sw.calls)
}

func TestExecuteWithoutCommitRollsBack(t *testing.T) {
	g, _ := newGateway(t)
	err := g.Execute(context.Background(), false, func(ctx context.Context, tx *gorm.DB) error {
		return tx.Create(&models.Lock{DocID: 1, UserName: "XWiki.Admin"}).Error
	})
	require.NoError(t, err)
	assert.Zero(t, countLocks(t, g))
}

func TestExecuteErrorRollsBackAndWraps(t *testing.T) {
	g, sw := newGateway(t)
	boom := errors.New("boom")

	err := g.ExecuteWrite(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		require.NoError(t, tx.Create(&models.Lock{DocID: 1, UserName: "XWiki.Admin"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, types.ErrStorageFailure)
	assert.Zero(t, countLocks(t, g))
	assert.Contains(t, sw.calls, "restore:xwiki")
}

func TestNestedExecuteJoinsUnit(t *testing.T) {
	g, sw := newGateway(t)

	err := g.ExecuteWrite(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		return g.ExecuteWrite(ctx, func(ctx context.Context, inner *gorm.DB) error {
			assert.Same(t, tx, inner)
			return inner.Create(&models.Lock{DocID: 2, UserName: "XWiki.Admin"}).Error
		})
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countLocks(t, g))
	assert.Len(t, sw.calls, 3)
}

func TestAfterCommit(t *testing.T) {
	g, _ := newGateway(t)
	ctx := context.Background()
	var ran []string

	err := g.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		AfterCommit(ctx, func() { ran = append(ran, "outer") })
		return g.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
			AfterCommit(ctx, func() { ran = append(ran, "nested") })
			assert.Empty(t, ran)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "nested"}, ran)

	ran = nil
	err = g.ExecuteWrite(ctx, func(ctx context.Context, tx *gorm.DB) error {
		AfterCommit(ctx, func() { ran = append(ran, "failed") })
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NoError(t, g.ExecuteRead(ctx, func(ctx context.Context, tx *gorm.DB) error {
		AfterCommit(ctx, func() { ran = append(ran, "read") })
		return nil
	}))
	assert.Empty(t, ran)

	AfterCommit(ctx, func() { ran = append(ran, "direct") })
	assert.Equal(t, []string{"direct"}, ran)
}

func TestNestedExecuteOnOtherWikiFails(t *testing.T) {
	g, _ := newGateway(t)

	err := g.ExecuteRead(context.Background(), func(ctx context.Context, tx *gorm.DB) error {
		return g.ExecuteRead(WithWiki(ctx, "other"), func(context.Context, *gorm.DB) error {
			t.Fatal("unit must not run")
			return nil
		})
	})
	se, ok := types.AsStoreError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeSwitchDatabase, se.Code)
}

func TestCheckWikiFailureSkipsUnit(t *testing.T) {
	g, sw := newGateway(t)
	sw.checkErr = types.NewError(types.ErrMigrationRequired, types.CodeMigrationRequired, "old", "Migration required", nil)

	err := g.ExecuteRead(WithWiki(context.Background(), "old"), func(context.Context, *gorm.DB) error {
		t.Fatal("unit must not run")
		return nil
	})
	assert.ErrorIs(t, err, types.ErrMigrationRequired)
	assert.Equal(t, []string{"check:old"}, sw.calls)
}

func TestFailSafeExecute(t *testing.T) {
	g, _ := newGateway(t)

	ok := g.FailSafeExecute(context.Background(), true, func(context.Context, *gorm.DB) error {
		return errors.New("ignored")
	})
	assert.False(t, ok)

	n, ok := FailSafe(context.Background(), g, true, func(ctx context.Context, tx *gorm.DB) (int64, error) {
		assert.True(t, InUnit(ctx))
		res := tx.Create(&models.Lock{DocID: 3, UserName: "XWiki.Admin"})
		return res.RowsAffected, res.Error
	})
	assert.True(t, ok)
	assert.EqualValues(t, 1, n)
}

func TestRunAndRead(t *testing.T) {
	g, _ := newGateway(t)
	ctx := context.Background()

	_, err := Run(ctx, g, true, func(ctx context.Context, tx *gorm.DB) (struct{}, error) {
		return struct{}{}, tx.Create(&models.Lock{DocID: 4, UserName: "XWiki.Admin"}).Error
	})
	require.NoError(t, err)

	user, err := Read(ctx, g, func(ctx context.Context, tx *gorm.DB) (string, error) {
		var l models.Lock
		err := tx.First(&l, "doc_id = ?", 4).Error
		return l.UserName, err
	})
	require.NoError(t, err)
	assert.Equal(t, "XWiki.Admin", user)
}

func TestWikiDefaults(t *testing.T) {
	g, _ := newGateway(t)
	assert.Equal(t, "xwiki", g.Wiki(context.Background()))
	assert.Equal(t, "sub", g.Wiki(WithWiki(context.Background(), "sub")))
	_, ok := WikiFromContext(WithWiki(context.Background(), ""))
	assert.False(t, ok)
}
