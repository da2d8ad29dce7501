package keystore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestFileStore(t *testing.T, dir string) *FileStore {
	t.Helper()
	s, err := OpenFile(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFileStore_GetSetDelete(t *testing.T) {
	s := openTestFileStore(t, t.TempDir())
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Delete(ctx, "k")) // absent key is a no-op
}

func TestFileStore_KeysWithUnsafeCharacters(t *testing.T) {
	s := openTestFileStore(t, t.TempDir())
	ctx := context.Background()

	key := "favorites/user a?b%c"
	require.NoError(t, s.Set(ctx, key, "v"))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenFile(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "durable"))
	require.NoError(t, s.Close())

	s2 := openTestFileStore(t, dir)
	v, ok, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "durable", v)
}

func TestFileStore_NotifiesOtherHandles(t *testing.T) {
	dir := t.TempDir()
	a := openTestFileStore(t, dir)
	b := openTestFileStore(t, dir)
	ctx := context.Background()

	var rec eventRecorder
	b.Subscribe(rec.handler())

	require.NoError(t, a.Set(ctx, "k", "v"))
	require.Eventually(t, func() bool { return rec.count() >= 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, Event{Key: "k", Value: "v", Present: true}, rec.all()[0])

	require.NoError(t, a.Delete(ctx, "k"))
	require.Eventually(t, func() bool {
		events := rec.all()
		last := events[len(events)-1]
		return last == Event{Key: "k"}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFileStore_OwnWritesAreSilent(t *testing.T) {
	a := openTestFileStore(t, t.TempDir())
	ctx := context.Background()

	var rec eventRecorder
	a.Subscribe(rec.handler())

	require.NoError(t, a.Set(ctx, "k", "v"))
	require.NoError(t, a.Delete(ctx, "k"))

	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, rec.count())
}
