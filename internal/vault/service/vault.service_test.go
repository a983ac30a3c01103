package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"teamvault/internal/vault/model"
	"teamvault/internal/vault/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFeed struct {
	mu       sync.Mutex
	docs     []string
	versions []uint64
}

func (f *recordingFeed) Publish(doc json.RawMessage, version uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, string(doc))
	f.versions = append(f.versions, version)
}

// latest returns the document published with the highest version.
func (f *recordingFeed) latest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best uint64
	var doc string
	for i, v := range f.versions {
		if v > best {
			best, doc = v, f.docs[i]
		}
	}
	return doc
}

type failingRepo struct{ err error }

func (r failingRepo) Load(context.Context) ([]byte, error) { return nil, r.err }
func (r failingRepo) Save(context.Context, []byte) error   { return r.err }

func newFileService(t *testing.T) (*VaultService, string, *recordingFeed) {
	path := filepath.Join(t.TempDir(), "db.json")
	feed := &recordingFeed{}
	return NewVaultService(repository.NewFileRepository(path), feed), path, feed
}

func TestReadDefaultWhenMissing(t *testing.T) {
	svc, path, _ := newFileService(t)

	doc, err := svc.Read(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"users": {}, "passwords": {}, "teams": {}}`, string(doc))

	// The default is synthesized, not persisted.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReadDefaultIsNotShared(t *testing.T) {
	svc, _, _ := newFileService(t)

	doc, err := svc.Read(context.Background())
	require.NoError(t, err)
	doc[0] = '['

	assert.Equal(t, byte('{'), model.DefaultDocument[0])
}

func TestWriteRoundTrip(t *testing.T) {
	svc, path, feed := newFileService(t)
	ctx := context.Background()
	in := `{"users":{"a@b.c":{"name":"A","keys":[1,2.5,"x",null,true]}},"passwords":{},"teams":{"t1":{"members":[]}}}`

	require.NoError(t, svc.Write(ctx, []byte(in)))

	doc, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(doc))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(onDisk), "{\n  \"users\": {\n    \"a@b.c\": {")

	assert.Equal(t, []string{in}, feed.docs)
}

func TestWriteArbitraryJSONValues(t *testing.T) {
	for _, in := range []string{`[]`, `"text"`, `42`, `null`, `  {"k": "ü"}  `} {
		t.Run(in, func(t *testing.T) {
			svc, _, _ := newFileService(t)
			ctx := context.Background()

			require.NoError(t, svc.Write(ctx, []byte(in)))
			doc, err := svc.Read(ctx)
			require.NoError(t, err)
			assert.JSONEq(t, in, string(doc))
		})
	}
}

func TestWriteIdempotent(t *testing.T) {
	svc, _, _ := newFileService(t)
	ctx := context.Background()
	in := []byte(`{"teams":{"x":1}}`)

	require.NoError(t, svc.Write(ctx, in))
	first, err := svc.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Write(ctx, in))
	second, err := svc.Read(ctx)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestWriteInvalidLeavesDocumentUnchanged(t *testing.T) {
	svc, _, feed := newFileService(t)
	ctx := context.Background()
	require.NoError(t, svc.Write(ctx, []byte(`{"users":{"kept":true}}`)))

	for _, bad := range []string{``, `not json`, `{"a":`, `{"a":1} {"b":2}`, "\"\xff\""} {
		err := svc.Write(ctx, []byte(bad))
		require.Error(t, err, "input %q", bad)
		assert.ErrorIs(t, err, model.ErrInvalidDocument)
		assert.NotEmpty(t, err.Error())
	}

	doc, err := svc.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":{"kept":true}}`, string(doc))
	assert.Len(t, feed.docs, 1)
}

func TestReadCorruptDocument(t *testing.T) {
	svc, path, _ := newFileService(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"users": `), 0o644))

	_, err := svc.Read(context.Background())
	assert.ErrorIs(t, err, model.ErrCorruptDocument)
}

func TestRepositoryErrorsPropagate(t *testing.T) {
	boom := errors.New("disk full")
	feed := &recordingFeed{}
	svc := NewVaultService(failingRepo{err: boom}, feed)
	ctx := context.Background()

	_, err := svc.Read(ctx)
	assert.ErrorIs(t, err, boom)

	err = svc.Write(ctx, []byte(`{}`))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, feed.docs)
}

func TestConcurrentWritesLeaveOneWholeDocument(t *testing.T) {
	svc, path, feed := newFileService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, _ := json.Marshal(map[string]int{"writer": i})
			assert.NoError(t, svc.Write(ctx, doc))
		}(i)
	}
	wg.Wait()

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	var v map[string]int
	require.NoError(t, json.Unmarshal(onDisk, &v))

	// The file holds the document published with the highest version.
	assert.Len(t, feed.docs, 20)
	assert.ElementsMatch(t, versionsUpTo(20), feed.versions)
	assert.JSONEq(t, feed.latest(), string(onDisk))
}

func versionsUpTo(n uint64) []uint64 {
	out := make([]uint64, 0, n)
	for v := uint64(1); v <= n; v++ {
		out = append(out, v)
	}
	return out
}

func TestSnapshotVersion(t *testing.T) {
	svc, _, feed := newFileService(t)
	ctx := context.Background()

	_, version, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), version)

	require.NoError(t, svc.Write(ctx, []byte(`{"a":1}`)))
	assert.Error(t, svc.Write(ctx, []byte(`{"a":`)))
	require.NoError(t, svc.Write(ctx, []byte(`{"a":2}`)))

	doc, version, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)
	assert.JSONEq(t, `{"a":2}`, string(doc))
	assert.Equal(t, []uint64{1, 2}, feed.versions)
}

func TestNormalize(t *testing.T) {
	compact, pretty, err := Normalize([]byte("{ \"a\" : [1, 2], \"b\": {} }\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2],"b":{}}`, string(compact))
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    2\n  ],\n  \"b\": {}\n}", string(pretty))
}
