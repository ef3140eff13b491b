package storage

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/edmo-corpus/corpus"
	"github.com/maastricht-university/edmo-corpus/meta"
)

func sampleSnapshot(id string) *corpus.Snapshot {
	return &corpus.Snapshot{
		ID:   id,
		Meta: meta.Map{"name": meta.String("burr-sir"), "year": meta.Int(1776)},
		Speakers: []corpus.SpeakerRecord{
			{ID: "hamilton", Meta: meta.Map{"party": meta.String("federalist")}},
			{ID: "burr"},
		},
		Utterances: []corpus.UtteranceRecord{
			{ID: "0", Text: "Pardon me. Are you Aaron Burr, sir?", SpeakerID: "hamilton", Meta: meta.Map{
				"sentences": meta.Strings("Pardon me.", "Are you Aaron Burr, sir?"),
				"start":     meta.Float(0),
				"nested":    meta.MustFromAny(map[string]any{"a": []any{1, 2.5, "x", nil, true}}),
			}},
			{ID: "1", Text: "That depends. Who's asking?", SpeakerID: "burr", Meta: meta.Map{}},
		},
	}
}

// backends returns fresh instances of every backend for contract tests.
func backends(t *testing.T) map[string]corpus.Backend {
	t.Helper()
	db, err := NewSQLite(t.TempDir())
	require.NoError(t, err)
	return map[string]corpus.Backend{
		"mem": NewMemory(),
		"db":  db,
	}
}

func TestBackendContract(t *testing.T) {
	ctx := context.Background()
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := be.Load(ctx, "missing")
			require.ErrorIs(t, err, corpus.ErrNotFound)

			in := sampleSnapshot("c1")
			require.NoError(t, be.Dump(ctx, in))

			a, err := be.Load(ctx, "c1")
			require.NoError(t, err)
			b, err := be.Load(ctx, "c1")
			require.NoError(t, err)
			assert.True(t, in.Equal(a))
			assert.True(t, a.Equal(b))
			assert.NotSame(t, a, b)
			assert.Equal(t, "c1", a.ID)
			assert.Equal(t, []string{"hamilton", "burr"}, []string{a.Speakers[0].ID, a.Speakers[1].ID})

			nested, ok := a.Utterances[0].Meta["nested"]
			require.True(t, ok)
			list, _ := nested.Get("a")
			assert.Equal(t, meta.KindFloat, list.List()[1].Kind())
			assert.Equal(t, meta.KindInt, list.List()[0].Kind())

			// overwrite
			in.Utterances = in.Utterances[:1]
			require.NoError(t, be.Dump(ctx, in))
			a, err = be.Load(ctx, "c1")
			require.NoError(t, err)
			assert.Len(t, a.Utterances, 1)

			require.NoError(t, be.Dump(ctx, sampleSnapshot("c0")))
			ids, err := be.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"c0", "c1"}, ids)

			require.NoError(t, be.Delete(ctx, "c1"))
			_, err = be.Load(ctx, "c1")
			assert.ErrorIs(t, err, corpus.ErrNotFound)
			assert.ErrorIs(t, be.Delete(ctx, "c1"), corpus.ErrNotFound)
		})
	}
}

func TestBackendRejectsUnsupportedBeforeWriting(t *testing.T) {
	ctx := context.Background()
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, be.Dump(ctx, sampleSnapshot("c")))

			bad := sampleSnapshot("c")
			bad.Utterances[1].Meta["score"] = meta.Float(math.NaN())
			bad.Utterances[0].Text = "changed"
			require.ErrorIs(t, be.Dump(ctx, bad), meta.ErrUnsupportedMetaValue)

			got, err := be.Load(ctx, "c")
			require.NoError(t, err)
			assert.True(t, sampleSnapshot("c").Equal(got), "prior state must survive a failed dump")
		})
	}
}

func TestBackendRejectsBadIDs(t *testing.T) {
	ctx := context.Background()
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "..", "a/b", `a\b`} {
				assert.ErrorIs(t, be.Dump(ctx, sampleSnapshot(id)), corpus.ErrInvalidID, id)
			}
		})
	}
}

func TestSQLiteLayout(t *testing.T) {
	base := t.TempDir()
	db, err := NewSQLite(base)
	require.NoError(t, err)
	require.NoError(t, db.Dump(context.Background(), sampleSnapshot("_abc")))

	entries, err := os.ReadDir(filepath.Join(base, "_abc"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{DBFile}, names, "no temp files may remain")
}

func TestSQLiteCanceledDumpKeepsPriorState(t *testing.T) {
	base := t.TempDir()
	db, err := NewSQLite(base)
	require.NoError(t, err)
	require.NoError(t, db.Dump(context.Background(), sampleSnapshot("c")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := sampleSnapshot("c")
	next.Utterances[0].Text = "rewritten"
	err = db.Dump(ctx, next)
	require.Error(t, err)
	assert.ErrorIs(t, err, corpus.ErrIO)

	var se *corpus.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "dump", se.Op)
	assert.Equal(t, "c", se.CorpusID)

	got, err := db.Load(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, "Pardon me. Are you Aaron Burr, sir?", got.Utterances[0].Text)

	entries, err := os.ReadDir(filepath.Join(base, "c"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteLoadCorruptFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "broken", DBFile), []byte("CORRUPTED_DATABASE_CONTENT"), 0o644))

	db, err := NewSQLite(base)
	require.NoError(t, err)
	_, err = db.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, corpus.ErrIO)
	assert.NotErrorIs(t, err, corpus.ErrNotFound)
}

func TestSQLiteListIgnoresStrayEntries(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "empty-dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0o644))

	db, err := NewSQLite(base)
	require.NoError(t, err)
	ids, err := db.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	missing, err := NewSQLite(filepath.Join(base, "nope"))
	require.NoError(t, err)
	ids, err = missing.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRegisteredFactories(t *testing.T) {
	be, err := corpus.OpenBackend(corpus.StorageMem, "")
	require.NoError(t, err)
	assert.Same(t, SharedMemory(), be)

	be, err = corpus.OpenBackend(corpus.StorageDB, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, corpus.StorageDB, be.Type())
}

func TestMemoryIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	in := sampleSnapshot("c")
	require.NoError(t, m.Dump(ctx, in))

	in.Utterances[0].Meta["sentences"] = meta.Strings("mutated")
	got, err := m.Load(ctx, "c")
	require.NoError(t, err)
	s := got.Utterances[0].Meta["sentences"]
	assert.Equal(t, 2, s.Len())

	got.Speakers[0].Meta["party"] = meta.String("changed")
	again, err := m.Load(ctx, "c")
	require.NoError(t, err)
	assert.True(t, again.Speakers[0].Meta["party"].Equal(meta.String("federalist")))
}

func TestSQLiteIDsWithURICharacters(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	base := filepath.Join(parent, "corpora")
	db, err := NewSQLite(base)
	require.NoError(t, err)

	ids := []string{"%2E%2E", "p%41", "q?x", "h#x"}
	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			in := sampleSnapshot(id)
			require.NoError(t, db.Dump(ctx, in))

			got, err := db.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, got.ID)
			assert.True(t, in.Equal(got))

			_, err = os.Stat(filepath.Join(base, id, DBFile))
			assert.NoError(t, err)
		})
	}

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	require.Len(t, entries, 1, "nothing may be written beside the base path")
	assert.Equal(t, "corpora", entries[0].Name())

	listed, err := db.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, listed)
}

func TestDSNEscapesPath(t *testing.T) {
	assert.Equal(t, "file:a/%252E%252E/corpus.db?mode=ro", dsn(filepath.Join("a", "%2E%2E", DBFile), "mode=ro"))
	assert.Equal(t, "file:a/q%3Fx/h%23y?_foreign_keys=on", dsn(filepath.Join("a", "q?x", "h#y"), "_foreign_keys=on"))
}
