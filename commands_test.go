package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/edmo-corpus/corpus"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildShowListDrop(t *testing.T) {
	t.Chdir(t.TempDir())
	base := t.TempDir()
	tr := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, os.WriteFile(tr, []byte(`[
 {"speaker":"hamilton","text":"Pardon me.","start":0,"end":1.5},
 {"speaker":"burr","text":"That depends.","start":1.5,"end":3}
]`), 0o644))

	out, err := run(t, "build", tr, "--id", "burr", "--no-parse", "--base-path", base)
	require.NoError(t, err)
	assert.Equal(t, "burr\n", out)

	out, err = run(t, "show", "burr", "--base-path", base)
	require.NoError(t, err)
	assert.Contains(t, out, "id: burr")
	assert.Contains(t, out, "text: Pardon me.")
	assert.Contains(t, out, "speaker: hamilton")

	out, err = run(t, "show", "burr", "--format", "json", "--base-path", base)
	require.NoError(t, err)
	var snap corpus.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap.Utterances, 2)
	assert.Equal(t, "That depends.", snap.Utterances[1].Text)
	assert.Equal(t, 1.5, snap.Utterances[1].Meta["start"].Float())

	out, err = run(t, "list", "--base-path", base)
	require.NoError(t, err)
	assert.Equal(t, []string{"burr"}, strings.Fields(out))

	_, err = run(t, "drop", "burr", "--base-path", base)
	require.NoError(t, err)

	_, err = run(t, "show", "burr", "--base-path", base)
	assert.ErrorIs(t, err, corpus.ErrNotFound)
}

func TestCommandErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	base := t.TempDir()

	_, err := run(t, "show", "x", "--storage", "redis", "--base-path", base)
	assert.ErrorIs(t, err, corpus.ErrUnknownStorage)

	_, err = run(t, "show", "x", "--format", "xml", "--base-path", base)
	assert.ErrorIs(t, err, corpus.ErrNotFound, "missing corpus is reported before format")

	_, err = run(t, "list", "--log-level", "loud", "--base-path", base)
	assert.ErrorContains(t, err, "pipeline.log_level")
}

func TestStorageFlagHelpNamesMemAsProcessLocal(t *testing.T) {
	root := newRootCmd(&bytes.Buffer{})
	for _, name := range []string{"show", "drop", "list"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		f := cmd.Flags().Lookup("storage")
		require.NotNil(t, f, name)
		assert.Contains(t, f.Usage, "current process", name)
	}
}

func TestBuildReportsIDWhenOnlySummaryFails(t *testing.T) {
	t.Chdir(t.TempDir())
	base := t.TempDir()
	blocked := filepath.Join(base, "kept", "summary.json")
	require.NoError(t, os.MkdirAll(blocked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "x"), []byte("x"), 0o644))
	tr := filepath.Join(t.TempDir(), "t.json")
	require.NoError(t, os.WriteFile(tr, []byte(`[{"speaker":"a","text":"hi","start":0,"end":1}]`), 0o644))

	out, err := run(t, "build", tr, "--id", "kept", "--no-parse", "--base-path", base)
	require.Error(t, err)
	assert.Equal(t, "kept\n", out)

	out, err = run(t, "list", "--base-path", base)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, strings.Fields(out))
}
