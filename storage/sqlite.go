package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/edmo-corpus/corpus"
	"github.com/maastricht-university/edmo-corpus/meta"
)

var log = logrus.WithField("component", "storage")

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	// DBFile is the database file inside a corpus directory.
	DBFile = "corpus.db"

	formatVersion = "1"
)

var errNotCorpus = errors.New("not a corpus database")

// SQLite stores each corpus as <base>/<id>/corpus.db. A dump builds a new
// database beside the old one and renames it into place.
type SQLite struct {
	base string
}

var _ corpus.Backend = (*SQLite)(nil)

// NewSQLite returns a backend rooted at basePath ("." when empty). The
// directory is created on first dump.
func NewSQLite(basePath string) (*SQLite, error) {
	if strings.TrimSpace(basePath) == "" {
		basePath = "."
	}
	return &SQLite{base: basePath}, nil
}

func (s *SQLite) Type() corpus.StorageType { return corpus.StorageDB }

// Dir is the directory holding corpus id.
func (s *SQLite) Dir(id string) string { return filepath.Join(s.base, id) }

func (s *SQLite) path(id string) string { return filepath.Join(s.Dir(id), DBFile) }

// uriPath escapes the characters SQLite decodes or splits on in a file: URI,
// so the opened file is exactly path.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// dsn builds a go-sqlite3 file: URI for path with the given query.
func dsn(path, query string) string {
	return "file:" + uriPath.Replace(filepath.ToSlash(path)) + "?" + query
}

type speakerRow struct {
	ID   string `db:"id"`
	Meta string `db:"meta"`
}

type utteranceRow struct {
	ID        string `db:"id"`
	SpeakerID string `db:"speaker_id"`
	Text      string `db:"text"`
	Meta      string `db:"meta"`
}

type encoded struct {
	meta       string
	speakers   []speakerRow
	utterances []utteranceRow
}

// encode serializes all metadata up front so unsupported values fail the
// dump before the filesystem is touched.
func encode(snap *corpus.Snapshot) (*encoded, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	m, err := encodeMeta(snap.Meta)
	if err != nil {
		return nil, fmt.Errorf("corpus meta: %w", err)
	}
	out := &encoded{meta: m}
	for _, r := range snap.Speakers {
		m, err := encodeMeta(r.Meta)
		if err != nil {
			return nil, fmt.Errorf("speaker %q: %w", r.ID, err)
		}
		out.speakers = append(out.speakers, speakerRow{ID: r.ID, Meta: m})
	}
	for _, r := range snap.Utterances {
		m, err := encodeMeta(r.Meta)
		if err != nil {
			return nil, fmt.Errorf("utterance %q: %w", r.ID, err)
		}
		out.utterances = append(out.utterances, utteranceRow{ID: r.ID, SpeakerID: r.SpeakerID, Text: r.Text, Meta: m})
	}
	return out, nil
}

func encodeMeta(m meta.Map) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *SQLite) Dump(ctx context.Context, snap *corpus.Snapshot) error {
	id := snap.ID
	if err := corpus.ValidateID(id); err != nil {
		return err
	}
	rows, err := encode(snap)
	if err != nil {
		return err
	}

	dir := s.Dir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return corpus.IOFailure("dump", id, fmt.Errorf("make corpus dir: %w", err))
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*.db")
	if err != nil {
		return corpus.IOFailure("dump", id, fmt.Errorf("create temp: %w", err))
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		removeTemp(tmpPath)
		return corpus.IOFailure("dump", id, fmt.Errorf("close temp: %w", err))
	}

	committed := false
	defer func() {
		if !committed {
			removeTemp(tmpPath)
		}
	}()

	if err := writeDB(ctx, tmpPath, id, rows); err != nil {
		return corpus.IOFailure("dump", id, err)
	}
	if err := commitFile(tmpPath, s.path(id)); err != nil {
		return corpus.IOFailure("dump", id, err)
	}
	committed = true

	log.WithFields(logrus.Fields{
		"corpus_id":  id,
		"path":       s.path(id),
		"speakers":   len(rows.speakers),
		"utterances": len(rows.utterances),
	}).Info("corpus written")
	return nil
}

func writeDB(ctx context.Context, path, id string, rows *encoded) (err error) {
	db, err := sqlx.Open("sqlite3", dsn(path, "_foreign_keys=on"))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sqlite: %w", cerr)
		}
	}()
	if err = runMigrations(ctx, db.DB); err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	info := map[string]string{"corpus_id": id, "format": formatVersion, "meta": rows.meta}
	for k, v := range info {
		if _, err = tx.ExecContext(ctx, `INSERT INTO corpus_info (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert corpus info %s: %w", k, err)
		}
	}
	for _, r := range rows.speakers {
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO speakers (id, meta) VALUES (:id, :meta)`, r); err != nil {
			return fmt.Errorf("insert speaker %q: %w", r.ID, err)
		}
	}
	for _, r := range rows.utterances {
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO utterances (id, speaker_id, text, meta) VALUES (:id, :speaker_id, :text, :meta)`, r); err != nil {
			return fmt.Errorf("insert utterance %q: %w", r.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	tx = nil
	return nil
}

var gooseMu sync.Mutex

// gooseLogger routes goose progress lines to debug level.
type gooseLogger struct{ *logrus.Entry }

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.Debugf(strings.TrimSpace(format), v...)
}

// runMigrations applies the embedded schema. goose keeps its settings in
// package state, hence the lock.
func runMigrations(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(gooseLogger{log})
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, id string) (*corpus.Snapshot, error) {
	if err := corpus.ValidateID(id); err != nil {
		return nil, err
	}
	path := s.path(id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, corpus.NotFound("load", id)
		}
		return nil, corpus.IOFailure("load", id, err)
	}

	db, err := sqlx.Open("sqlite3", dsn(path, "mode=ro"))
	if err != nil {
		return nil, corpus.IOFailure("load", id, fmt.Errorf("open sqlite: %w", err))
	}
	defer db.Close()

	snap, err := readDB(ctx, db)
	if err != nil {
		return nil, corpus.IOFailure("load", id, err)
	}
	snap.ID = id
	log.WithFields(logrus.Fields{"corpus_id": id, "utterances": len(snap.Utterances)}).Debug("corpus read")
	return snap, nil
}

func readDB(ctx context.Context, db *sqlx.DB) (*corpus.Snapshot, error) {
	var info []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := db.SelectContext(ctx, &info, `SELECT key, value FROM corpus_info`); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotCorpus, err)
	}
	kv := make(map[string]string, len(info))
	for _, r := range info {
		kv[r.Key] = r.Value
	}
	if kv["format"] != formatVersion {
		return nil, fmt.Errorf("%w: format %q", errNotCorpus, kv["format"])
	}

	snap := &corpus.Snapshot{}
	if err := json.Unmarshal([]byte(kv["meta"]), &snap.Meta); err != nil {
		return nil, fmt.Errorf("decode corpus meta: %w", err)
	}

	var speakers []speakerRow
	if err := db.SelectContext(ctx, &speakers, `SELECT id, meta FROM speakers ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("select speakers: %w", err)
	}
	snap.Speakers = make([]corpus.SpeakerRecord, 0, len(speakers))
	for _, r := range speakers {
		rec := corpus.SpeakerRecord{ID: r.ID}
		if err := json.Unmarshal([]byte(r.Meta), &rec.Meta); err != nil {
			return nil, fmt.Errorf("decode speaker %q meta: %w", r.ID, err)
		}
		snap.Speakers = append(snap.Speakers, rec)
	}

	var utts []utteranceRow
	if err := db.SelectContext(ctx, &utts, `SELECT id, speaker_id, text, meta FROM utterances ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("select utterances: %w", err)
	}
	snap.Utterances = make([]corpus.UtteranceRecord, 0, len(utts))
	for _, r := range utts {
		rec := corpus.UtteranceRecord{ID: r.ID, SpeakerID: r.SpeakerID, Text: r.Text}
		if err := json.Unmarshal([]byte(r.Meta), &rec.Meta); err != nil {
			return nil, fmt.Errorf("decode utterance %q meta: %w", r.ID, err)
		}
		snap.Utterances = append(snap.Utterances, rec)
	}
	return snap, nil
}

// Delete removes the corpus directory, including anything else stored in it.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if err := corpus.ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.Dir(id)
	if _, err := os.Stat(filepath.Join(dir, DBFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return corpus.NotFound("delete", id)
		}
		return corpus.IOFailure("delete", id, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return corpus.IOFailure("delete", id, err)
	}
	log.WithFields(logrus.Fields{"corpus_id": id, "path": dir}).Info("corpus deleted")
	return nil
}

// List returns the ids of corpora under the base path, sorted.
func (s *SQLite) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, corpus.IOFailure("list", "", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.base, e.Name(), DBFile)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func init() {
	corpus.Register(corpus.StorageMem, func(string) (corpus.Backend, error) { return shared, nil })
	corpus.Register(corpus.StorageDB, func(base string) (corpus.Backend, error) {
		s, err := NewSQLite(base)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
