package devcms

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/eringen/pubfront/prismic"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Setting keys.
const (
	settingMasterRef  = "master_ref"
	settingPreviewRef = "preview_ref"
)

// storeTime keeps stored timestamps fixed-width so they sort as text.
const storeTime = "2006-01-02T15:04:05.000000000Z"

// Record is a stored document.
type Record struct {
	ID             string
	UID            string
	Type           string
	Lang           string
	Draft          bool
	FirstPublished time.Time
	LastPublished  time.Time
	Data           json.RawMessage
	Source         string // file the document was imported from
}

// Document converts r to its API representation.
func (r Record) Document() prismic.Document {
	return prismic.Document{
		ID:                   r.ID,
		UID:                  r.UID,
		Type:                 r.Type,
		Lang:                 r.Lang,
		Tags:                 []string{},
		FirstPublicationDate: prismic.Time{Time: r.FirstPublished},
		LastPublicationDate:  prismic.Time{Time: r.LastPublished},
		Data:                 r.Data,
	}
}

// Filter selects documents for Search. Zero fields match everything.
type Filter struct {
	Type   string
	ID     string
	UID    string
	Drafts bool // include drafts
	Order  []Order
	Limit  int
	Offset int
}

// Order is one sort key of a search.
type Order struct {
	Field string // "first_publication_date" or "last_publication_date"
	Desc  bool
}

var orderColumns = map[string]string{
	"first_publication_date": "first_publication_date",
	"last_publication_date":  "last_publication_date",
	"uid":                    "uid",
	"id":                     "id",
}

// Store wraps the SQLite database holding documents and settings.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path and runs migrations.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Replace swaps the whole document set for recs and publishes them under
// masterRef in a single transaction.
func (s *Store) Replace(ctx context.Context, recs []Record, masterRef string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return err
	}
	for _, r := range recs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents
			(id, uid, type, lang, draft, first_publication_date, last_publication_date, data, source)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.UID, r.Type, r.Lang, boolInt(r.Draft),
			r.FirstPublished.UTC().Format(storeTime), r.LastPublished.UTC().Format(storeTime),
			string(r.Data), r.Source,
		); err != nil {
			return fmt.Errorf("insert %s %q: %w", r.Type, r.UID, err)
		}
	}
	if err := setSetting(ctx, tx, settingMasterRef, masterRef); err != nil {
		return err
	}
	return tx.Commit()
}

// Search returns the records matching f and the total number of matches
// before Limit and Offset are applied.
func (s *Store) Search(ctx context.Context, f Filter) ([]Record, int, error) {
	var where []string
	var args []any
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.ID != "" {
		where = append(where, "id = ?")
		args = append(args, f.ID)
	}
	if f.UID != "" {
		where = append(where, "uid = ?")
		args = append(args, f.UID)
	}
	if !f.Drafts {
		where = append(where, "draft = 0")
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, err := orderBy(f.Order)
	if err != nil {
		return nil, 0, err
	}
	q := `SELECT id, uid, type, lang, draft, first_publication_date, last_publication_date, data, source
		FROM documents` + cond + order
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		var draft int
		var first, last, data string
		if err := rows.Scan(&r.ID, &r.UID, &r.Type, &r.Lang, &draft, &first, &last, &data, &r.Source); err != nil {
			return nil, 0, err
		}
		r.Draft = draft == 1
		if r.FirstPublished, err = time.Parse(storeTime, first); err != nil {
			return nil, 0, err
		}
		if r.LastPublished, err = time.Parse(storeTime, last); err != nil {
			return nil, 0, err
		}
		r.Data = json.RawMessage(data)
		recs = append(recs, r)
	}
	return recs, total, rows.Err()
}

func orderBy(orders []Order) (string, error) {
	if len(orders) == 0 {
		return " ORDER BY first_publication_date DESC, id", nil
	}
	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		col, ok := orderColumns[o.Field]
		if !ok {
			return "", fmt.Errorf("%w: ordering %q", ErrUnsupported, o.Field)
		}
		if o.Desc {
			col += " DESC"
		}
		parts = append(parts, col)
	}
	parts = append(parts, "id")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// Setting returns the value stored under key, or "" when unset.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// SetSetting stores value under key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return setSetting(ctx, s.db, key, value)
}

// Refs returns the master and preview refs, creating them on first use.
func (s *Store) Refs(ctx context.Context) (master, preview string, err error) {
	if master, err = s.ensureSetting(ctx, settingMasterRef); err != nil {
		return "", "", err
	}
	if preview, err = s.ensureSetting(ctx, settingPreviewRef); err != nil {
		return "", "", err
	}
	return master, preview, nil
}

func (s *Store) ensureSetting(ctx context.Context, key string) (string, error) {
	v, err := s.Setting(ctx, key)
	if err != nil || v != "" {
		return v, err
	}
	v = uuid.NewString()
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`, key, v)
	if err != nil {
		return "", err
	}
	return s.Setting(ctx, key)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setSetting(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
