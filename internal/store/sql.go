package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name   string
	driver string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// lookup compares the text form of one JSON field; args are (path, value).
	lookup   string
	jsonPath func(f record.Field) string
	pragmas  []string
}

var (
	SQLite = Dialect{
		Name:     "sqlite",
		driver:   "sqlite",
		lookup:   `CAST(json_extract(fields, ?) AS TEXT) = ?`,
		jsonPath: func(f record.Field) string { return `$."` + string(f) + `"` },
		pragmas:  []string{"PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL"},
	}
	Postgres = Dialect{
		Name:     "pgx",
		driver:   "pgx",
		numbered: true,
		lookup:   `(fields::jsonb ->> ?) = ?`,
		jsonPath: func(f record.Field) string { return string(f) },
	}
)

// DialectByName maps a --driver value to its dialect.
func DialectByName(name string) (Dialect, bool) {
	switch name {
	case "sqlite", "sqlite3":
		return SQLite, true
	case "pgx", "postgres", "postgresql":
		return Postgres, true
	}
	return Dialect{}, false
}

// rebind rewrites ? placeholders for dialects using numbered ones.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	entity TEXT NOT NULL,
	fields TEXT NOT NULL,
	seq INTEGER NOT NULL
)`

const entityIndexDDL = `CREATE INDEX IF NOT EXISTS idx_records_entity ON records(entity, seq)`

// SQL persists records into a single generic table through database/sql.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
	newID   func() string
}

// OpenSQL opens dsn with the dialect's driver and ensures the schema exists.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQL, error) {
	db, err := sql.Open(dialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s %s: %w", dialect.Name, dsn, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	for _, p := range dialect.pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	for _, ddl := range []string{schemaDDL, entityIndexDDL} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &SQL{db: db, dialect: dialect, newID: uuid.NewString}, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) NewUnitOfWork(order []record.EntityType) UnitOfWork {
	return &sqlUnit{queue: newQueue(order), store: s}
}

// Records reads back the committed records of type t in commit order.
func (s *SQL) Records(ctx context.Context, t record.EntityType) ([]*record.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT id, fields FROM records WHERE entity = ? ORDER BY seq`), string(t))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*record.Record
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("parse record json: %w", err)
		}
		r := record.New(t)
		r.ID = id
		for k, v := range fields {
			r.Set(record.Field(k), v)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

type sqlUnit struct {
	*queue
	store *SQL
}

func (u *sqlUnit) Commit(ctx context.Context) error {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	lookup := func(ctx context.Context, target record.Descriptor, externalID any) (string, bool, error) {
		q := s.dialect.rebind(`SELECT id FROM records WHERE entity = ? AND ` + s.dialect.lookup + ` ORDER BY seq LIMIT 1`)
		var id string
		err := tx.QueryRowContext(ctx, q, string(target.Entity), s.dialect.jsonPath(target.Field), fmt.Sprint(externalID)).Scan(&id)
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return id, true, nil
	}

	planned, err := u.plan(ctx, s.newID, lookup)
	if err != nil {
		return err
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM records`).Scan(&seq); err != nil {
		return fmt.Errorf("read sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`INSERT INTO records (id, entity, fields, seq) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range planned {
		payload, err := json.Marshal(r.values)
		if err != nil {
			return fmt.Errorf("encode %s record: %w", r.rec.Type, err)
		}
		seq++
		if _, err := stmt.ExecContext(ctx, r.id, string(r.rec.Type), string(payload), seq); err != nil {
			return fmt.Errorf("insert %s: %w", r.rec.Type, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	apply(planned)
	return nil
}

var _ Engine = (*SQL)(nil)
