// Package sqlite provides a SQLite-backed machine store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mathieusouflis/turing/internal/storage/sqlitemigrate"
	"github.com/mathieusouflis/turing/pkg/adapters/sqlite/migrations"
	"github.com/mathieusouflis/turing/pkg/domain"
)

// Store implements ports.MachineStore on a single SQLite file.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// pragmas uses the modernc.org/sqlite "_pragma" form; mattn-style keys are ignored by that driver.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?" + pragmas
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save upserts the machine row.
func (s *Store) Save(ctx context.Context, m *domain.Machine) error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("machine id is required")
	}
	def, err := json.Marshal(m.Definition)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO machines (
		   id, name, tape, head, current_state, status, steps, last_halt, definition, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   tape = excluded.tape,
		   head = excluded.head,
		   current_state = excluded.current_state,
		   status = excluded.status,
		   steps = excluded.steps,
		   last_halt = excluded.last_halt,
		   definition = excluded.definition,
		   updated_at = excluded.updated_at`,
		m.ID,
		m.Name,
		m.Tape,
		m.Head,
		m.CurrentState,
		string(m.Status),
		int64(m.Steps),
		string(m.LastHalt),
		string(def),
		toMillis(m.CreatedAt),
		toMillis(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save machine %s: %w", m.ID, err)
	}
	return nil
}

// Load returns one machine by ID.
func (s *Store) Load(ctx context.Context, id string) (*domain.Machine, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, tape, head, current_state, status, steps, last_halt, definition, created_at, updated_at
		   FROM machines WHERE id = ?`, id)

	var (
		m                  domain.Machine
		status, lastHalt   string
		steps              int64
		def                string
		createdAt, updated int64
	)
	err := row.Scan(&m.ID, &m.Name, &m.Tape, &m.Head, &m.CurrentState, &status, &steps, &lastHalt, &def, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMachineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load machine %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(def), &m.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal definition of %s: %w", id, err)
	}
	m.Status = domain.Status(status)
	m.Steps = uint64(steps)
	m.LastHalt = domain.HaltReason(lastHalt)
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updated)
	return &m, nil
}

// Delete removes one machine.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM machines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete machine %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete machine %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrMachineNotFound
	}
	return nil
}

// List returns machine IDs, oldest first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM machines ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan machine id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate machines: %w", err)
	}
	return ids, nil
}
