package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"

	_ "github.com/mattn/go-sqlite3"
)

// Each partition is a table with the same layout. The JSON document is the
// source of truth; ts is kept for ordering in ad hoc queries.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	id  TEXT PRIMARY KEY,
	ts  INTEGER NOT NULL DEFAULT 0,
	doc TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_reports (
	id  TEXT PRIMARY KEY,
	ts  INTEGER NOT NULL DEFAULT 0,
	doc TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS goals (
	id  TEXT PRIMARY KEY,
	doc TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_ts ON entries(ts);
CREATE INDEX IF NOT EXISTS idx_daily_reports_ts ON daily_reports(ts);
`

// SQLite is the local durable store. Writes are committed before the call returns.
type SQLite struct {
	conn *sql.DB
}

var _ Repository = (*SQLite)(nil)

// NewSQLite opens (or creates) the database file at path and applies the schema
func NewSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, goerr.Wrap(err, "failed to ping sqlite database", goerr.V("path", path))
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, goerr.Wrap(err, "failed to apply sqlite schema", goerr.V("path", path))
	}

	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) ListEntries(ctx context.Context) ([]*model.MemoryEntry, error) {
	entries := []*model.MemoryEntry{}
	for _, p := range model.EntryPartitions {
		rows, err := s.conn.QueryContext(ctx, "SELECT doc FROM "+string(p))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query entries", goerr.V("partition", p))
		}

		for rows.Next() {
			var doc string
			if err := rows.Scan(&doc); err != nil {
				rows.Close()
				return nil, goerr.Wrap(err, "failed to scan entry", goerr.V("partition", p))
			}
			var entry model.MemoryEntry
			if err := json.Unmarshal([]byte(doc), &entry); err != nil {
				rows.Close()
				return nil, goerr.Wrap(err, "failed to decode entry", goerr.V("partition", p))
			}
			entries = append(entries, &entry)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, goerr.Wrap(err, "failed to iterate entries", goerr.V("partition", p))
		}
		rows.Close()
	}

	return entries, nil
}

func (s *SQLite) GetEntry(ctx context.Context, id model.EntryID) (*model.MemoryEntry, error) {
	for _, p := range model.EntryPartitions {
		var doc string
		err := s.conn.QueryRowContext(ctx, "SELECT doc FROM "+string(p)+" WHERE id = ?", string(id)).Scan(&doc)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get entry", goerr.V("id", id), goerr.V("partition", p))
		}

		var entry model.MemoryEntry
		if err := json.Unmarshal([]byte(doc), &entry); err != nil {
			return nil, goerr.Wrap(err, "failed to decode entry", goerr.V("id", id))
		}
		return &entry, nil
	}

	return nil, goerr.Wrap(model.ErrEntryNotFound, "entry not found in sqlite", goerr.V("id", id))
}

func (s *SQLite) PutEntry(ctx context.Context, entry *model.MemoryEntry) error {
	doc, err := json.Marshal(entry.Copy())
	if err != nil {
		return goerr.Wrap(err, "failed to encode entry", goerr.V("id", entry.ID))
	}

	p := entry.Type.Partition()
	if _, err := s.conn.ExecContext(ctx,
		`INSERT INTO `+string(p)+` (id, ts, doc) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ts = excluded.ts, doc = excluded.doc`,
		string(entry.ID), entry.Timestamp, string(doc),
	); err != nil {
		return goerr.Wrap(err, "failed to put entry", goerr.V("id", entry.ID), goerr.V("partition", p))
	}
	return nil
}

func (s *SQLite) DeleteEntry(ctx context.Context, id model.EntryID) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, p := range model.EntryPartitions {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+string(p)+" WHERE id = ?", string(id)); err != nil {
			return goerr.Wrap(err, "failed to delete entry", goerr.V("id", id), goerr.V("partition", p))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit entry deletion", goerr.V("id", id))
	}
	return nil
}

func (s *SQLite) ListGoals(ctx context.Context) ([]*model.Goal, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT doc FROM goals")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query goals")
	}
	defer rows.Close()

	goals := []*model.Goal{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to scan goal")
		}
		var goal model.Goal
		if err := json.Unmarshal([]byte(doc), &goal); err != nil {
			return nil, goerr.Wrap(err, "failed to decode goal")
		}
		goals = append(goals, &goal)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate goals")
	}

	return goals, nil
}

func (s *SQLite) GetGoal(ctx context.Context, id model.GoalID) (*model.Goal, error) {
	var doc string
	err := s.conn.QueryRowContext(ctx, "SELECT doc FROM goals WHERE id = ?", string(id)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrGoalNotFound, "goal not found in sqlite", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get goal", goerr.V("id", id))
	}

	var goal model.Goal
	if err := json.Unmarshal([]byte(doc), &goal); err != nil {
		return nil, goerr.Wrap(err, "failed to decode goal", goerr.V("id", id))
	}
	return &goal, nil
}

func (s *SQLite) PutGoal(ctx context.Context, goal *model.Goal) error {
	doc, err := json.Marshal(goal)
	if err != nil {
		return goerr.Wrap(err, "failed to encode goal", goerr.V("id", goal.ID))
	}

	if _, err := s.conn.ExecContext(ctx,
		`INSERT INTO goals (id, doc) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`,
		string(goal.ID), string(doc),
	); err != nil {
		return goerr.Wrap(err, "failed to put goal", goerr.V("id", goal.ID))
	}
	return nil
}

func (s *SQLite) DeleteGoal(ctx context.Context, id model.GoalID) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM goals WHERE id = ?", string(id)); err != nil {
		return goerr.Wrap(err, "failed to delete goal", goerr.V("id", id))
	}
	return nil
}

func (s *SQLite) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT count(*) FROM entries").Scan(&count); err != nil {
		return false, goerr.Wrap(err, "failed to count entries")
	}
	return count == 0, nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, p := range []model.Partition{model.PartitionEntries, model.PartitionDailyReports, model.PartitionGoals} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+string(p)); err != nil {
			return goerr.Wrap(err, "failed to clear table", goerr.V("table", p))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit clear")
	}
	return nil
}
