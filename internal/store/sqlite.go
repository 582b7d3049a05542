package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"luckyenvelope/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS participants (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	random_code TEXT NOT NULL UNIQUE,
	status      TEXT NOT NULL DEFAULT 'INVITED',
	prize       TEXT,
	prize_id    TEXT
);
CREATE INDEX IF NOT EXISTS participants_prize_id ON participants(prize_id);
`

// columns maps record store field names onto SQLite columns.
var columns = map[string]string{
	FieldID:        "id",
	FieldCode:      "random_code",
	FieldStatus:    "status",
	FieldPrizeName: "prize",
	FieldPrizeID:   "prize_id",
}

// SQLite is a Client backed by a local database file, for development and
// single-box deployments.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Invite inserts an INVITED record for code unless it already exists.
func (s *SQLite) Invite(ctx context.Context, code string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (random_code, status) VALUES (?, ?) ON CONFLICT(random_code) DO NOTHING`,
		code, string(models.StatusInvited))
	if err != nil {
		return fmt.Errorf("invite %s: %w", code, err)
	}
	return nil
}

// List implements Client.
func (s *SQLite) List(ctx context.Context, q Query) (Page, error) {
	where, args, err := whereSQL(q.Where)
	if err != nil {
		return Page{}, err
	}

	var page Page
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM participants"+where, args...).Scan(&page.Total); err != nil {
		return Page{}, fmt.Errorf("count participants: %w", err)
	}

	query := "SELECT id, random_code, status, prize, prize_id FROM participants" + where + " ORDER BY id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p         models.Participant
			status    string
			prizeName sql.NullString
			prizeID   sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Code, &status, &prizeName, &prizeID); err != nil {
			return Page{}, fmt.Errorf("scan participant: %w", err)
		}
		p.Status = models.Status(status)
		if prizeName.Valid {
			p.PrizeName = &prizeName.String
		}
		if prizeID.Valid {
			p.PrizeID = &prizeID.String
		}
		page.Records = append(page.Records, p)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate participants: %w", err)
	}
	return page, nil
}

// Patch implements Client.
func (s *SQLite) Patch(ctx context.Context, id int64, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for k, v := range fields {
		col, ok := columns[k]
		if !ok || k == FieldID {
			return fmt.Errorf("store: unknown field %q", k)
		}
		val, err := stringField(k, v)
		if err != nil {
			return err
		}
		sets = append(sets, col+" = ?")
		if val == nil {
			args = append(args, nil)
		} else {
			args = append(args, *val)
		}
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE participants SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("patch participant %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("patch participant %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func whereSQL(filters []Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		col, ok := columns[f.Field]
		if !ok {
			return "", nil, errors.New("store: unknown filter field " + f.Field)
		}
		conds = append(conds, col+" = ?")
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
