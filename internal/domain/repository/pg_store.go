package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"detective_lab/internal/common"
	"detective_lab/internal/domain/model"
)

// Schema is applied by EnsureSchema. List columns are JSONB so the same record
// shapes as the JSON files round-trip without array type mapping.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	id            TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS progress (
	username        TEXT PRIMARY KEY REFERENCES users(username) ON DELETE CASCADE,
	completed_cases JSONB NOT NULL DEFAULT '[]',
	points          INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
	badges          JSONB NOT NULL DEFAULT '[]',
	solved_at       JSONB NOT NULL DEFAULT '{}'
);
`

type pgStore struct {
	db *sql.DB
}

// NewPgStore stores the record set in Postgres through the pgx database/sql driver.
func NewPgStore(db *sql.DB) Store {
	return &pgStore{db: db}
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("pgStore.EnsureSchema: %w", err)
	}
	return nil
}

func (r *pgStore) Load(ctx context.Context) (*model.RecordSet, error) {
	rs := model.NewRecordSet()

	rows, err := r.db.QueryContext(ctx, `SELECT username, id, password_hash, role, created_at FROM users`)
	if err != nil {
		return nil, fmt.Errorf("pgStore.Load users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		user := &model.User{}
		if err := rows.Scan(&user.Username, &user.ID, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgStore.Load users scan: %w", err)
		}
		rs.Users[user.Username] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgStore.Load users: %w", err)
	}

	progRows, err := r.db.QueryContext(ctx, `SELECT username, completed_cases, points, badges, solved_at FROM progress`)
	if err != nil {
		return nil, fmt.Errorf("pgStore.Load progress: %w", err)
	}
	defer progRows.Close()
	for progRows.Next() {
		var (
			username                    string
			completed, badges, solvedAt []byte
		)
		p := model.NewProgressRecord()
		if err := progRows.Scan(&username, &completed, &p.Points, &badges, &solvedAt); err != nil {
			return nil, fmt.Errorf("pgStore.Load progress scan: %w", err)
		}
		if err := json.Unmarshal(completed, &p.CompletedCases); err != nil {
			return nil, fmt.Errorf("pgStore.Load completed_cases of %q: %w", username, err)
		}
		if err := json.Unmarshal(badges, &p.Badges); err != nil {
			return nil, fmt.Errorf("pgStore.Load badges of %q: %w", username, err)
		}
		if err := json.Unmarshal(solvedAt, &p.SolvedAt); err != nil {
			return nil, fmt.Errorf("pgStore.Load solved_at of %q: %w", username, err)
		}
		rs.Progress[username] = p
	}
	if err := progRows.Err(); err != nil {
		return nil, fmt.Errorf("pgStore.Load progress: %w", err)
	}
	return rs, nil
}

// Save replaces both tables inside one transaction.
func (r *pgStore) Save(ctx context.Context, rs *model.RecordSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("pgStore.Save begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM progress`); err != nil {
		return fmt.Errorf("pgStore.Save clear progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("pgStore.Save clear users: %w", err)
	}

	for _, user := range rs.Users {
		createdAt := user.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, id, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
			user.Username, user.ID, user.PasswordHash, user.Role, createdAt)
		if err != nil {
			if common.IsUniqueViolation(err) {
				return fmt.Errorf("user %q already exists: %w", user.Username, common.ErrConflict)
			}
			return fmt.Errorf("pgStore.Save user %q: %w", user.Username, err)
		}
	}

	for username, p := range rs.Progress {
		if _, ok := rs.Users[username]; !ok {
			continue
		}
		completed, err := json.Marshal(nonNil(p.CompletedCases))
		if err != nil {
			return fmt.Errorf("pgStore.Save encode completed_cases: %w", err)
		}
		badges, err := json.Marshal(nonNil(p.Badges))
		if err != nil {
			return fmt.Errorf("pgStore.Save encode badges: %w", err)
		}
		solvedAt := p.SolvedAt
		if solvedAt == nil {
			solvedAt = map[string]time.Time{}
		}
		solved, err := json.Marshal(solvedAt)
		if err != nil {
			return fmt.Errorf("pgStore.Save encode solved_at: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO progress (username, completed_cases, points, badges, solved_at) VALUES ($1, $2, $3, $4, $5)`,
			username, string(completed), p.Points, string(badges), string(solved))
		if err != nil {
			return fmt.Errorf("pgStore.Save progress %q: %w", username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("pgStore.Save commit: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
