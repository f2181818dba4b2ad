package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"detective_lab/internal/domain/model"
)

const (
	UsersFile    = "users.json"
	ProgressFile = "progress.json"
)

// On-disk shapes. Both files are objects keyed by username.
type userRecord struct {
	ID           string     `json:"id,omitempty"`
	PasswordHash string     `json:"password_hash"`
	Role         model.Role `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
}

type progressRecord struct {
	CompletedCases []string             `json:"completed_cases"`
	Points         int                  `json:"points"`
	Badges         []string             `json:"badges"`
	SolvedAt       map[string]time.Time `json:"solved_at,omitempty"`
}

// legacyUserRecord is the layout of the original users.json, which named the hash "password".
type legacyUserRecord struct {
	Password string `json:"password"`
}

// JSONStore keeps users and progress in two JSON files under one directory.
// Saves write a temp file and rename it over the old one, so a crash never leaves
// a half-written file behind.
type JSONStore struct {
	dir string
}

func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

func (s *JSONStore) Dir() string {
	return s.dir
}

func (s *JSONStore) Load(ctx context.Context) (*model.RecordSet, error) {
	rs := model.NewRecordSet()

	users := map[string]json.RawMessage{}
	if err := readJSON(filepath.Join(s.dir, UsersFile), &users); err != nil {
		return nil, err
	}
	for name, raw := range users {
		var rec userRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode user %q: %w", name, err)
		}
		if rec.PasswordHash == "" {
			var legacy legacyUserRecord
			if err := json.Unmarshal(raw, &legacy); err == nil {
				rec.PasswordHash = legacy.Password
			}
		}
		if rec.Role == "" {
			rec.Role = model.RoleLearner
		}
		rs.Users[name] = &model.User{
			ID:           rec.ID,
			Username:     name,
			PasswordHash: rec.PasswordHash,
			Role:         rec.Role,
			CreatedAt:    rec.CreatedAt,
		}
	}

	progress := map[string]progressRecord{}
	if err := readJSON(filepath.Join(s.dir, ProgressFile), &progress); err != nil {
		return nil, err
	}
	for name, rec := range progress {
		p := model.NewProgressRecord()
		p.Points = rec.Points
		for _, id := range rec.CompletedCases {
			if !p.HasSolved(id) {
				p.CompletedCases = append(p.CompletedCases, id)
			}
		}
		for _, badge := range rec.Badges {
			if !p.HasBadge(badge) {
				p.Badges = append(p.Badges, badge)
			}
		}
		for id, at := range rec.SolvedAt {
			p.SolvedAt[id] = at
		}
		rs.Progress[name] = p
	}
	return rs, nil
}

func (s *JSONStore) Save(ctx context.Context, rs *model.RecordSet) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	users := make(map[string]userRecord, len(rs.Users))
	for name, u := range rs.Users {
		users[name] = userRecord{ID: u.ID, PasswordHash: u.PasswordHash, Role: u.Role, CreatedAt: u.CreatedAt}
	}
	progress := make(map[string]progressRecord, len(rs.Progress))
	for name, p := range rs.Progress {
		rec := progressRecord{
			CompletedCases: p.CompletedCases,
			Points:         p.Points,
			Badges:         p.Badges,
			SolvedAt:       p.SolvedAt,
		}
		if rec.CompletedCases == nil {
			rec.CompletedCases = []string{}
		}
		if rec.Badges == nil {
			rec.Badges = []string{}
		}
		progress[name] = rec
	}

	if err := writeJSONAtomic(filepath.Join(s.dir, UsersFile), users); err != nil {
		return err
	}
	return writeJSONAtomic(filepath.Join(s.dir, ProgressFile), progress)
}

// readJSON decodes path into v. A missing file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
