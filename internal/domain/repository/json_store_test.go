package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"detective_lab/internal/domain/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecordSet() *model.RecordSet {
	rs := model.NewRecordSet()
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	rs.Users["alice"] = &model.User{ID: "u-1", Username: "alice", PasswordHash: "$2a$10$hash", Role: model.RoleLearner, CreatedAt: created}
	rs.Users["bob"] = &model.User{ID: "u-2", Username: "bob", PasswordHash: "$2a$10$other", Role: model.RoleInstructor, CreatedAt: created}

	alice := model.NewProgressRecord()
	alice.RecordSuccess("log-triage", 10, "slicing", created.Add(time.Hour))
	alice.RecordSuccess("suspicious-connections", 10, "loops", created.Add(2*time.Hour))
	rs.Progress["alice"] = alice
	rs.Progress["bob"] = model.NewProgressRecord()
	return rs
}

func TestJSONStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewJSONStore(t.TempDir())
	want := sampleRecordSet()

	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record set mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, store.Save(ctx, got))
	again, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("save(load()) changed the record set (-want +got):\n%s", diff)
	}
}

func TestJSONStore_MissingFilesLoadEmpty(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "not-created-yet"))
	rs, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rs.Users)
	assert.Empty(t, rs.Progress)
}

func TestJSONStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, UsersFile), []byte("{not json"), 0o644))

	_, err := NewJSONStore(dir).Load(context.Background())
	assert.Error(t, err)
}

func TestJSONStore_ReadsLegacyLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, UsersFile),
		[]byte(`{"carol": {"password": "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", "role": "learner"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProgressFile),
		[]byte(`{"carol": {"completed_cases": ["Case 1", "Case 1"], "points": 20, "badges": ["Completed Case 1", "Completed Case 1"]}}`), 0o644))

	rs, err := NewJSONStore(dir).Load(context.Background())
	require.NoError(t, err)

	require.Contains(t, rs.Users, "carol")
	assert.Equal(t, "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", rs.Users["carol"].PasswordHash)
	assert.Equal(t, "carol", rs.Users["carol"].Username)

	p := rs.Progress["carol"]
	assert.Equal(t, []string{"Case 1"}, p.CompletedCases, "duplicate solves from the old format collapse")
	assert.Equal(t, []string{"Completed Case 1"}, p.Badges)
	assert.Equal(t, 20, p.Points)
}

func TestJSONStore_WritesSpecLayout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewJSONStore(dir).Save(context.Background(), sampleRecordSet()))

	users, err := os.ReadFile(filepath.Join(dir, UsersFile))
	require.NoError(t, err)
	assert.Contains(t, string(users), `"password_hash": "$2a$10$hash"`)
	assert.Contains(t, string(users), `"role": "instructor"`)

	progress, err := os.ReadFile(filepath.Join(dir, ProgressFile))
	require.NoError(t, err)
	assert.Contains(t, string(progress), `"completed_cases": [`)
	assert.Contains(t, string(progress), `"points": 20`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files are left behind")
}
