package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSuccess_IsIdempotent(t *testing.T) {
	p := NewProgressRecord()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.True(t, p.RecordSuccess("log-triage", 10, "slicing", at))
	assert.False(t, p.RecordSuccess("log-triage", 10, "slicing", at.Add(time.Hour)))

	assert.Equal(t, []string{"log-triage"}, p.CompletedCases)
	assert.Equal(t, 10, p.Points)
	assert.Equal(t, []string{"slicing"}, p.Badges)
	assert.Equal(t, at, p.SolvedAt["log-triage"], "first solve time is kept")
}

func TestRecordSuccess_BadgeGrantedOncePerConcept(t *testing.T) {
	p := NewProgressRecord()
	now := time.Now()

	p.RecordSuccess("a", 10, "loops", now)
	p.RecordSuccess("b", 10, "loops", now)
	p.RecordSuccess("c", 10, "", now)

	assert.Equal(t, 30, p.Points)
	assert.Equal(t, []string{"loops"}, p.Badges)
	assert.Equal(t, []string{"a", "b", "c"}, p.CompletedCases)
}

func TestRecordSuccess_NilSolvedAt(t *testing.T) {
	p := &ProgressRecord{}
	assert.True(t, p.RecordSuccess("a", 5, "x", time.Now()))
	assert.Contains(t, p.SolvedAt, "a")
}

func TestSnapshot(t *testing.T) {
	p := NewProgressRecord()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p.RecordSuccess("a", 10, "slicing", at)
	p.RecordSuccess("b", 10, "loops", at.Add(time.Minute))

	snap := p.Snapshot()
	assert.Equal(t, 2, snap.SolvedCount)
	assert.Equal(t, 20, snap.TotalPoints)
	assert.Equal(t, []string{"slicing", "loops"}, snap.Badges)
	require.Len(t, snap.Completed, 2)
	assert.Equal(t, "a", snap.Completed[0].CaseID)
	require.NotNil(t, snap.Completed[1].SolvedAt)
	assert.Equal(t, at.Add(time.Minute), *snap.Completed[1].SolvedAt)

	snap.Badges[0] = "mutated"
	assert.Equal(t, "slicing", p.Badges[0], "snapshot must not alias the ledger")
}

func TestSolvedSet(t *testing.T) {
	p := NewProgressRecord()
	p.RecordSuccess("a", 1, "", time.Now())

	solved := p.Solved()
	assert.True(t, solved.Contains("a"))
	assert.False(t, solved.Contains("b"))
}

func TestRecordSet_ProgressFor(t *testing.T) {
	rs := NewRecordSet()
	rs.Users["alice"] = &User{Username: "alice", Role: RoleLearner}

	assert.Nil(t, rs.ProgressFor("nobody"))

	p := rs.ProgressFor("alice")
	require.NotNil(t, p)
	assert.Same(t, p, rs.Progress["alice"])
}
