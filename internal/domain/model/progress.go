package model

import (
	"slices"
	"time"
)

// SolvedSet is the set of case ids a user has solved.
type SolvedSet map[string]struct{}

func (s SolvedSet) Contains(caseID string) bool {
	_, ok := s[caseID]
	return ok
}

// ProgressRecord is the progression ledger of one user. CompletedCases keeps solve order
// and never holds duplicates; Points never decreases.
type ProgressRecord struct {
	CompletedCases []string             `json:"completed_cases"`
	Points         int                  `json:"points"`
	Badges         []string             `json:"badges"`
	SolvedAt       map[string]time.Time `json:"solved_at,omitempty"`
}

func NewProgressRecord() *ProgressRecord {
	return &ProgressRecord{
		CompletedCases: []string{},
		Badges:         []string{},
		SolvedAt:       map[string]time.Time{},
	}
}

func (p *ProgressRecord) Solved() SolvedSet {
	set := make(SolvedSet, len(p.CompletedCases))
	for _, id := range p.CompletedCases {
		set[id] = struct{}{}
	}
	return set
}

func (p *ProgressRecord) HasSolved(caseID string) bool {
	return slices.Contains(p.CompletedCases, caseID)
}

func (p *ProgressRecord) HasBadge(badge string) bool {
	return slices.Contains(p.Badges, badge)
}

// RecordSuccess marks caseID solved, adds points and grants badge if it is not held yet.
// It reports whether anything changed: a case that is already solved is left untouched,
// so repeated calls never award twice.
func (p *ProgressRecord) RecordSuccess(caseID string, points int, badge string, at time.Time) bool {
	if p.HasSolved(caseID) {
		return false
	}
	p.CompletedCases = append(p.CompletedCases, caseID)
	if points > 0 {
		p.Points += points
	}
	if badge != "" && !p.HasBadge(badge) {
		p.Badges = append(p.Badges, badge)
	}
	if p.SolvedAt == nil {
		p.SolvedAt = map[string]time.Time{}
	}
	p.SolvedAt[caseID] = at.UTC()
	return true
}

type CompletedCase struct {
	CaseID   string     `json:"case_id"`
	SolvedAt *time.Time `json:"solved_at,omitempty"`
}

type ProgressSnapshot struct {
	SolvedCount int             `json:"solved_count"`
	TotalPoints int             `json:"total_points"`
	Badges      []string        `json:"badges"`
	Completed   []CompletedCase `json:"completed"`
}

// Snapshot returns a copy of the ledger that shares no memory with p.
func (p *ProgressRecord) Snapshot() ProgressSnapshot {
	snap := ProgressSnapshot{
		SolvedCount: len(p.CompletedCases),
		TotalPoints: p.Points,
		Badges:      append([]string{}, p.Badges...),
		Completed:   make([]CompletedCase, 0, len(p.CompletedCases)),
	}
	for _, id := range p.CompletedCases {
		entry := CompletedCase{CaseID: id}
		if at, ok := p.SolvedAt[id]; ok {
			entry.SolvedAt = &at
		}
		snap.Completed = append(snap.Completed, entry)
	}
	return snap
}

// RecordSet is everything the persistence store holds, keyed by username.
type RecordSet struct {
	Users    map[string]*User
	Progress map[string]*ProgressRecord
}

func NewRecordSet() *RecordSet {
	return &RecordSet{
		Users:    map[string]*User{},
		Progress: map[string]*ProgressRecord{},
	}
}

// ProgressFor returns the ledger of username, creating an empty one for a known user
// whose progress entry is missing. It returns nil for unknown users.
func (rs *RecordSet) ProgressFor(username string) *ProgressRecord {
	if _, ok := rs.Users[username]; !ok {
		return nil
	}
	p, ok := rs.Progress[username]
	if !ok || p == nil {
		p = NewProgressRecord()
		rs.Progress[username] = p
	}
	return p
}
