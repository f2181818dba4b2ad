package model

import (
	"math"
)

type DatasetKind string

const (
	DatasetSequence DatasetKind = "sequence"
	DatasetMapping  DatasetKind = "mapping"
	DatasetTable    DatasetKind = "table"
)

// Dataset is the reference material of a case. Value is bound under Name in the
// submission namespace and shown verbatim to the learner; nothing inspects its shape.
type Dataset struct {
	Name  string      `json:"name"`
	Kind  DatasetKind `json:"kind"`
	Value any         `json:"value"`
}

type ParamType string

const (
	ParamList    ParamType = "list"
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamMapping ParamType = "mapping"
	ParamBool    ParamType = "bool"
)

type Param struct {
	Name string    `json:"name"`
	Type ParamType `json:"type"`
}

// Predicate decides whether the bindings a submission produced solve a case.
// Params is the declared input schema; Check only ever sees those names.
type Predicate struct {
	Params []Param         `json:"params"`
	Check  func(Args) bool `json:"-"`
}

func (p Predicate) Names() []string {
	names := make([]string, 0, len(p.Params))
	for _, param := range p.Params {
		names = append(names, param.Name)
	}
	return names
}

type Case struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Concept      string    `json:"concept"`
	Prerequisite string    `json:"prerequisite,omitempty"`
	Dataset      Dataset   `json:"dataset"`
	Task         string    `json:"task"`
	Reward       int       `json:"reward,omitempty"` // 0 means the configured default
	Predicate    Predicate `json:"predicate"`
}

// CaseOverview is a case as one learner sees it in the catalog listing.
type CaseOverview struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Concept      string `json:"concept"`
	Prerequisite string `json:"prerequisite,omitempty"`
	Locked       bool   `json:"locked"`
	Solved       bool   `json:"solved"`
}

type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CaseGraph holds solved cases and the prerequisite links among them.
type CaseGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Args are the bindings handed to a predicate. Values are normalized by the sandbox:
// strings, bool, int, float64, []any and map[string]any.
type Args map[string]any

func (a Args) String(name string) (string, bool) {
	s, ok := a[name].(string)
	return s, ok
}

func (a Args) Bool(name string) (bool, bool) {
	b, ok := a[name].(bool)
	return b, ok
}

// Int accepts whole float values as well, since some runtimes only have one number type.
func (a Args) Int(name string) (int, bool) {
	switch v := a[name].(type) {
	case int:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

func (a Args) Float(name string) (float64, bool) {
	switch v := a[name].(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Strings returns a list binding whose every element is a string.
func (a Args) Strings(name string) ([]string, bool) {
	switch v := a[name].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func (a Args) Map(name string) (map[string]any, bool) {
	m, ok := a[name].(map[string]any)
	return m, ok
}
