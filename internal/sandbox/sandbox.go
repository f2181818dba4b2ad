// Package sandbox runs untrusted submissions inside embedded interpreters.
//
// A submission runs in a fresh namespace that holds only the bindings it is seeded
// with. Interpreters are configured without filesystem, network, process or
// environment access, and every run is bounded by the context deadline. What comes
// back is the set of top-level names the submission left behind, converted to plain
// Go values (string, bool, int, float64, []any, map[string]any).
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"detective_lab/internal/common"
	"detective_lab/internal/domain/model"
)

var (
	// ErrExecution wraps syntax and runtime faults raised by submitted code.
	ErrExecution = errors.New("execution error")
	// ErrTimeout is returned when a run exhausts its time or step budget.
	ErrTimeout = errors.New("execution budget exceeded")
)

const (
	// MaxOutputBytes caps what a submission may print.
	MaxOutputBytes = 16 << 10
	// maxValueDepth bounds conversion of nested values.
	maxValueDepth = 16
)

// Execution is what a finished run left behind.
type Execution struct {
	Bindings map[string]any
	Output   string
}

// Runtime executes code in an isolated namespace seeded with seed.
type Runtime interface {
	Describe() model.Runtime
	Run(ctx context.Context, code string, seed map[string]any) (*Execution, error)
}

// Registry holds the runtimes submissions can select by slug.
type Registry struct {
	runtimes map[string]Runtime
	order    []string
}

func NewRegistry(runtimes ...Runtime) *Registry {
	r := &Registry{runtimes: make(map[string]Runtime, len(runtimes))}
	for _, rt := range runtimes {
		slug := rt.Describe().Slug
		if _, dup := r.runtimes[slug]; !dup {
			r.order = append(r.order, slug)
		}
		r.runtimes[slug] = rt
	}
	return r
}

// Get returns the runtime for slug; an empty slug selects the first registered runtime.
func (r *Registry) Get(slug string) (Runtime, error) {
	if slug == "" && len(r.order) > 0 {
		slug = r.order[0]
	}
	rt, ok := r.runtimes[slug]
	if !ok {
		return nil, common.Errorf("unknown runtime %q: %w", slug, common.ErrBadRequest)
	}
	return rt, nil
}

func (r *Registry) List() []model.Runtime {
	out := make([]model.Runtime, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.runtimes[slug].Describe())
	}
	return out
}

// VisibleName reports whether a binding is returned to the caller. Names starting
// with an underscore are internal to the submission.
func VisibleName(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}

func executionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExecution, fmt.Sprintf(format, args...))
}

// sortedKeys gives seeds a deterministic evaluation order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize converts an arbitrary Go value into the plain shapes predicates expect.
// Values that have no such shape (functions, channels, pointers to those) yield ok=false.
func Normalize(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	return normalizeValue(reflect.ValueOf(v), 0)
}

func normalizeValue(v reflect.Value, depth int) (any, bool) {
	if depth > maxValueDepth {
		return nil, false
	}
	switch v.Kind() {
	case reflect.Invalid:
		return nil, true
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil, true
		}
		return normalizeValue(v.Elem(), depth+1)
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return normalizeNumber(v.Float()), true
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return []any{}, true
		}
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, ok := normalizeValue(v.Index(i), depth+1)
			if !ok {
				return nil, false
			}
			out = append(out, item)
		}
		return out, true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			item, ok := normalizeValue(iter.Value(), depth+1)
			if !ok {
				return nil, false
			}
			out[iter.Key().String()] = item
		}
		return out, true
	default:
		return nil, false
	}
}

// normalizeNumber keeps whole numbers as int so predicates can compare counts.
func normalizeNumber(f float64) any {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return int(f)
	}
	return f
}

// limitedBuffer keeps the first MaxOutputBytes written to it and drops the rest.
type limitedBuffer struct {
	buf       strings.Builder
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := MaxOutputBytes - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
