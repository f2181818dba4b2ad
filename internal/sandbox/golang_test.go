package sandbox

import (
	"context"
	"errors"
	"go/token"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func runGo(t *testing.T, code string, seed map[string]any) (*Execution, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return NewGoRuntime().Run(ctx, code, seed)
}

func TestGoRuntime_CollectsDeclarations(t *testing.T) {
	exec, err := runGo(t, `
import "strings"

var evidence = log[len(log)-5:]

func countPrefix(items []string, prefix string) int {
	n := 0
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			n++
		}
	}
	return n
}

var hits = countPrefix(log, "e")
const label = "night shift"
var _hidden = 1
`, map[string]any{"log": sampleLog})
	require.NoError(t, err)

	assert.Equal(t, []any{"b 00:30", "c 01:05", "d 01:06", "e 01:59", "f 02:14"}, exec.Bindings["evidence"])
	assert.Equal(t, 1, exec.Bindings["hits"])
	assert.Equal(t, "night shift", exec.Bindings["label"])
	assert.Contains(t, exec.Bindings, "log")
	assert.NotContains(t, exec.Bindings, "_hidden")
	assert.NotContains(t, exec.Bindings, "countPrefix")
}

func TestGoRuntime_PackageClauseIsOptional(t *testing.T) {
	exec, err := runGo(t, "package main\n\nvar culprit = aliases[\"ghost\"]\n", map[string]any{
		"aliases": map[string]string{"ghost": "Victor Lang"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Victor Lang", exec.Bindings["culprit"])
}

func TestGoRuntime_TableSeed(t *testing.T) {
	exec, err := runGo(t, `var header = events[0][1]`, map[string]any{
		"events": [][]string{{"time", "actor"}, {"01:00", "root"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "actor", exec.Bindings["header"])
}

func TestGoRuntime_SyntaxError(t *testing.T) {
	_, err := runGo(t, `var evidence = = 1`, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecution))
}

func TestGoRuntime_RejectsTopLevelStatements(t *testing.T) {
	_, err := runGo(t, `evidence := 1`, nil)
	assert.True(t, errors.Is(err, ErrExecution))
}

func TestGoRuntime_BlockedImports(t *testing.T) {
	for _, pkg := range []string{"os", "os/exec", "net/http", "io/ioutil", "unsafe", "syscall", "time"} {
		t.Run(pkg, func(t *testing.T) {
			_, err := runGo(t, "import \""+pkg+"\"\n\nvar x = 1\n", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExecution))
			assert.Contains(t, err.Error(), "not allowed")
		})
	}
}

func TestGoRuntime_RuntimePanic(t *testing.T) {
	_, err := runGo(t, `
var idx = 3
var items = []int{1}
var boom = items[idx]
`, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecution), "got %v", err)
}

func TestGoRuntime_TimeBudget(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewGoRuntime().Run(ctx, `
func spin() int {
	n := 0
	for {
		n++
	}
}

var x = spin()
`, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestWithSeed(t *testing.T) {
	seed := map[string]any{"log": []string{"a"}, "aliases": map[string]string{"k": "v"}}
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "after imports",
			source: "package main\n\nimport \"strings\"\n\nvar x = strings.ToUpper(log[0])\n",
			want:   "package main\n\nimport \"strings\"; var aliases = map[string]string{\"k\":\"v\"}; var log = []string{\"a\"}\n\nvar x = strings.ToUpper(log[0])\n",
		},
		{
			name:   "after grouped imports",
			source: "package main\nimport (\n\t\"fmt\"\n\t\"sort\"\n)\nvar x = fmt.Sprint(sort.IsSorted(nil))\n",
			want:   "package main\nimport (\n\t\"fmt\"\n\t\"sort\"\n); var aliases = map[string]string{\"k\":\"v\"}; var log = []string{\"a\"}\nvar x = fmt.Sprint(sort.IsSorted(nil))\n",
		},
		{
			name:   "after package clause",
			source: "package main\nvar x = 1\n",
			want:   "package main; var aliases = map[string]string{\"k\":\"v\"}; var log = []string{\"a\"}\nvar x = 1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fset := token.NewFileSet()
			file, err := parseSubmission(fset, tt.source)
			require.NoError(t, err)

			got, err := withSeed(fset, file, tt.source, seed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	fset := token.NewFileSet()
	file, err := parseSubmission(fset, "package main\n")
	require.NoError(t, err)
	_, err = withSeed(fset, file, "package main\n", map[string]any{"not valid": 1})
	assert.Error(t, err)
}

func TestGoRuntime_SeedReadInFunctions(t *testing.T) {
	exec, err := runGo(t, `
func origin(start string) string {
	for {
		prev, ok := custody[start]
		if !ok {
			return start
		}
		start = prev
	}
}

var result = origin("usb-7")
`, map[string]any{"custody": map[string]string{"usb-7": "locker-3", "locker-3": "Archive Room"}})
	require.NoError(t, err)
	assert.Equal(t, "Archive Room", exec.Bindings["result"])
}

func TestGoRuntime_SeedRedeclared(t *testing.T) {
	_, err := runGo(t, `var log = []string{"mine"}`, map[string]any{"log": sampleLog})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecution), "got %v", err)
}

func TestGoRuntime_RejectsGoStatements(t *testing.T) {
	tests := map[string]string{
		"panicking goroutine": `var _ = func() bool { go func() { panic("boom") }(); return true }()`,
		"spinning goroutine": `
func spin() {
	for {
	}
}

func start() int {
	go spin()
	return 1
}

var started = start()
`,
	}
	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

			_, err := runGo(t, code, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExecution), "got %v", err)
			assert.Contains(t, err.Error(), "go statements are not allowed")
		})
	}
}

func TestGoRuntime_MemoryBudget(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := NewGoRuntime().WithMemoryLimit(16<<20).Run(ctx, `
func grow() string {
	s := "x"
	for i := 0; i < 28; i++ {
		s += s
	}
	return s
}

var _blob = grow()
`, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecution), "got %v", err)
	assert.Contains(t, err.Error(), "memory budget")
}
