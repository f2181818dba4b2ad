package sandbox

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"detective_lab/internal/domain/model"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Stdlib packages a Go submission may import. Everything that touches the
// filesystem, network, processes, environment, time or unsafe memory is absent.
var goAllowedPackages = map[string]bool{
	"fmt":          true,
	"math":         true,
	"regexp":       true,
	"slices":       true,
	"sort":         true,
	"strconv":      true,
	"strings":      true,
	"unicode":      true,
	"unicode/utf8": true,
}

// GoRuntime runs submissions with the traefik/yaegi interpreter. A submission is a
// list of top-level declarations; every var and const it declares is a binding.
type GoRuntime struct {
	symbols   interp.Exports
	maxMemory uint64
}

func NewGoRuntime() *GoRuntime {
	symbols := interp.Exports{}
	for key, syms := range stdlib.Symbols {
		slash := strings.LastIndex(key, "/")
		if slash < 0 {
			continue
		}
		if goAllowedPackages[key[:slash]] {
			symbols[key] = syms
		}
	}
	return &GoRuntime{symbols: symbols}
}

// WithMemoryLimit cancels a submission once the heap grows by more than limit
// bytes while it runs. Zero disables the check.
func (r *GoRuntime) WithMemoryLimit(limit uint64) *GoRuntime {
	r.maxMemory = limit
	return r
}

func (r *GoRuntime) Describe() model.Runtime {
	return model.Runtime{
		Slug:     model.RuntimeGo,
		Name:     "Go (interpreted)",
		Hint:     "Write top-level declarations, e.g. var evidence = log[len(log)-5:]",
		IsActive: true,
	}
}

func (r *GoRuntime) Run(ctx context.Context, code string, seed map[string]any) (exec *Execution, err error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}

	source := code
	if !hasPackageClause(code) {
		source = "package main\n" + code
	}
	fset := token.NewFileSet()
	file, err := parseSubmission(fset, source)
	if err != nil {
		return nil, err
	}
	names := declaredNames(file)
	source, err = withSeed(fset, file, source, seed)
	if err != nil {
		return nil, err
	}

	ctx, guard := guardMemory(ctx, r.maxMemory)
	defer guard.Release()

	out := &limitedBuffer{}
	i := interp.New(interp.Options{Stdout: out, Stderr: out, Env: []string{}})
	if err := i.Use(r.symbols); err != nil {
		return nil, fmt.Errorf("load interpreter symbols: %w", err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			exec, err = nil, executionError("interpreter fault: %v", rec)
		}
	}()

	if _, err := i.EvalWithContext(ctx, source); err != nil {
		return nil, r.classify(ctx, guard, err)
	}
	if guard.Check() {
		return nil, guard.err()
	}

	bindings := map[string]any{}
	for _, name := range append(sortedKeys(seed), names...) {
		if !VisibleName(name) {
			continue
		}
		v, err := i.EvalWithContext(ctx, name)
		if err != nil {
			return nil, r.classify(ctx, guard, err)
		}
		if !v.IsValid() || !v.CanInterface() {
			continue
		}
		if value, ok := Normalize(v.Interface()); ok {
			bindings[name] = value
		}
	}
	return &Execution{Bindings: bindings, Output: out.String()}, nil
}

func (r *GoRuntime) classify(ctx context.Context, guard *memoryGuard, err error) error {
	if guard.Exceeded() {
		return guard.err()
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return executionError("%s", err.Error())
}

func hasPackageClause(code string) bool {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "submission.go", code, parser.PackageClauseOnly)
	return err == nil
}

// parseSubmission parses the submission and rejects a foreign package, disallowed
// imports and go statements. Goroutines are refused because the interpreter can
// neither recover their panics nor stop them when the budget runs out.
func parseSubmission(fset *token.FileSet, source string) (*ast.File, error) {
	file, err := parser.ParseFile(fset, "submission.go", source, parser.SkipObjectResolution)
	if err != nil {
		return nil, executionError("%s", err.Error())
	}
	if file.Name.Name != "main" {
		return nil, executionError("submission must be in package main, got %s", file.Name.Name)
	}
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !goAllowedPackages[path] {
			return nil, executionError("import of %s is not allowed", imp.Path.Value)
		}
	}

	var goStmt *ast.GoStmt
	ast.Inspect(file, func(n ast.Node) bool {
		if stmt, ok := n.(*ast.GoStmt); ok && goStmt == nil {
			goStmt = stmt
		}
		return goStmt == nil
	})
	if goStmt != nil {
		return nil, executionError("%s: go statements are not allowed", fset.Position(goStmt.Pos()))
	}
	return file, nil
}

// declaredNames returns the names of the top-level vars and consts in source order.
func declaredNames(file *ast.File) []string {
	var names []string
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || (gen.Tok != token.VAR && gen.Tok != token.CONST) {
			continue
		}
		for _, spec := range gen.Specs {
			for _, ident := range spec.(*ast.ValueSpec).Names {
				names = append(names, ident.Name)
			}
		}
	}
	return names
}

// withSeed declares each seed as a package-level variable right after the package
// clause and imports of source. The declarations share the line where the imports
// end, so positions in later error messages are unchanged.
func withSeed(fset *token.FileSet, file *ast.File, source string, seed map[string]any) (string, error) {
	decls, err := seedDecls(seed)
	if err != nil || decls == "" {
		return source, err
	}
	end := file.Name.End()
	for _, decl := range file.Decls {
		if gen, ok := decl.(*ast.GenDecl); ok && gen.Tok == token.IMPORT && gen.End() > end {
			end = gen.End()
		}
	}
	offset := fset.Position(end).Offset
	return source[:offset] + decls + source[offset:], nil
}

// seedDecls renders seeds as "; var name = literal" clauses using Go literal syntax.
func seedDecls(seed map[string]any) (string, error) {
	var b strings.Builder
	for _, name := range sortedKeys(seed) {
		if !token.IsIdentifier(name) {
			return "", fmt.Errorf("seed name %q is not a Go identifier", name)
		}
		fmt.Fprintf(&b, "; var %s = %#v", name, seed[name])
	}
	return b.String(), nil
}
