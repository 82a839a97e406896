// Package cellparse is the static analysis layer over submitted cell
// source. A cell is Go source in one of two shapes: a declarations-only
// fragment (imports, var/const/type/func decls) or a statement sequence with
// an optional leading import block. Analyze parses the cell once and exposes
// everything the validator, the tracker's conflict pass, and the executor
// need: import paths, assigned names, the trailing-expression flag, bare
// callees, and standalone widget-constructor calls.
package cellparse

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"
)

// Analysis is the parse result for one cell.
type Analysis struct {
	// Imports is the leading import block ("" when the cell has none).
	Imports string
	// Body is the cell source after the import block.
	Body string

	// ImportPaths are the full import paths, in source order.
	ImportPaths []string
	// ImportRoots are the first path segments, deduplicated, source order.
	ImportRoots []string
	// AliasNames are explicit import aliases (excluding `.` and `_`).
	AliasNames []string
	// ImportSpecs are the import specs as source text, alias included, one
	// per import in source order. The executor evaluates each spec it has
	// not already evaluated in the session scope.
	ImportSpecs []string

	// AssignedNames are identifiers introduced or re-bound at the top level
	// of the cell: `:=` and `=` targets, var/const/type/func declaration
	// names. The blank identifier is omitted.
	AssignedNames []string

	// TrailingExpr reports whether the last top-level statement is an
	// expression statement, i.e. the cell has an expression result.
	TrailingExpr bool

	// WidgetCalls holds the source text of each standalone `ui.…(…)` call
	// statement that is not the trailing expression. The executor re-evaluates
	// them to surface widgets user code constructed without binding.
	WidgetCalls []string

	// bareCallees records every call whose callee is a bare identifier,
	// at any depth. The validator checks it for eval/exec.
	bareCallees map[string]bool

	// Empty reports a cell with no imports and no statements (whitespace and
	// comments only).
	Empty bool
}

const bodyWrapHeader = "package main\nfunc _cell() {\n"

// Analyze parses source and returns its analysis. The returned error is the
// user-facing syntax error with line numbers relative to the cell.
func Analyze(source string) (*Analysis, error) {
	a := &Analysis{Body: source, bareCallees: make(map[string]bool)}

	if strings.TrimSpace(source) == "" {
		a.Empty = true
		return a, nil
	}

	// Declarations-only cells parse directly as a file.
	fset := token.NewFileSet()
	if file, err := parser.ParseFile(fset, "cell.go", "package main\n"+source, 0); err == nil {
		a.collectImports(file)
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				a.addAssigned(d.Name.Name)
			case *ast.GenDecl:
				if d.Tok != token.IMPORT {
					a.collectGenDecl(d)
				}
			}
		}
		a.collectBareCallees(file)
		a.Empty = len(file.Decls) == 0
		// Declaration cells carry their imports in the source text too; the
		// executor must see them split out the same way statement cells are.
		if len(file.Imports) > 0 {
			if imports, body, serr := splitImports(source); serr == nil {
				a.Imports, a.Body = imports, body
			}
		}
		return a, nil
	}

	imports, body, err := splitImports(source)
	if err != nil {
		return nil, err
	}
	a.Imports, a.Body = imports, body

	if imports != "" {
		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, "cell.go", "package main\n"+imports, 0)
		if err != nil {
			return nil, adjustLines(err, -1)
		}
		a.collectImports(file)
	}

	if strings.TrimSpace(body) == "" {
		a.Empty = a.Imports == ""
		return a, nil
	}

	wrapped := bodyWrapHeader + body + "\n}"
	fset = token.NewFileSet()
	file, err := parser.ParseFile(fset, "cell.go", wrapped, 0)
	if err != nil {
		// Lines shift by the wrap header minus the import block the body no
		// longer carries.
		return nil, adjustLines(err, strings.Count(imports, "\n")-strings.Count(bodyWrapHeader, "\n"))
	}
	a.collectBody(file, fset)
	return a, nil
}

// HasBareCall reports whether the cell calls the given bare identifier
// anywhere.
func (a *Analysis) HasBareCall(name string) bool {
	return a.bareCallees[name]
}

// adjustLines rewrites parser error positions so they refer to lines of the
// original cell source rather than the wrapped form.
func adjustLines(err error, delta int) error {
	list, ok := err.(scanner.ErrorList)
	if !ok || len(list) == 0 {
		return err
	}
	first := list[0]
	line := first.Pos.Line + delta
	if line < 1 {
		line = 1
	}
	return fmt.Errorf("syntax error at line %d: %s", line, first.Msg)
}

func (a *Analysis) collectImports(file *ast.File) {
	seenRoot := make(map[string]bool)
	for _, root := range a.ImportRoots {
		seenRoot[root] = true
	}
	for _, spec := range file.Imports {
		path := strings.Trim(spec.Path.Value, `"`)
		a.ImportPaths = append(a.ImportPaths, path)
		specText := spec.Path.Value
		if spec.Name != nil {
			specText = spec.Name.Name + " " + spec.Path.Value
		}
		a.ImportSpecs = append(a.ImportSpecs, specText)
		root := path
		if i := strings.IndexByte(path, '/'); i >= 0 {
			root = path[:i]
		}
		if !seenRoot[root] {
			seenRoot[root] = true
			a.ImportRoots = append(a.ImportRoots, root)
		}
		if spec.Name != nil && spec.Name.Name != "." && spec.Name.Name != "_" {
			a.AliasNames = append(a.AliasNames, spec.Name.Name)
		}
	}
}

func (a *Analysis) collectGenDecl(d *ast.GenDecl) {
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.ValueSpec:
			for _, name := range s.Names {
				a.addAssigned(name.Name)
			}
		case *ast.TypeSpec:
			a.addAssigned(s.Name.Name)
		}
	}
}

func (a *Analysis) collectBody(file *ast.File, fset *token.FileSet) {
	fn := cellFunc(file)
	if fn == nil || len(fn.Body.List) == 0 {
		a.Empty = a.Imports == ""
		return
	}
	stmts := fn.Body.List
	tokFile := fset.File(file.Pos())

	if _, ok := stmts[len(stmts)-1].(*ast.ExprStmt); ok {
		a.TrailingExpr = true
	}

	for i, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.AssignStmt:
			for _, lhs := range s.Lhs {
				if id, ok := lhs.(*ast.Ident); ok {
					a.addAssigned(id.Name)
				}
			}
		case *ast.DeclStmt:
			if gd, ok := s.Decl.(*ast.GenDecl); ok {
				a.collectGenDecl(gd)
			}
		case *ast.ExprStmt:
			if i == len(stmts)-1 {
				continue
			}
			call, ok := s.X.(*ast.CallExpr)
			if !ok || !isWidgetCall(call) {
				continue
			}
			start := tokFile.Offset(call.Pos()) - len(bodyWrapHeader)
			end := tokFile.Offset(call.End()) - len(bodyWrapHeader)
			if start >= 0 && end <= len(a.Body) && start < end {
				a.WidgetCalls = append(a.WidgetCalls, a.Body[start:end])
			}
		}
	}

	a.collectBareCallees(fn)
}

func (a *Analysis) collectBareCallees(root ast.Node) {
	ast.Inspect(root, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok {
			if id, ok := call.Fun.(*ast.Ident); ok {
				a.bareCallees[id.Name] = true
			}
		}
		return true
	})
}

func cellFunc(file *ast.File) *ast.FuncDecl {
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Name.Name == "_cell" {
			return fn
		}
	}
	return nil
}

func isWidgetCall(call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	id, ok := sel.X.(*ast.Ident)
	return ok && id.Name == "ui"
}

func (a *Analysis) addAssigned(name string) {
	if name == "_" || name == "" {
		return
	}
	for _, existing := range a.AssignedNames {
		if existing == name {
			return
		}
	}
	a.AssignedNames = append(a.AssignedNames, name)
}
