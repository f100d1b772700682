// Package project loads and checks a folder of programs at once
package project

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"testing/fstest"

	"github.com/cottand/tsz/frontend/ast"
	"github.com/cottand/tsz/frontend/checker"
	"github.com/cottand/tsz/frontend/fixture"
	"github.com/cottand/tsz/frontend/tserr"
	"github.com/cottand/tsz/internal/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var projectLogger = log.DefaultLogger.With("section", "conformance")

// Program is one fixture together with the outcome of checking it
type Program struct {
	Fixture *fixture.Fixture
	Result  *checker.Result
	// Path is where the program was read from, relative to the loaded folder
	Path string
}

// Project is every program found under a folder
type Project struct {
	Programs []*Program
}

type LoadSettings struct {
	// Dir is the path of the folder in the filesystem where the programs are located.
	// The default is `.`
	Dir string
	// Only restricts loading to the files with these paths, relative to Dir
	Only []string
	// Overrides are compiler options set on top of the options of every program
	Overrides map[string]bool
	// Jobs is how many programs are checked at once; zero means one
	Jobs int
}

func isProgram(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// Load parses and checks every program below settings.Dir in dir
func Load(dir fs.FS, settings LoadSettings) (*Project, error) {
	root := settings.Dir
	if root == "" {
		root = "."
	}
	var paths []string
	if len(settings.Only) > 0 {
		for _, p := range settings.Only {
			paths = append(paths, path.Join(root, p))
		}
	} else {
		err := fs.WalkDir(dir, root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isProgram(p) {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "could not list programs in %s", root)
		}
		slices.Sort(paths)
	}

	project := &Project{Programs: make([]*Program, len(paths))}
	g := new(errgroup.Group)
	g.SetLimit(max(settings.Jobs, 1))
	for i, p := range paths {
		g.Go(func() error {
			src, err := fs.ReadFile(dir, p)
			if err != nil {
				return errors.Wrapf(err, "could not read %s", p)
			}
			prog, err := NewProgramFromBytes(p, src, settings.Overrides)
			if err != nil {
				return err
			}
			project.Programs[i] = prog
			projectLogger.Debug("checked program", "path", p, "errors", prog.Result.Errors.Len())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return project, nil
}

// NewProgramFromBytes parses and checks a single program
func NewProgramFromBytes(name string, src []byte, overrides map[string]bool) (*Program, error) {
	fx, err := fixture.Parse(name, src)
	if err != nil {
		return nil, err
	}
	opts := fx.Options
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		var known bool
		if opts, known = opts.With(k, overrides[k]); !known {
			return nil, errors.Errorf("unknown compiler option %q", k)
		}
	}
	return &Program{Fixture: fx, Result: checker.New(opts).Check(fx.File), Path: name}, nil
}

// NewProjectFromBytes checks a single program kept in memory, meant for testing
func NewProjectFromBytes(data []byte) (*Project, error) {
	filesystem := fstest.MapFS{
		"program.yaml": &fstest.MapFile{
			Data: data,
		},
	}
	return Load(filesystem, LoadSettings{})
}

// ErrorCount is the number of diagnostics across all programs
func (p *Project) ErrorCount() int {
	n := 0
	for _, prog := range p.Programs {
		n += prog.Result.Errors.Len()
	}
	return n
}

// Diagnostics lists the diagnostics of the program in source order, formatted
// the way tsc prints them: `file(line,col): error TS2322: message`
func (p *Program) Diagnostics() []string {
	diags := slices.Clone(p.Result.Errors.Errors())
	slices.SortStableFunc(diags, func(a, b tserr.Diagnostic) int { return int(a.Pos()) - int(b.Pos()) })
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		pos := p.Fixture.Position(d.Pos())
		lines = append(lines, fmt.Sprintf("%s(%d,%d): %s", pos.Filename, pos.Line, pos.Column, tserr.FormatWithCode(d)))
	}
	return lines
}

// DisplayTypes renders the declared type of every top-level value, one per line
func (p *Program) DisplayTypes() string {
	sb := strings.Builder{}
	for _, stmt := range p.Fixture.File.Stmts {
		var sym *ast.Symbol
		switch d := stmt.(type) {
		case *ast.VarDecl:
			sym = d.Symbol
		case *ast.FuncDecl:
			sym = d.Symbol
		default:
			continue
		}
		sb.WriteString(sym.Name)
		sb.WriteString(": ")
		sb.WriteString(p.Result.TypeOf(sym))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Mismatches lists how checking the program differs from what its fixture expects
func (p *Program) Mismatches() []string {
	fx := p.Fixture
	var out []string
	if got := p.Result.Errors.Codes(); !slices.Equal(got, fx.Expect) {
		out = append(out, fmt.Sprintf("expected diagnostics %v, got %v", fx.Expect, got))
		for _, d := range p.Diagnostics() {
			out = append(out, "  "+d)
		}
	}
	names := make([]string, 0, len(fx.Types))
	for name := range fx.Types {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		want := fx.Types[name]
		sym, ok := fx.Lookup(name)
		if !ok {
			out = append(out, fmt.Sprintf("no top-level declaration %s", name))
			continue
		}
		if got := p.Result.TypeOf(sym); got != want {
			out = append(out, fmt.Sprintf("type of %s: expected %s, got %s", name, want, got))
		}
	}
	return out
}
