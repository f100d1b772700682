package project

import (
	"testing"
	"testing/fstest"

	"github.com/cottand/tsz/frontend/tserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	clean = `
options: {strict: true}
types: {n: number}
program:
  - let: n
    init: 1
`
	implicitAny = `
options: {strict: true}
expect: [TS7006]
program:
  - function: f
    params: [x]
`
	wrongExpectation = `
expect: [TS2322]
types: {s: number, missing: string}
program:
  - const: s
    init: {str: a}
`
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"clean.yaml":           &fstest.MapFile{Data: []byte(clean)},
		"nested/implicit.yaml": &fstest.MapFile{Data: []byte(implicitAny)},
		"wrong.yml":            &fstest.MapFile{Data: []byte(wrongExpectation)},
		"README.md":            &fstest.MapFile{Data: []byte("not a program")},
	}
}

func TestLoad(t *testing.T) {
	loaded, err := Load(testFS(), LoadSettings{Jobs: 3})
	require.NoError(t, err)

	var paths []string
	for _, p := range loaded.Programs {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{"clean.yaml", "nested/implicit.yaml", "wrong.yml"}, paths)
	assert.Equal(t, 1, loaded.ErrorCount())
	assert.Equal(t, []tserr.Code{tserr.ImplicitAnyParam}, loaded.Programs[1].Result.Errors.Codes())
}

func TestLoadOnly(t *testing.T) {
	loaded, err := Load(testFS(), LoadSettings{Only: []string{"nested/implicit.yaml"}})
	require.NoError(t, err)
	require.Len(t, loaded.Programs, 1)
	assert.Equal(t, "nested/implicit.yaml", loaded.Programs[0].Path)

	_, err = Load(testFS(), LoadSettings{Only: []string{"absent.yaml"}})
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	loaded, err := Load(testFS(), LoadSettings{Dir: "nested"})
	require.NoError(t, err)
	require.Len(t, loaded.Programs, 1)
	assert.Equal(t, "nested/implicit.yaml", loaded.Programs[0].Path)
}

func TestOverrides(t *testing.T) {
	prog, err := NewProgramFromBytes("implicit.yaml", []byte(implicitAny), map[string]bool{"noImplicitAny": false})
	require.NoError(t, err)
	assert.Empty(t, prog.Result.Errors.Codes())
	assert.Equal(t, []string{"expected diagnostics [TS7006], got []"}, prog.Mismatches())

	_, err = NewProgramFromBytes("implicit.yaml", []byte(implicitAny), map[string]bool{"noSuchOption": true})
	assert.ErrorContains(t, err, "noSuchOption")
}

func TestDiagnostics(t *testing.T) {
	prog, err := NewProgramFromBytes("implicit.yaml", []byte(implicitAny), nil)
	require.NoError(t, err)
	diags := prog.Diagnostics()
	require.Len(t, diags, 1)
	assert.Regexp(t, `^implicit\.yaml\(6,\d+\): error TS7006: `, diags[0])
	assert.Empty(t, prog.Mismatches())
}

func TestDisplayTypes(t *testing.T) {
	loaded, err := NewProjectFromBytes([]byte(clean))
	require.NoError(t, err)
	require.Len(t, loaded.Programs, 1)
	assert.Equal(t, "n: number\n", loaded.Programs[0].DisplayTypes())
	assert.Empty(t, loaded.Programs[0].Mismatches())
}

func TestMismatches(t *testing.T) {
	prog, err := NewProgramFromBytes("wrong.yml", []byte(wrongExpectation), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"expected diagnostics [TS2322], got []",
		"no top-level declaration missing",
		`type of s: expected number, got "a"`,
	}, prog.Mismatches())
}
