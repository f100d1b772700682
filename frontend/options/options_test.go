package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResolve(t *testing.T) {
	off := false
	tests := []struct {
		name string
		in   Compiler
		want Resolved
	}{
		{"loose", Loose(), Resolved{}},
		{"strict", Strict(), Resolved{StrictNullChecks: true, StrictFunctionTypes: true, NoImplicitAny: true}},
		{
			"strict without implicit any",
			Compiler{Strict: true, NoImplicitAny: &off},
			Resolved{StrictNullChecks: true, StrictFunctionTypes: true},
		},
		{
			"exact optional is independent",
			Compiler{ExactOptionalPropertyTypes: true},
			Resolved{ExactOptionalPropertyTypes: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Resolve())
		})
	}
}

func TestWith(t *testing.T) {
	c, ok := Loose().With("noImplicitAny", true)
	require.True(t, ok)
	assert.True(t, c.Resolve().NoImplicitAny)
	assert.False(t, c.Resolve().StrictNullChecks)

	_, ok = c.With("noEmit", true)
	assert.False(t, ok)
}

func TestDecodeYAML(t *testing.T) {
	var c Compiler
	err := yaml.Unmarshal([]byte("strict: true\nstrictFunctionTypes: false\n"), &c)
	require.NoError(t, err)
	r := c.Resolve()
	assert.True(t, r.StrictNullChecks)
	assert.False(t, r.StrictFunctionTypes)
	assert.True(t, r.NoImplicitAny)
}
