// Package options holds the compiler flags that influence checking
package options

import "log/slog"

// Compiler is the snapshot of strict-family flags a check run is configured with.
// Unset fields (nil) take their value from Strict when resolved.
type Compiler struct {
	Strict                     bool  `yaml:"strict"`
	StrictNullChecks           *bool `yaml:"strictNullChecks,omitempty"`
	StrictFunctionTypes        *bool `yaml:"strictFunctionTypes,omitempty"`
	NoImplicitAny              *bool `yaml:"noImplicitAny,omitempty"`
	ExactOptionalPropertyTypes bool  `yaml:"exactOptionalPropertyTypes"`
}

// Resolved is a Compiler with every flag decided
type Resolved struct {
	StrictNullChecks           bool
	StrictFunctionTypes        bool
	NoImplicitAny              bool
	ExactOptionalPropertyTypes bool
}

// Strict returns the options of `--strict` with nothing overridden
func Strict() Compiler {
	return Compiler{Strict: true}
}

// Loose returns the options of a bare tsc invocation
func Loose() Compiler {
	return Compiler{}
}

func orDefault(flag *bool, def bool) bool {
	if flag == nil {
		return def
	}
	return *flag
}

// Resolve applies the strict default to every strict-family flag that was not set explicitly
func (c Compiler) Resolve() Resolved {
	return Resolved{
		StrictNullChecks:    orDefault(c.StrictNullChecks, c.Strict),
		StrictFunctionTypes: orDefault(c.StrictFunctionTypes, c.Strict),
		NoImplicitAny:       orDefault(c.NoImplicitAny, c.Strict),
		// exactOptionalPropertyTypes is not part of the strict family
		ExactOptionalPropertyTypes: c.ExactOptionalPropertyTypes,
	}
}

// With returns a copy of c with name set to v. Unknown names are ignored and reported as false.
func (c Compiler) With(name string, v bool) (Compiler, bool) {
	switch name {
	case "strict":
		c.Strict = v
	case "strictNullChecks":
		c.StrictNullChecks = &v
	case "strictFunctionTypes":
		c.StrictFunctionTypes = &v
	case "noImplicitAny":
		c.NoImplicitAny = &v
	case "exactOptionalPropertyTypes":
		c.ExactOptionalPropertyTypes = v
	default:
		return c, false
	}
	return c, true
}

func (r Resolved) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("strictNullChecks", r.StrictNullChecks),
		slog.Bool("strictFunctionTypes", r.StrictFunctionTypes),
		slog.Bool("noImplicitAny", r.NoImplicitAny),
		slog.Bool("exactOptionalPropertyTypes", r.ExactOptionalPropertyTypes),
	)
}
