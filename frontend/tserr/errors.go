package tserr

import (
	"fmt"
	"log/slog"
	"slices"
)

// Errors accumulates diagnostics. The nil *Errors is empty and ready to use.
type Errors struct {
	errs []Diagnostic
}

func (r *Errors) With(err ...Diagnostic) *Errors {
	if r == nil {
		return &Errors{errs: err}
	}
	r.errs = append(r.errs, err...)
	return r
}

func (r *Errors) Merge(err *Errors) *Errors {
	if r == nil {
		return err
	}
	if err == nil {
		return r
	}
	if len(err.errs) == 0 {
		return r
	}
	return r.With(err.errs...)
}

func (r *Errors) Errors() []Diagnostic {
	if r == nil {
		return nil
	}
	return r.errs
}

func (r *Errors) HasError() bool {
	if r == nil {
		return false
	}
	return len(r.errs) > 0
}

func (r *Errors) Len() int {
	if r == nil {
		return 0
	}
	return len(r.errs)
}

// Codes lists the codes of the accumulated diagnostics in source order
func (r *Errors) Codes() []Code {
	if r == nil {
		return nil
	}
	sorted := slices.Clone(r.errs)
	slices.SortStableFunc(sorted, func(a, b Diagnostic) int {
		return int(a.Pos()) - int(b.Pos())
	})
	codes := make([]Code, len(sorted))
	for i, e := range sorted {
		codes[i] = e.Code()
	}
	return codes
}

func (r *Errors) LogValue() slog.Value {
	var vals []slog.Attr
	for i, v := range r.Errors() {
		vals = append(vals, slog.Attr{
			Key: fmt.Sprint("e", i),
			Value: slog.GroupValue(
				slog.Attr{
					Key:   "msg",
					Value: slog.StringValue(FormatWithCode(v)),
				},
			),
		})
	}
	return slog.GroupValue(vals...)
}
