package fxerr

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

// Errors accumulates diagnostics. A nil *Errors is a valid, empty accumulator
type Errors struct {
	errs []Diagnostic
}

func (r *Errors) With(err ...Diagnostic) *Errors {
	if r == nil {
		return &Errors{errs: err}
	}
	for _, err := range err {
		r.errs = append(r.errs, err)
	}
	return r
}

func (r *Errors) Merge(err *Errors) *Errors {
	if r == nil {
		if err == nil {
			return nil
		}
		return &Errors{errs: slices.Clone(err.errs)}
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

// HasError reports whether any of the diagnostics is an error rather than a warning
func (r *Errors) HasError() bool {
	if r == nil {
		return false
	}
	return slices.ContainsFunc(r.errs, func(d Diagnostic) bool { return d.Severity() == Error })
}

func (r *Errors) Len() int {
	if r == nil {
		return 0
	}
	return len(r.errs)
}

// Of returns the diagnostics with the given code
func (r *Errors) Of(code ErrCode) []Diagnostic {
	var found []Diagnostic
	for _, d := range r.Errors() {
		if d.Code() == code {
			found = append(found, d)
		}
	}
	return found
}

// Sorted returns the diagnostics ordered by source position, keeping
// the order in which they were found for equal positions
func (r *Errors) Sorted() []Diagnostic {
	sorted := slices.Clone(r.Errors())
	slices.SortStableFunc(sorted, func(a, b Diagnostic) int {
		return cmp.Compare(a.Pos(), b.Pos())
	})
	return sorted
}

func (r *Errors) LogValue() slog.Value {
	if r == nil {
		return slog.GroupValue()
	}
	var vals []slog.Attr
	for i, v := range r.errs {
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
