package ast

import (
	"log/slog"
)

// Slog wraps an Expr as a slog.LogValuer to not render expression strings
// unless they definitely need to be logged
func Slog(expr Expr) slog.LogValuer {
	return exprLogValuer{expr}
}

type exprLogValuer struct{ Expr }

func (l exprLogValuer) LogValue() slog.Value {
	if l.Expr == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.String("str", ExprString(l.Expr)),
		slog.String("pos", RangeOf(l.Expr).String()),
	)
}
