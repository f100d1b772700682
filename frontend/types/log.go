package types

import (
	"fmt"
	"log/slog"
)

// Slog wraps t as a slog.LogValuer so that it is only formatted
// when the record is actually emitted
func (db *Database) Slog(t TypeID) slog.LogValuer {
	return typeLogValuer{db: db, t: t}
}

// SlogAll is Slog for a list of types
func (db *Database) SlogAll(ts []TypeID) slog.LogValuer {
	return typesLogValuer{db: db, ts: ts}
}

type typeLogValuer struct {
	db *Database
	t  TypeID
}

func (l typeLogValuer) LogValue() slog.Value {
	if l.t == NoType {
		return slog.StringValue("<none>")
	}
	return slog.GroupValue(
		slog.String("str", l.db.Format(l.t)),
		slog.String("id", fmt.Sprint(uint32(l.t))),
	)
}

type typesLogValuer struct {
	db *Database
	ts []TypeID
}

func (l typesLogValuer) LogValue() slog.Value {
	attrs := make([]slog.Attr, len(l.ts))
	for i, t := range l.ts {
		attrs[i] = slog.Any(fmt.Sprint(i), l.db.Slog(t))
	}
	return slog.GroupValue(attrs...)
}
