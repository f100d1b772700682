package types

import (
	"slices"
	"sort"

	"github.com/xtgo/set"
)

type idSlice []TypeID

func (s idSlice) Len() int           { return len(s) }
func (s idSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s idSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// sortedMembers returns the union members of t as a sorted set
func (db *Database) sortedMembers(t TypeID) idSlice {
	members := idSlice(slices.Clone(db.UnionMembers(t)))
	sort.Sort(members)
	return members[:set.Uniq(members)]
}

// pair concatenates two sorted sets for the xtgo/set operations, returning the pivot
func pair(a, b idSlice) (idSlice, int) {
	data := make(idSlice, 0, len(a)+len(b))
	data = append(data, a...)
	return append(data, b...), len(a)
}

// HasMembers reports whether every union member of sub is a member of t
func (db *Database) HasMembers(t, sub TypeID) bool {
	return set.IsSuper(pair(db.sortedMembers(t), db.sortedMembers(sub)))
}

// MembersMinus returns the union of the members of t that are not members of removed.
// Member order of t is kept.
func (db *Database) MembersMinus(t, removed TypeID) TypeID {
	data, pivot := pair(db.sortedMembers(t), db.sortedMembers(removed))
	kept := data[:set.Diff(data, pivot)]
	return db.FilterUnion(t, func(m TypeID) bool {
		_, found := slices.BinarySearch(kept, m)
		return found
	})
}
