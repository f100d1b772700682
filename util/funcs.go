package util

import (
	"strings"
)

// JoinString formats every element with f and joins them with sep
func JoinString[A any](elems []A, sep string, f func(A) string) string {
	sb := strings.Builder{}
	for i, elem := range elems {
		if i != 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(f(elem))
	}
	return sb.String()
}
