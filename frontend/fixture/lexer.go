package fixture

import (
	"fmt"

	"github.com/pkg/errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexemeKind uint8

const (
	tokEOF lexemeKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type lexeme struct {
	kind lexemeKind
	text string
	// offset is the byte offset of the token in the annotation
	offset int
}

func (t lexeme) String() string {
	if t.kind == tokEOF {
		return "end of annotation"
	}
	return fmt.Sprintf("%q", t.text)
}

// punctuation lists the operators of the annotation syntax, longest first
var punctuation = []string{"...", "=>", "?", ":", "|", "&", "[", "]", "{", "}", "(", ")", "<", ">", ",", ";", "=", "-", "+", "."}

// lex splits a type annotation into tokens
func lex(src string) ([]lexeme, error) {
	var toks []lexeme
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '_' || r == '$' || unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r, size := utf8.DecodeRuneInString(src[i:])
				if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, lexeme{kind: tokIdent, text: src[start:i], offset: start})
		case unicode.IsDigit(r):
			start := i
			for i < len(src) && (isNumberByte(src[i])) {
				i++
			}
			toks = append(toks, lexeme{kind: tokNumber, text: src[start:i], offset: start})
		case r == '"' || r == '\'':
			end := strings.IndexRune(src[i+1:], r)
			if end < 0 {
				return nil, errors.Errorf("unterminated string at offset %d", i)
			}
			toks = append(toks, lexeme{kind: tokString, text: src[i+1 : i+1+end], offset: i})
			i += end + 2
		default:
			matched := false
			for _, p := range punctuation {
				if strings.HasPrefix(src[i:], p) {
					toks = append(toks, lexeme{kind: tokPunct, text: p, offset: i})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				return nil, errors.Errorf("unexpected character %q at offset %d", r, i)
			}
		}
	}
	return append(toks, lexeme{kind: tokEOF, offset: len(src)}), nil
}

func isNumberByte(b byte) bool {
	return b >= '0' && b <= '9' || b == '.' || b == '_' || b == 'x' || b == 'X' ||
		b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F' || b == 'n' || b == 'o' || b == 'e'
}
