package fixture

import (
	"fmt"
	"go/scanner"
	"go/token"
	"strings"
)

// item is a single lexical token of a C expression or type.
type item struct {
	tok token.Token
	lit string
	off int
	end int
}

func (i item) String() string {
	if i.lit != "" {
		return i.lit
	}
	return i.tok.String()
}

// arrow is the literal of a PERIOD item that was written as "->".
const arrow = "->"

// lex splits src into tokens. The token set of C expressions is close enough
// to Go's that the Go scanner is used; "->" and integer suffixes such as
// "10UL" are reassembled afterwards.
func lex(src string) ([]item, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(file, []byte(src), func(pos token.Position, msg string) { errs.Add(pos, msg) }, 0)

	var items []item
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		} else if tok == token.SEMICOLON && lit == "\n" {
			continue
		}

		off := file.Offset(pos)
		text := lit
		if text == "" {
			text = tok.String()
		}
		it := item{tok: tok, lit: lit, off: off, end: off + len(text)}

		if n := len(items); n > 0 {
			prev := &items[n-1]
			switch {
			case prev.tok == token.SUB && tok == token.GTR && prev.end == off:
				prev.tok, prev.lit, prev.end = token.PERIOD, arrow, it.end
				continue
			case (prev.tok == token.INT || prev.tok == token.FLOAT) && tok == token.IDENT && prev.end == off && isNumberSuffix(lit):
				prev.lit += lit
				prev.end = it.end
				continue
			}
		}
		items = append(items, it)
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func isNumberSuffix(s string) bool {
	return strings.Trim(s, "uUlLfF") == ""
}

// stream is a cursor over lexed items.
type stream struct {
	src   string
	items []item
	pos   int
}

func newStream(src string) (*stream, error) {
	items, err := lex(src)
	if err != nil {
		return nil, err
	}
	return &stream{src: src, items: items}, nil
}

func (s *stream) peek() item {
	return s.peekN(0)
}

func (s *stream) peekN(n int) item {
	if s.pos+n >= len(s.items) {
		return item{tok: token.EOF, off: len(s.src), end: len(s.src)}
	}
	return s.items[s.pos+n]
}

func (s *stream) next() item {
	it := s.peek()
	if s.pos < len(s.items) {
		s.pos++
	}
	return it
}

func (s *stream) accept(tok token.Token) bool {
	if s.peek().tok == tok {
		s.pos++
		return true
	}
	return false
}

func (s *stream) expect(tok token.Token) (item, error) {
	it := s.next()
	if it.tok != tok {
		return it, s.errorf(it, "expected %s, found %s", tok, it)
	}
	return it, nil
}

func (s *stream) atEnd() bool {
	// A trailing semicolon is allowed.
	for s.peek().tok == token.SEMICOLON {
		s.pos++
	}
	return s.peek().tok == token.EOF
}

func (s *stream) errorf(it item, format string, args ...interface{}) error {
	return fmt.Errorf("%q: offset %d: %s", s.src, it.off, fmt.Sprintf(format, args...))
}
