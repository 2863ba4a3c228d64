// Package scanner implements the lexer for Salmon source: a byte-driven,
// hand-written scanner that produces one token.Token per call, the way the
// compiler's single-pass Pratt parser wants them (no token slice, no
// lookahead buffer beyond the parser's own previous/current pair).
package scanner

import (
	"strings"

	"github.com/salmon-lang/salmon/lang/token"
)

// pathIdent is the special identifier the preprocessor emits to mark a
// synthetic "which file am I in" token; the raw path text that follows it
// is scanned as a FILE_PATH token (see path).
const pathIdent = "____path____"

// ErrorHandler is called for each illegal token the scanner produces, the
// way compiler.ErrorList accumulates parser errors.
type ErrorHandler func(line int, msg string)

// A Scanner turns Salmon source text into a stream of token.Token values.
// It holds no parser state: Scan can be called repeatedly until it returns
// an EOF token.
type Scanner struct {
	src     string
	start   int
	current int
	line    int

	err ErrorHandler
}

// Init resets s to scan src from the beginning. err, if non-nil, is invoked
// for every ILLEGAL token produced.
func (s *Scanner) Init(src string, err ErrorHandler) {
	s.src = src
	s.start = 0
	s.current = 0
	s.line = 1
	s.err = err
}

func (s *Scanner) isAtEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.src[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

func (s *Scanner) match(expected byte) bool {
	if s.isAtEnd() || s.src[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) lexeme() string { return s.src[s.start:s.current] }

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: s.lexeme(), Line: s.line}
}

func (s *Scanner) errorToken(msg string) token.Token {
	if s.err != nil {
		s.err(s.line, msg)
	}
	return token.Token{Kind: token.ILLEGAL, Lexeme: msg, Line: s.line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n':
		return true
	default:
		return false
	}
}

func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.isAtEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

// Scan returns the next token in the source, advancing past it. Once the
// source is exhausted it returns an EOF token on every subsequent call.
func (s *Scanner) Scan() token.Token {
	s.skipWhitespace()
	s.start = s.current

	if s.isAtEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	if isDigit(c) {
		return s.number()
	}
	// '#' is allowed to lead an identifier: it marks a private field
	// reference (obj.#field), scanned here like any other name.
	if isAlpha(c) || c == '#' {
		return s.identifier()
	}

	switch c {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case '[':
		return s.make(token.LBRACK)
	case ']':
		return s.make(token.RBRACK)
	case ';':
		return s.make(token.SEMICOLON)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '=':
		// A bare '=' is the equality operator; there is no separate
		// two-character "==" spelling.
		return s.make(token.EQ_EQ)
	case '|':
		return s.make(token.PIPE)
	case '&':
		return s.make(token.AMPERSAND)
	case '?':
		return s.make(token.QUESTION)
	case '+':
		if s.match('=') {
			return s.make(token.PLUS_EQ)
		}
		return s.make(token.PLUS)
	case '-':
		if s.match('=') {
			return s.make(token.MINUS_EQ)
		}
		return s.make(token.MINUS)
	case '*':
		if s.match('=') {
			return s.make(token.STAR_EQ)
		}
		return s.make(token.STAR)
	case '/':
		if s.match('=') {
			return s.make(token.SLASH_EQ)
		}
		return s.make(token.SLASH)
	case '~':
		return s.path()
	case ':':
		if s.match('=') {
			return s.make(token.EQ)
		}
		return s.make(token.COLON)
	case '!':
		if s.match('=') {
			return s.make(token.BANG_EQ)
		}
		return s.make(token.BANG)
	case '<':
		if s.match('=') {
			return s.make(token.LT_EQ)
		}
		return s.make(token.LT)
	case '>':
		if s.match('=') {
			return s.make(token.GT_EQ)
		}
		return s.make(token.GT)
	case '"':
		return s.string()
	}

	return s.errorToken("unexpected character")
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	if s.lexeme() == pathIdent {
		return s.make(token.PATH)
	}
	return s.make(token.Lookup(s.lexeme()))
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.NUMBER)
}

// path scans a raw filesystem path introduced by '~': everything up to the
// next whitespace byte, unquoted and unescaped.
func (s *Scanner) path() token.Token {
	for !isWhitespace(s.peek()) && !s.isAtEnd() {
		s.advance()
	}
	return s.make(token.FILE_PATH)
}

// string scans a double-quoted string literal. Escape sequences are not
// interpreted here: the scanner only recognizes the two-byte escape shapes
// enough to not stop at an escaped quote. Interpretation of \n \t \r \\ \"
// happens once, when the literal is turned into a constant by the compiler.
func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.isAtEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		if s.peek() == '\\' {
			switch s.peekNext() {
			case '\\', '"', '\r', '\n', 't':
				s.advance()
			}
		}
		s.advance()
	}

	if s.isAtEnd() {
		return s.errorToken("unterminated string")
	}

	s.advance() // closing quote
	return s.make(token.STRING)
}

// Unescape interprets the \n \t \r \\ \" escape sequences in the raw text
// of a STRING token (lexeme still includes the surrounding quotes). It is
// applied once, at the point a string literal becomes a constant, per the
// literal-vs-runtime-string distinction in object.c's allocate_string.
func Unescape(lexeme string) string {
	body := lexeme
	if len(body) >= 2 {
		body = body[1 : len(body)-1]
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			switch body[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			case 'r':
				b.WriteByte('\r')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case '"':
				b.WriteByte('"')
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
