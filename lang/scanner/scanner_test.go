package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salmon-lang/salmon/lang/scanner"
	"github.com/salmon-lang/salmon/lang/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var s scanner.Scanner
	s.Init(src, func(line int, msg string) {
		t.Logf("scanner error at line %d: %s", line, msg)
	})
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, tok := range toks {
		ks[i] = tok.Kind
	}
	return ks
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, `( ) { } [ ] , . ; + - * / ! < > `)
	require.Equal(t, []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.LBRACK, token.RBRACK, token.COMMA, token.DOT, token.SEMICOLON,
		token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.BANG, token.LT, token.GT, token.EOF,
	}, kinds(toks))
}

func TestEqualsIsEquality(t *testing.T) {
	toks := scanAll(t, `a = b`)
	require.Equal(t, []token.Kind{token.IDENT, token.EQ_EQ, token.IDENT, token.EOF}, kinds(toks))
}

func TestColonEqualsIsAssignment(t *testing.T) {
	toks := scanAll(t, `a := b`)
	require.Equal(t, []token.Kind{token.IDENT, token.EQ, token.IDENT, token.EOF}, kinds(toks))
}

func TestBareColonForTernary(t *testing.T) {
	toks := scanAll(t, `a ? b : c`)
	require.Equal(t, []token.Kind{
		token.IDENT, token.QUESTION, token.IDENT, token.COLON, token.IDENT, token.EOF,
	}, kinds(toks))
}

func TestCompoundAssignment(t *testing.T) {
	toks := scanAll(t, `+= -= *= /=`)
	require.Equal(t, []token.Kind{
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.EOF,
	}, kinds(toks))
}

func TestPipeAndAmpersand(t *testing.T) {
	toks := scanAll(t, `| &`)
	require.Equal(t, []token.Kind{token.PIPE, token.AMPERSAND, token.EOF}, kinds(toks))
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, `class else false for function if nil private return super this true var while notakeyword`)
	require.Equal(t, []token.Kind{
		token.CLASS, token.ELSE, token.FALSE, token.FOR, token.FUNCTION, token.IF,
		token.NIL, token.PRIVATE, token.RETURN, token.SUPER, token.THIS,
		token.TRUE, token.VAR, token.WHILE, token.IDENT, token.EOF,
	}, kinds(toks))
}

func TestAndOrAreNotKeywords(t *testing.T) {
	toks := scanAll(t, `and or`)
	require.Equal(t, []token.Kind{token.IDENT, token.IDENT, token.EOF}, kinds(toks))
}

func TestPrivateFieldSigil(t *testing.T) {
	toks := scanAll(t, `this.#balance`)
	require.Equal(t, []token.Kind{token.THIS, token.DOT, token.IDENT, token.EOF}, kinds(toks))
	require.Equal(t, "#balance", toks[2].Lexeme)
}

func TestNumberLiterals(t *testing.T) {
	toks := scanAll(t, `123 1.5 0`)
	require.Equal(t, []token.Kind{token.NUMBER, token.NUMBER, token.NUMBER, token.EOF}, kinds(toks))
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, "1.5", toks[1].Lexeme)
}

func TestStringLiteral(t *testing.T) {
	toks := scanAll(t, `"hello, world"`)
	require.Equal(t, []token.Kind{token.STRING, token.EOF}, kinds(toks))
	require.Equal(t, `"hello, world"`, toks[0].Lexeme)
}

func TestStringWithEscapes(t *testing.T) {
	toks := scanAll(t, `"line one\nline two"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, "line one\nline two", scanner.Unescape(toks[0].Lexeme))
}

func TestUnterminatedStringIsIllegal(t *testing.T) {
	toks := scanAll(t, `"never closed`)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
}

func TestLineCommentsAreSkipped(t *testing.T) {
	toks := scanAll(t, "var a // this is a comment\nvar b")
	require.Equal(t, []token.Kind{token.VAR, token.IDENT, token.VAR, token.IDENT, token.EOF}, kinds(toks))
}

func TestLineNumbersTrackNewlines(t *testing.T) {
	toks := scanAll(t, "a\nb\n\nc")
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, 2, toks[1].Line)
	require.Equal(t, 4, toks[2].Line)
}

func TestPathIdentifier(t *testing.T) {
	toks := scanAll(t, `____path____ ~/abs/path/to/file.salmon`)
	require.Equal(t, []token.Kind{token.PATH, token.FILE_PATH, token.EOF}, kinds(toks))
	require.Equal(t, "~/abs/path/to/file.salmon", toks[1].Lexeme)
}

func TestUnexpectedCharacterIsIllegal(t *testing.T) {
	toks := scanAll(t, `@`)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
}

func TestErrorCallbackInvoked(t *testing.T) {
	var s scanner.Scanner
	var gotLine int
	var gotMsg string
	s.Init("@", func(line int, msg string) {
		gotLine = line
		gotMsg = msg
	})
	s.Scan()
	require.Equal(t, 1, gotLine)
	require.NotEmpty(t, gotMsg)
}

func TestScanIsIdempotentAtEOF(t *testing.T) {
	var s scanner.Scanner
	s.Init("", nil)
	require.Equal(t, token.EOF, s.Scan().Kind)
	require.Equal(t, token.EOF, s.Scan().Kind)
}
