package lexer

import (
	"loxy-vm/internal/token"
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `var five = 5;
var pi = 3.14
// a comment
var msg = "hello"

if (five <= 10 and five != 4) {
	print msg;
} else {
	print !true or nil;
}

for (; five < 10; five = five + 1) {}
while (false) {}
`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.VAR, "var"},
		{token.IDENTIFIER, "five"},
		{token.ASSIGN, "="},
		{token.NUMBER, "5"},
		{token.SEMICOLON, ";"},
		{token.VAR, "var"},
		{token.IDENTIFIER, "pi"},
		{token.ASSIGN, "="},
		{token.NUMBER, "3.14"},
		{token.VAR, "var"},
		{token.IDENTIFIER, "msg"},
		{token.ASSIGN, "="},
		{token.STRING, `"hello"`},
		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.IDENTIFIER, "five"},
		{token.LTE, "<="},
		{token.NUMBER, "10"},
		{token.AND, "and"},
		{token.IDENTIFIER, "five"},
		{token.BANG_EQ, "!="},
		{token.NUMBER, "4"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.PRINT, "print"},
		{token.IDENTIFIER, "msg"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.ELSE, "else"},
		{token.LBRACE, "{"},
		{token.PRINT, "print"},
		{token.BANG, "!"},
		{token.TRUE, "true"},
		{token.OR, "or"},
		{token.NIL, "nil"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.FOR, "for"},
		{token.LPAREN, "("},
		{token.SEMICOLON, ";"},
		{token.IDENTIFIER, "five"},
		{token.LT, "<"},
		{token.NUMBER, "10"},
		{token.SEMICOLON, ";"},
		{token.IDENTIFIER, "five"},
		{token.ASSIGN, "="},
		{token.IDENTIFIER, "five"},
		{token.PLUS, "+"},
		{token.NUMBER, "1"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
		{token.WHILE, "while"},
		{token.LPAREN, "("},
		{token.FALSE, "false"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong token type. got=%s, want=%s (%s)",
				i, tok.Type, tt.expectedType, tok)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal. got=%q, want=%q",
				i, tok.Literal, tt.expectedLiteral)
		}
	}
}

func TestKeywordsVersusIdentifiers(t *testing.T) {
	tests := []struct {
		input    string
		expected token.TokenType
	}{
		{"and", token.AND},
		{"class", token.CLASS},
		{"else", token.ELSE},
		{"false", token.FALSE},
		{"for", token.FOR},
		{"fun", token.FUN},
		{"if", token.IF},
		{"nil", token.NIL},
		{"or", token.OR},
		{"print", token.PRINT},
		{"return", token.RETURN},
		{"super", token.SUPER},
		{"this", token.THIS},
		{"true", token.TRUE},
		{"var", token.VAR},
		{"while", token.WHILE},
		{"anders", token.IDENTIFIER},
		{"classy", token.IDENTIFIER},
		{"f", token.IDENTIFIER},
		{"fa", token.IDENTIFIER},
		{"forage", token.IDENTIFIER},
		{"thistle", token.IDENTIFIER},
		{"truest", token.IDENTIFIER},
		{"_var", token.IDENTIFIER},
		{"x1", token.IDENTIFIER},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expected {
			t.Errorf("%q - wrong token type. got=%s, want=%s", tt.input, tok.Type, tt.expected)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"never closed`)
	tok := l.NextToken()
	if tok.Type != token.ERROR {
		t.Fatalf("wrong token type. got=%s, want=%s", tok.Type, token.ERROR)
	}
	if tok.Literal != "Unterminated string." {
		t.Errorf("wrong message. got=%q", tok.Literal)
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	l := New("@")
	tok := l.NextToken()
	if tok.Type != token.ERROR {
		t.Fatalf("wrong token type. got=%s, want=%s", tok.Type, token.ERROR)
	}
	if tok.Literal != "Unexpected character." {
		t.Errorf("wrong message. got=%q", tok.Literal)
	}
}

func TestLineCounting(t *testing.T) {
	l := New("1\n2\n// comment\n\"a\nb\"\n3")

	tests := []struct {
		literal string
		line    int
	}{
		{"1", 1},
		{"2", 2},
		{"\"a\nb\"", 5}, // newline inside the string bumps the counter
		{"3", 6},
	}

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Literal != tt.literal {
			t.Fatalf("tests[%d] - wrong literal. got=%q, want=%q", i, tok.Literal, tt.literal)
		}
		if tok.Line != tt.line {
			t.Errorf("tests[%d] - wrong line. got=%d, want=%d", i, tok.Line, tt.line)
		}
	}
}

func TestEOFIsIdempotent(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		tok := l.NextToken()
		if tok.Type != token.EOF {
			t.Fatalf("call %d - got=%s, want=%s", i, tok.Type, token.EOF)
		}
	}
}
