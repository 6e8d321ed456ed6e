package lexer

import (
	"strings"
	"testing"

	"github.com/filipefalcaos/falcon/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `var five = 5;
var pi = 3.14;

fn add(x, y) {
	return x + y;
}

# a comment the lexer skips
var result = add(five, pi);
not true and false or null;
if result <= 10 { result = result - 1; }
switch result { when 1 -> break; else -> next; }
class Shape < Base { fn init() { this.super = super; } }
var l = [1, 2];
var m = {"k": l[0] % 2 ^ 2};
while result != 0 { result = result / 2 * 1; }
result ? "a" : "b";
`

	tests := []struct {
		expectedType   token.TokenType
		expectedLexeme string
	}{
		{token.VAR, "var"},
		{token.IDENT, "five"},
		{token.ASSIGN, "="},
		{token.NUMBER, "5"},
		{token.SEMICOLON, ";"},
		{token.VAR, "var"},
		{token.IDENT, "pi"},
		{token.ASSIGN, "="},
		{token.NUMBER, "3.14"},
		{token.SEMICOLON, ";"},
		{token.FN, "fn"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.VAR, "var"},
		{token.IDENT, "result"},
		{token.ASSIGN, "="},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "five"},
		{token.COMMA, ","},
		{token.IDENT, "pi"},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.NOT, "not"},
		{token.TRUE, "true"},
		{token.AND, "and"},
		{token.FALSE, "false"},
		{token.OR, "or"},
		{token.NULL, "null"},
		{token.SEMICOLON, ";"},
		{token.IF, "if"},
		{token.IDENT, "result"},
		{token.LE, "<="},
		{token.NUMBER, "10"},
		{token.LBRACE, "{"},
		{token.IDENT, "result"},
		{token.ASSIGN, "="},
		{token.IDENT, "result"},
		{token.MINUS, "-"},
		{token.NUMBER, "1"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.SWITCH, "switch"},
		{token.IDENT, "result"},
		{token.LBRACE, "{"},
		{token.WHEN, "when"},
		{token.NUMBER, "1"},
		{token.ARROW, "->"},
		{token.BREAK, "break"},
		{token.SEMICOLON, ";"},
		{token.ELSE, "else"},
		{token.ARROW, "->"},
		{token.NEXT, "next"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.CLASS, "class"},
		{token.IDENT, "Shape"},
		{token.LT, "<"},
		{token.IDENT, "Base"},
		{token.LBRACE, "{"},
		{token.FN, "fn"},
		{token.IDENT, "init"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.THIS, "this"},
		{token.DOT, "."},
		{token.SUPER, "super"},
		{token.ASSIGN, "="},
		{token.SUPER, "super"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.RBRACE, "}"},
		{token.VAR, "var"},
		{token.IDENT, "l"},
		{token.ASSIGN, "="},
		{token.LBRACKET, "["},
		{token.NUMBER, "1"},
		{token.COMMA, ","},
		{token.NUMBER, "2"},
		{token.RBRACKET, "]"},
		{token.SEMICOLON, ";"},
		{token.VAR, "var"},
		{token.IDENT, "m"},
		{token.ASSIGN, "="},
		{token.LBRACE, "{"},
		{token.STRING, "k"},
		{token.COLON, ":"},
		{token.IDENT, "l"},
		{token.LBRACKET, "["},
		{token.NUMBER, "0"},
		{token.RBRACKET, "]"},
		{token.PERCENT, "%"},
		{token.NUMBER, "2"},
		{token.CARET, "^"},
		{token.NUMBER, "2"},
		{token.RBRACE, "}"},
		{token.SEMICOLON, ";"},
		{token.WHILE, "while"},
		{token.IDENT, "result"},
		{token.NOT_EQ, "!="},
		{token.NUMBER, "0"},
		{token.LBRACE, "{"},
		{token.IDENT, "result"},
		{token.ASSIGN, "="},
		{token.IDENT, "result"},
		{token.SLASH, "/"},
		{token.NUMBER, "2"},
		{token.STAR, "*"},
		{token.NUMBER, "1"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.IDENT, "result"},
		{token.QUESTION, "?"},
		{token.STRING, "a"},
		{token.COLON, ":"},
		{token.STRING, "b"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong token type. expected=%q, got=%q (%q)",
				i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - wrong lexeme. expected=%q, got=%q",
				i, tt.expectedLexeme, tok.Lexeme)
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"0", 0},
		{"42", 42},
		{"3.14", 3.14},
		{"0.5", 0.5},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.NUMBER {
			t.Fatalf("%q - expected NUMBER, got %q", tt.input, tok.Type)
		}
		if tok.Literal.(float64) != tt.expected {
			t.Errorf("%q - expected %v, got %v", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestNumberWithoutTrailingDigit(t *testing.T) {
	// "1." is a number followed by a dot, not a malformed literal
	l := New("1.x")
	if tok := l.NextToken(); tok.Type != token.NUMBER || tok.Lexeme != "1" {
		t.Fatalf("expected NUMBER \"1\", got %q %q", tok.Type, tok.Lexeme)
	}
	if tok := l.NextToken(); tok.Type != token.DOT {
		t.Fatalf("expected DOT, got %q", tok.Type)
	}
	if tok := l.NextToken(); tok.Type != token.IDENT {
		t.Fatalf("expected IDENT, got %q", tok.Type)
	}
}

func TestNumberOverflow(t *testing.T) {
	tok := New("1" + strings.Repeat("0", 400)).NextToken()
	if tok.Type != token.ERROR {
		t.Fatalf("expected ERROR, got %q", tok.Type)
	}
	if tok.Lexeme != "Number literal is too large." {
		t.Errorf("unexpected message %q", tok.Lexeme)
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"plain"`, "plain"},
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"a\rb"`, "a\rb"},
		{`"a\bb"`, "a\bb"},
		{`"a\fb"`, "a\fb"},
		{`"a\vb"`, "a\vb"},
		{`"quote \" here"`, `quote " here`},
		{`"back \\ slash"`, `back \ slash`},
		{"\"raw\nnewline\"", "raw\nnewline"},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.STRING {
			t.Fatalf("%q - expected STRING, got %q (%q)", tt.input, tok.Type, tok.Lexeme)
		}
		if tok.Literal.(string) != tt.expected {
			t.Errorf("%q - expected %q, got %q", tt.input, tt.expected, tok.Literal)
		}
	}
}

func TestStringErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{`"unterminated`, "Unterminated string."},
		{`"bad \q escape"`, "Invalid escape character in string."},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.ERROR {
			t.Fatalf("%q - expected ERROR, got %q", tt.input, tok.Type)
		}
		if tok.Lexeme != tt.message {
			t.Errorf("%q - expected %q, got %q", tt.input, tt.message, tok.Lexeme)
		}
	}
}

func TestBareNotIsAnError(t *testing.T) {
	// Negation is spelled "not"; "!" only exists inside "!=".
	tok := New("!true").NextToken()
	if tok.Type != token.ERROR {
		t.Fatalf("expected ERROR for bare '!', got %q", tok.Type)
	}
	if tok.Lexeme != "Unexpected character '!'." {
		t.Errorf("unexpected message %q", tok.Lexeme)
	}

	l := New("1 != 2")
	l.NextToken()
	if tok := l.NextToken(); tok.Type != token.NOT_EQ {
		t.Errorf("expected NOT_EQ, got %q", tok.Type)
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	tok := New("@").NextToken()
	if tok.Type != token.ERROR {
		t.Fatalf("expected ERROR, got %q", tok.Type)
	}
	if tok.Lexeme != "Unexpected character '@'." {
		t.Errorf("unexpected message %q", tok.Lexeme)
	}
}

func TestCommentsAndWhitespace(t *testing.T) {
	input := "# leading comment\n  \t\r\n1 # trailing comment\n# only comments follow\n"
	l := New(input)

	if tok := l.NextToken(); tok.Type != token.NUMBER {
		t.Fatalf("expected NUMBER, got %q", tok.Type)
	}
	if tok := l.NextToken(); tok.Type != token.EOF {
		t.Fatalf("expected EOF, got %q", tok.Type)
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	input := "var a;\n  a = 1;\n"
	l := New(input)

	tests := []struct {
		line   int
		column int
	}{
		{1, 1}, // var
		{1, 5}, // a
		{1, 6}, // ;
		{2, 3}, // a
		{2, 5}, // =
		{2, 7}, // 1
		{2, 8}, // ;
	}

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Line != tt.line || tok.Column != tt.column {
			t.Errorf("tests[%d] (%q) - expected %d:%d, got %d:%d",
				i, tok.Lexeme, tt.line, tt.column, tok.Line, tok.Column)
		}
	}
}

func TestKeywordsAreNotPrefixes(t *testing.T) {
	// Identifiers that merely start with a keyword stay identifiers
	tests := []string{"classy", "iffy", "variable", "nothing", "supermarket", "forever"}

	for _, input := range tests {
		tok := New(input).NextToken()
		if tok.Type != token.IDENT {
			t.Errorf("%q - expected IDENT, got %q", input, tok.Type)
		}
	}
}
