// Package token defines the lexical tokens of the Falcon language.
package token

type TokenType string

const (
	ERROR TokenType = "ERROR"
	EOF   TokenType = "EOF"

	// Identifiers and literals
	IDENT  TokenType = "IDENT"
	NUMBER TokenType = "NUMBER"
	STRING TokenType = "STRING"

	// Single-character tokens
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	COMMA     TokenType = ","
	DOT       TokenType = "."
	COLON     TokenType = ":"
	SEMICOLON TokenType = ";"
	PLUS      TokenType = "+"
	MINUS     TokenType = "-"
	STAR      TokenType = "*"
	SLASH     TokenType = "/"
	PERCENT   TokenType = "%"
	CARET     TokenType = "^"
	QUESTION  TokenType = "?"
	ASSIGN    TokenType = "="
	LT        TokenType = "<"
	GT        TokenType = ">"

	// Two-character tokens
	NOT_EQ TokenType = "!="
	EQ     TokenType = "=="
	LE     TokenType = "<="
	GE     TokenType = ">="
	ARROW  TokenType = "->"

	// Keywords
	AND    TokenType = "and"
	BREAK  TokenType = "break"
	CLASS  TokenType = "class"
	ELSE   TokenType = "else"
	FALSE  TokenType = "false"
	FOR    TokenType = "for"
	FN     TokenType = "fn"
	IF     TokenType = "if"
	NEXT   TokenType = "next"
	NOT    TokenType = "not"
	NULL   TokenType = "null"
	OR     TokenType = "or"
	RETURN TokenType = "return"
	SUPER  TokenType = "super"
	SWITCH TokenType = "switch"
	THIS   TokenType = "this"
	TRUE   TokenType = "true"
	VAR    TokenType = "var"
	WHEN   TokenType = "when"
	WHILE  TokenType = "while"
)

// Token is a single lexical token. String and number literals carry their
// decoded Go value in Literal so the compiler never reparses the lexeme.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{} // float64 for NUMBER, string for STRING, message for ERROR
	Line    int
	Column  int
}

var keywords = map[string]TokenType{
	"and":    AND,
	"break":  BREAK,
	"class":  CLASS,
	"else":   ELSE,
	"false":  FALSE,
	"for":    FOR,
	"fn":     FN,
	"if":     IF,
	"next":   NEXT,
	"not":    NOT,
	"null":   NULL,
	"or":     OR,
	"return": RETURN,
	"super":  SUPER,
	"switch": SWITCH,
	"this":   THIS,
	"true":   TRUE,
	"var":    VAR,
	"when":   WHEN,
	"while":  WHILE,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}
