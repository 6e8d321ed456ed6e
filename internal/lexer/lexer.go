// Package lexer implements the handwritten Falcon scanner.
package lexer

import (
	"strconv"
	"strings"

	"github.com/filipefalcaos/falcon/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	line, column := l.line, l.column

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Line: line, Column: column}
	case '(':
		return l.makeSimple(token.LPAREN)
	case ')':
		return l.makeSimple(token.RPAREN)
	case '[':
		return l.makeSimple(token.LBRACKET)
	case ']':
		return l.makeSimple(token.RBRACKET)
	case '{':
		return l.makeSimple(token.LBRACE)
	case '}':
		return l.makeSimple(token.RBRACE)
	case ',':
		return l.makeSimple(token.COMMA)
	case '.':
		return l.makeSimple(token.DOT)
	case ':':
		return l.makeSimple(token.COLON)
	case ';':
		return l.makeSimple(token.SEMICOLON)
	case '+':
		return l.makeSimple(token.PLUS)
	case '*':
		return l.makeSimple(token.STAR)
	case '/':
		return l.makeSimple(token.SLASH)
	case '%':
		return l.makeSimple(token.PERCENT)
	case '^':
		return l.makeSimple(token.CARET)
	case '?':
		return l.makeSimple(token.QUESTION)
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.ARROW, Lexeme: "->", Line: line, Column: column}
		}
		return l.makeSimple(token.MINUS)
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.EQ, Lexeme: "==", Line: line, Column: column}
		}
		return l.makeSimple(token.ASSIGN)
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.LE, Lexeme: "<=", Line: line, Column: column}
		}
		return l.makeSimple(token.LT)
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.GE, Lexeme: ">=", Line: line, Column: column}
		}
		return l.makeSimple(token.GT)
	case '!':
		// Bare "!" is not an operator: negation is spelled "not".
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return token.Token{Type: token.NOT_EQ, Lexeme: "!=", Line: line, Column: column}
		}
		l.readChar()
		return l.errorToken("Unexpected character '!'.", line, column)
	case '"':
		return l.readString(line, column)
	default:
		if isDigit(l.ch) {
			return l.readNumber(line, column)
		}
		if isLetter(l.ch) {
			return l.readIdentifier(line, column)
		}
		ch := l.ch
		l.readChar()
		return l.errorToken("Unexpected character '"+string(ch)+"'.", line, column)
	}
}

func (l *Lexer) makeSimple(t token.TokenType) token.Token {
	tok := token.Token{Type: t, Lexeme: string(l.ch), Line: l.line, Column: l.column}
	l.readChar()
	return tok
}

func (l *Lexer) errorToken(message string, line, column int) token.Token {
	return token.Token{Type: token.ERROR, Lexeme: message, Literal: message, Line: line, Column: column}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '#':
			// Comments run to end of line
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier(line, column int) token.Token {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	return token.Token{Type: token.LookupIdent(lexeme), Lexeme: lexeme, Line: line, Column: column}
}

func (l *Lexer) readNumber(line, column int) token.Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	lexeme := l.input[start:l.position]

	value, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		// Overflow yields 0 plus an error token
		return token.Token{
			Type: token.ERROR, Lexeme: "Number literal is too large.",
			Literal: float64(0), Line: line, Column: column,
		}
	}
	return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: value, Line: line, Column: column}
}

func (l *Lexer) readString(line, column int) token.Token {
	l.readChar() // consume opening quote

	var sb strings.Builder
	for l.ch != '"' {
		if l.ch == 0 {
			return l.errorToken("Unterminated string.", line, column)
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case 'b':
				sb.WriteByte('\b')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 'f':
				sb.WriteByte('\f')
			case 't':
				sb.WriteByte('\t')
			case 'v':
				sb.WriteByte('\v')
			default:
				l.readChar()
				return l.errorToken("Invalid escape character in string.", line, column)
			}
			l.readChar()
			continue
		}
		// Raw newlines are allowed inside strings; readChar advances the
		// line counter.
		sb.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote

	value := sb.String()
	return token.Token{Type: token.STRING, Lexeme: value, Literal: value, Line: line, Column: column}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
