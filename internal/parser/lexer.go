// Package parser turns finity source text into the AST consumed by the
// compiler. It performs no error recovery: the first unexpected input
// rejects the program with its position.
package parser

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType defines the type of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenNumber
	TokenString
	TokenKeyword

	TokenAssign   // =
	TokenEq       // ==
	TokenNeq      // !=
	TokenLt       // <
	TokenLte      // <=
	TokenGt       // >
	TokenGte      // >=
	TokenPlus     // +
	TokenMinus    // -
	TokenStar     // *
	TokenSlash    // /
	TokenPercent  // %
	TokenAnd      // &&
	TokenOr       // ||
	TokenNot      // !
	TokenArrow    // ->
	TokenLParen   // (
	TokenRParen   // )
	TokenLBrace   // {
	TokenRBrace   // }
	TokenLBracket // [
	TokenRBracket // ]
	TokenComma    // ,
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "Ident"
	case TokenNumber:
		return "Number"
	case TokenString:
		return "String"
	case TokenKeyword:
		return "Keyword"
	case TokenAssign:
		return "'='"
	case TokenEq:
		return "'=='"
	case TokenNeq:
		return "'!='"
	case TokenLt:
		return "'<'"
	case TokenLte:
		return "'<='"
	case TokenGt:
		return "'>'"
	case TokenGte:
		return "'>='"
	case TokenPlus:
		return "'+'"
	case TokenMinus:
		return "'-'"
	case TokenStar:
		return "'*'"
	case TokenSlash:
		return "'/'"
	case TokenPercent:
		return "'%'"
	case TokenAnd:
		return "'&&'"
	case TokenOr:
		return "'||'"
	case TokenNot:
		return "'!'"
	case TokenArrow:
		return "'->'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenLBrace:
		return "'{'"
	case TokenRBrace:
		return "'}'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	case TokenComma:
		return "','"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

var keywords = map[string]bool{
	"if":     true,
	"else":   true,
	"while":  true,
	"return": true,
	"int":    true,
	"str":    true,
}

// Lex performs lexical analysis on the input string and returns a
// sequence of tokens ending with an EOF token. Line comments start
// with "//".
func Lex(input string) ([]Token, error) {
	var tokens []Token
	line, col := 1, 1
	i := 0

	emit := func(t TokenType, val string, width int) {
		tokens = append(tokens, Token{Type: t, Value: val, Line: line, Col: col})
		col += width
	}

	for i < len(input) {
		c := input[i]

		switch {
		case c == '\n':
			line++
			col = 1
			i++
			continue
		case c == ' ' || c == '\t' || c == '\r':
			col++
			i++
			continue
		case c == '/' && i+1 < len(input) && input[i+1] == '/':
			for i < len(input) && input[i] != '\n' {
				i++
			}
			continue
		}

		switch c {
		case '=':
			if i+1 < len(input) && input[i+1] == '=' {
				emit(TokenEq, "==", 2)
				i += 2
			} else {
				emit(TokenAssign, "=", 1)
				i++
			}
			continue
		case '!':
			if i+1 < len(input) && input[i+1] == '=' {
				emit(TokenNeq, "!=", 2)
				i += 2
			} else {
				emit(TokenNot, "!", 1)
				i++
			}
			continue
		case '<':
			if i+1 < len(input) && input[i+1] == '=' {
				emit(TokenLte, "<=", 2)
				i += 2
			} else {
				emit(TokenLt, "<", 1)
				i++
			}
			continue
		case '>':
			if i+1 < len(input) && input[i+1] == '=' {
				emit(TokenGte, ">=", 2)
				i += 2
			} else {
				emit(TokenGt, ">", 1)
				i++
			}
			continue
		case '&':
			if i+1 < len(input) && input[i+1] == '&' {
				emit(TokenAnd, "&&", 2)
				i += 2
				continue
			}
			return nil, fmt.Errorf("%d:%d: unexpected character '&'", line, col)
		case '|':
			if i+1 < len(input) && input[i+1] == '|' {
				emit(TokenOr, "||", 2)
				i += 2
				continue
			}
			return nil, fmt.Errorf("%d:%d: unexpected character '|'", line, col)
		case '-':
			if i+1 < len(input) && input[i+1] == '>' {
				emit(TokenArrow, "->", 2)
				i += 2
			} else {
				emit(TokenMinus, "-", 1)
				i++
			}
			continue
		case '+':
			emit(TokenPlus, "+", 1)
			i++
			continue
		case '*':
			emit(TokenStar, "*", 1)
			i++
			continue
		case '/':
			emit(TokenSlash, "/", 1)
			i++
			continue
		case '%':
			emit(TokenPercent, "%", 1)
			i++
			continue
		case '(':
			emit(TokenLParen, "(", 1)
			i++
			continue
		case ')':
			emit(TokenRParen, ")", 1)
			i++
			continue
		case '{':
			emit(TokenLBrace, "{", 1)
			i++
			continue
		case '}':
			emit(TokenRBrace, "}", 1)
			i++
			continue
		case '[':
			emit(TokenLBracket, "[", 1)
			i++
			continue
		case ']':
			emit(TokenRBracket, "]", 1)
			i++
			continue
		case ',':
			emit(TokenComma, ",", 1)
			i++
			continue
		case '"':
			var sb strings.Builder
			j := i + 1
			width := 2
			for j < len(input) && input[j] != '"' {
				if input[j] == '\\' && j+1 < len(input) {
					j++
					width++
				}
				if input[j] == '\n' {
					return nil, fmt.Errorf("%d:%d: unterminated string", line, col)
				}
				sb.WriteByte(input[j])
				j++
				width++
			}
			if j >= len(input) {
				return nil, fmt.Errorf("%d:%d: unterminated string", line, col)
			}
			emit(TokenString, sb.String(), width)
			i = j + 1
			continue
		}

		switch {
		case unicode.IsDigit(rune(c)):
			j := i
			for j < len(input) && unicode.IsDigit(rune(input[j])) {
				j++
			}
			emit(TokenNumber, input[i:j], j-i)
			i = j
			continue
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(input) && (unicode.IsLetter(rune(input[j])) || unicode.IsDigit(rune(input[j])) || input[j] == '_') {
				j++
			}
			word := input[i:j]
			if keywords[word] {
				emit(TokenKeyword, word, j-i)
			} else {
				emit(TokenIdent, word, j-i)
			}
			i = j
			continue
		}

		return nil, fmt.Errorf("%d:%d: unexpected character %q", line, col, c)
	}

	tokens = append(tokens, Token{Type: TokenEOF, Line: line, Col: col})
	return tokens, nil
}
