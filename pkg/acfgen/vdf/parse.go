package vdf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("vdf parse error")

// ParseError describes malformed input and where it was found.
type ParseError struct {
	Line   int
	Column int
	Offset int
	Msg    string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("vdf: line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ParseOptions controls how duplicate keys are handled.
type ParseOptions struct {
	// AccumulateDuplicates keeps every entry for a repeated key instead of
	// replacing the earlier value.
	AccumulateDuplicates bool
}

// vdfLexer tokenizes the dialect. Whitespace, comments and platform
// conditionals such as [$WIN32] carry no data and are dropped by the parser.
var vdfLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\r\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Conditional", Pattern: `\[[^\]\r\n]*\]`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

var (
	symbols     = vdfLexer.Symbols()
	tokString   = symbols["String"]
	tokLBrace   = symbols["LBrace"]
	tokRBrace   = symbols["RBrace"]
	tokElidable = map[lexer.TokenType]bool{
		symbols["Comment"]:     true,
		symbols["Conditional"]: true,
		symbols["Whitespace"]:  true,
	}
)

// Parse parses text into a mapping node using last-wins for duplicate keys.
func Parse(text string) (*Node, error) {
	return ParseWithOptions(text, ParseOptions{})
}

// ParseWithOptions parses text into a mapping node.
func ParseWithOptions(text string, opts ParseOptions) (*Node, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, opts: opts}
	root := NewMap()
	if err := p.parseEntries(root, nil); err != nil {
		return nil, err
	}
	return root, nil
}

// tokenize lexes text and drops tokens that carry no data.
func tokenize(text string) ([]lexer.Token, error) {
	lex, err := vdfLexer.Lex("", strings.NewReader(text))
	if err != nil {
		return nil, lexError(err)
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, lexError(err)
	}

	tokens := make([]lexer.Token, 0, len(all))
	for _, tok := range all {
		if tokElidable[tok.Type] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// lexError converts a lexer failure into a *ParseError.
func lexError(err error) error {
	var positioned interface{ Position() lexer.Position }
	if errors.As(err, &positioned) {
		pos := positioned.Position()
		return &ParseError{
			Line:   pos.Line,
			Column: pos.Column,
			Offset: pos.Offset,
			Msg:    "unterminated or invalid token",
		}
	}
	return &ParseError{Msg: err.Error()}
}

type parser struct {
	tokens []lexer.Token
	pos    int
	opts   ParseOptions
}

func (p *parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// parseEntries reads key/value pairs into dst until the closing brace of the
// block opened at open, or until end of input when open is nil.
func (p *parser) parseEntries(dst *Node, open *lexer.Token) error {
	for {
		tok := p.next()
		switch tok.Type {
		case lexer.EOF:
			if open != nil {
				return errorAt(open.Pos, "unclosed '{'")
			}
			return nil

		case tokRBrace:
			if open == nil {
				return errorAt(tok.Pos, "unmatched '}'")
			}
			return nil

		case tokString:
			key := unquote(tok.Value)
			value := p.next()
			switch value.Type {
			case tokString:
				p.assign(dst, key, String(unquote(value.Value)))
			case tokLBrace:
				child := NewMap()
				if err := p.parseEntries(child, &value); err != nil {
					return err
				}
				p.assign(dst, key, child)
			case lexer.EOF:
				return errorAt(tok.Pos, fmt.Sprintf("key %q has no value", key))
			default:
				return errorAt(value.Pos, fmt.Sprintf("expected value or '{' after key %q", key))
			}

		default:
			return errorAt(tok.Pos, fmt.Sprintf("unexpected %q, expected a quoted key", tok.Value))
		}
	}
}

func (p *parser) assign(dst *Node, key string, child *Node) {
	if p.opts.AccumulateDuplicates {
		dst.Add(key, child)
		return
	}
	dst.Set(key, child)
}

func errorAt(pos lexer.Position, msg string) *ParseError {
	return &ParseError{Line: pos.Line, Column: pos.Column, Offset: pos.Offset, Msg: msg}
}

// unquote strips the surrounding quotes and resolves \" \\ \n and \t.
// Any other backslash sequence is kept verbatim, as Steam writes Windows paths
// with single backslashes.
func unquote(tok string) string {
	s := tok[1 : len(tok)-1]
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i+1])
		}
		i++
	}
	return b.String()
}
