package dialect

import (
	"bufio"
	"io"
	"strings"
)

// TokenizerConfig parameterizes the shared lexical scanner so each
// dialect package can build a Tokenizer without re-implementing the
// comment/quote state machine (spec §9: "keeps the tokenizer
// dialect-pluggable").
type TokenizerConfig struct {
	BacktickIdent    bool // MySQL: ` quotes an identifier
	DoubleQuoteIdent bool // PostgreSQL/SQL Server: " quotes an identifier
	DollarQuote      bool // PostgreSQL: $tag$ ... $tag$ string bodies
	BackslashEscape  bool // MySQL: backslash escapes inside '...'
}

// NewScriptTokenizer returns a Tokenizer that lexes r one rune at a
// time and never holds more than the statement currently being
// accumulated.
func NewScriptTokenizer(r io.Reader, cfg TokenizerConfig) Tokenizer {
	return &scriptTokenizer{r: bufio.NewReader(r), cfg: cfg}
}

type scriptTokenizer struct {
	r   *bufio.Reader
	cfg TokenizerConfig
}

func (t *scriptTokenizer) Next() (string, error) {
	var stmt strings.Builder
	sawAny := false

	for {
		ch, _, err := t.r.ReadRune()
		if err != nil {
			if err == io.EOF {
				s := strings.TrimSpace(stmt.String())
				if s != "" {
					return s, nil
				}
				if sawAny {
					return "", io.EOF
				}
				return "", io.EOF
			}
			return "", err
		}
		sawAny = true

		switch ch {
		case '\'':
			stmt.WriteRune(ch)
			if err := t.consumeQuoted(&stmt, '\'', t.cfg.BackslashEscape); err != nil {
				return "", err
			}
			continue
		case '`':
			if t.cfg.BacktickIdent {
				stmt.WriteRune(ch)
				if err := t.consumeQuoted(&stmt, '`', false); err != nil {
					return "", err
				}
				continue
			}
		case '"':
			if t.cfg.DoubleQuoteIdent {
				stmt.WriteRune(ch)
				if err := t.consumeQuoted(&stmt, '"', false); err != nil {
					return "", err
				}
				continue
			}
		case '$':
			if t.cfg.DollarQuote {
				if handled, err := t.consumeDollarQuote(&stmt); err != nil {
					return "", err
				} else if handled {
					continue
				}
			}
		case '-':
			if next, _, err := t.r.ReadRune(); err == nil {
				if next == '-' {
					t.consumeLineComment()
					continue
				}
				_ = t.r.UnreadRune()
			}
		case '/':
			if next, _, err := t.r.ReadRune(); err == nil {
				if next == '*' {
					if err := t.consumeBlockComment(); err != nil {
						return "", err
					}
					continue
				}
				_ = t.r.UnreadRune()
			}
		case ';':
			if t.followedByNewlineOrEOF() {
				s := strings.TrimSpace(stmt.String())
				if s != "" {
					return s, nil
				}
				stmt.Reset()
				continue
			}
			stmt.WriteRune(ch)
			continue
		}

		stmt.WriteRune(ch)
	}
}

// consumeQuoted copies runes up to and including the closing quote
// into stmt, honoring doubled-quote escaping and, optionally,
// backslash escaping.
func (t *scriptTokenizer) consumeQuoted(stmt *strings.Builder, quote rune, backslash bool) error {
	for {
		ch, _, err := t.r.ReadRune()
		if err != nil {
			return err
		}
		if backslash && ch == '\\' {
			stmt.WriteRune(ch)
			next, _, err := t.r.ReadRune()
			if err != nil {
				return err
			}
			stmt.WriteRune(next)
			continue
		}
		stmt.WriteRune(ch)
		if ch == quote {
			peek, _, err := t.r.ReadRune()
			if err != nil {
				return nil
			}
			if peek == quote {
				stmt.WriteRune(peek)
				continue
			}
			_ = t.r.UnreadRune()
			return nil
		}
	}
}

// consumeDollarQuote handles PostgreSQL's $tag$...$tag$ string body. It
// always returns handled=true: when what follows isn't actually a valid
// dollar-quote opener, the '$' and any tag runes read so far are
// written to stmt as ordinary text and the offending rune is pushed back.
func (t *scriptTokenizer) consumeDollarQuote(stmt *strings.Builder) (bool, error) {
	var tag strings.Builder
	tag.WriteRune('$')

	for {
		ch, _, err := t.r.ReadRune()
		if err != nil {
			stmt.WriteString(tag.String())
			return true, nil
		}
		if ch == '$' {
			tag.WriteRune('$')
			break
		}
		if !isTagRune(ch) {
			stmt.WriteString(tag.String())
			_ = t.r.UnreadRune()
			return true, nil
		}
		tag.WriteRune(ch)
	}

	delim := tag.String()
	stmt.WriteString(delim)

	var body strings.Builder
	for {
		ch, _, err := t.r.ReadRune()
		if err != nil {
			stmt.WriteString(body.String())
			return true, err
		}
		body.WriteRune(ch)
		if strings.HasSuffix(body.String(), delim) {
			stmt.WriteString(body.String())
			return true, nil
		}
	}
}

func isTagRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

func (t *scriptTokenizer) consumeLineComment() {
	for {
		ch, _, err := t.r.ReadRune()
		if err != nil || ch == '\n' {
			return
		}
	}
}

func (t *scriptTokenizer) consumeBlockComment() error {
	prevStar := false
	for {
		ch, _, err := t.r.ReadRune()
		if err != nil {
			return err
		}
		if prevStar && ch == '/' {
			return nil
		}
		prevStar = ch == '*'
	}
}

// followedByNewlineOrEOF peeks past horizontal whitespace to decide
// whether a ';' is a statement boundary (spec: "unquoted ; followed by
// newline"). Any peeked bytes are pushed back.
func (t *scriptTokenizer) followedByNewlineOrEOF() bool {
	var peeked []rune
	result := true
	for {
		ch, _, err := t.r.ReadRune()
		if err != nil {
			break
		}
		peeked = append(peeked, ch)
		if ch == ' ' || ch == '\t' || ch == '\r' {
			continue
		}
		result = ch == '\n'
		break
	}
	// bufio.Reader.UnreadRune only undoes a single most-recent read, so
	// for multi-rune pushback we re-feed peeked runes through a small
	// MultiReader-backed wrapper instead of relying on repeated unread.
	if len(peeked) > 0 {
		t.pushback(peeked)
	}
	return result
}

// pushback re-queues runes in front of the reader's remaining input by
// wrapping it in a fresh bufio.Reader over a combined io.Reader. This
// only runs on the rare ';' lookahead path, not per rune, so the
// allocation cost is negligible relative to statement size.
func (t *scriptTokenizer) pushback(runes []rune) {
	buf := make([]byte, 0, len(runes)*4)
	for _, r := range runes {
		buf = append(buf, string(r)...)
	}
	t.r = bufio.NewReader(io.MultiReader(strings.NewReader(string(buf)), t.r))
}
