package toml

import (
	"strconv"

	"github.com/coaly-project/coaly/diag"
)

// Parse scans and parses a complete configuration file into a document tree.
// The first syntax or semantic violation aborts the parse.
func Parse(input string) (*Document, *diag.Diagnostic) {
	p := &parser{sc: NewScanner(input), doc: NewDocument()}
	if derr := p.run(); derr != nil {
		return nil, derr
	}
	return p.doc, nil
}

type parser struct {
	sc  *Scanner
	doc *Document
	// absolute key path of the current table or array-of-tables header
	ctx []string
}

func (p *parser) next(expectKey bool) (Token, *diag.Diagnostic) {
	return p.sc.Next(expectKey)
}

func unexpected(tok Token) *diag.Diagnostic {
	return diag.NewError("E-Toml-UnexpectedToken", strconv.Itoa(tok.Line), tok.String())
}

func (p *parser) run() *diag.Diagnostic {
	for {
		tok, derr := p.next(true)
		if derr != nil {
			return derr
		}
		switch tok.ID {
		case TokLineBreak:
		case TokEndOfInput:
			return nil
		case TokLDoubleBracket:
			if derr := p.header(tok.Line, true); derr != nil {
				return derr
			}
		case TokLBracket:
			if derr := p.header(tok.Line, false); derr != nil {
				return derr
			}
		case TokKey:
			if derr := p.keyValuePair(tok); derr != nil {
				return derr
			}
		default:
			return unexpected(tok)
		}
	}
}

// header parses the dotted key of a [key] or [[key]] line and registers the
// table or array-of-tables element in the document.
func (p *parser) header(line int, isArray bool) *diag.Diagnostic {
	keys, derr := p.dottedKey(nil)
	if derr != nil {
		return derr
	}
	closing, derr := p.next(true)
	if derr != nil {
		return derr
	}
	if isArray && closing.ID != TokRDoubleBracket ||
		!isArray && closing.ID != TokRBracket {
		return unexpected(closing)
	}
	if isArray {
		_, derr = p.doc.StartTableArray(keys, line)
	} else {
		_, derr = p.doc.StartTable(keys, line)
	}
	if derr != nil {
		return derr
	}
	p.ctx = keys
	return p.endOfLine()
}

// keyValuePair parses "key = value" with the key already scanned, inserting
// the value relative to the current header context.
func (p *parser) keyValuePair(first Token) *diag.Diagnostic {
	keys, derr := p.dottedKey(&first)
	if derr != nil {
		return derr
	}
	assign, derr := p.next(false)
	if derr != nil {
		return derr
	}
	if assign.ID != TokAssign {
		return unexpected(assign)
	}
	vtok, derr := p.next(false)
	if derr != nil {
		return derr
	}
	val, derr := p.value(vtok)
	if derr != nil {
		return derr
	}
	full := append(append([]string{}, p.ctx...), keys...)
	if derr := p.doc.InsertValue(full, first.Line, val); derr != nil {
		return derr
	}
	return p.endOfLine()
}

// dottedKey parses "key (. key)*". When first is nil the initial key token
// is read from the scanner.
func (p *parser) dottedKey(first *Token) ([]string, *diag.Diagnostic) {
	var keys []string
	if first == nil {
		tok, derr := p.next(true)
		if derr != nil {
			return nil, derr
		}
		if tok.ID != TokKey {
			return nil, unexpected(tok)
		}
		keys = append(keys, tok.Text)
	} else {
		keys = append(keys, first.Text)
	}
	for {
		save := *p.sc
		tok, derr := p.next(true)
		if derr != nil {
			return nil, derr
		}
		if tok.ID != TokDot {
			*p.sc = save
			return keys, nil
		}
		tok, derr = p.next(true)
		if derr != nil {
			return nil, derr
		}
		if tok.ID != TokKey {
			return nil, unexpected(tok)
		}
		keys = append(keys, tok.Text)
	}
}

func (p *parser) endOfLine() *diag.Diagnostic {
	tok, derr := p.next(true)
	if derr != nil {
		return derr
	}
	if tok.ID != TokLineBreak && tok.ID != TokEndOfInput {
		return unexpected(tok)
	}
	return nil
}

// value turns the scanned token into a document item, recursing into inline
// tables and arrays.
func (p *parser) value(tok Token) (*Item, *diag.Diagnostic) {
	switch tok.ID {
	case TokValue:
		return scalarItem(tok), nil
	case TokLBrace:
		return p.inlineTable(tok.Line)
	case TokLBracket:
		return p.array(tok.Line)
	}
	return nil, unexpected(tok)
}

func scalarItem(tok Token) *Item {
	it := &Item{vt: tok.Type, line: tok.Line}
	switch tok.Type {
	case TypeString:
		it.kind = KindString
		it.str = tok.Text
	case TypeBoolean:
		it.kind = KindBoolean
		it.b = tok.BoolVal
	case TypeInteger:
		it.kind = KindInteger
		it.i64 = tok.IntVal
	case TypeFloat:
		it.kind = KindFloat
		it.f64 = tok.FloatVal
	default:
		it.kind = KindDateTime
		it.tm = tok.TimeVal
	}
	return it
}

// inlineTable parses "{ key = value, ... }". Line breaks and trailing commas
// are not allowed inside inline tables.
func (p *parser) inlineTable(line int) (*Item, *diag.Diagnostic) {
	t := newTable(line, false)
	tok, derr := p.next(true)
	if derr != nil {
		return nil, derr
	}
	if tok.ID == TokRBrace {
		return t, nil
	}
	for {
		if tok.ID == TokLineBreak {
			return nil, diag.NewError("E-Toml-InlineTableLineBreak", strconv.Itoa(line))
		}
		if tok.ID != TokKey {
			return nil, unexpected(tok)
		}
		keys, derr := p.dottedKey(&tok)
		if derr != nil {
			return nil, derr
		}
		assign, derr := p.next(false)
		if derr != nil {
			return nil, derr
		}
		if assign.ID != TokAssign {
			return nil, unexpected(assign)
		}
		vtok, derr := p.next(false)
		if derr != nil {
			return nil, derr
		}
		val, derr := p.value(vtok)
		if derr != nil {
			return nil, derr
		}
		if derr := insertInto(t, keys, tok.Line, val); derr != nil {
			return nil, derr
		}
		sep, derr := p.next(true)
		if derr != nil {
			return nil, derr
		}
		switch sep.ID {
		case TokRBrace:
			return t, nil
		case TokComma:
		case TokLineBreak:
			return nil, diag.NewError("E-Toml-InlineTableLineBreak", strconv.Itoa(line))
		default:
			return nil, unexpected(sep)
		}
		tok, derr = p.next(true)
		if derr != nil {
			return nil, derr
		}
	}
}

// array parses "[ value, ... ]". Line breaks are allowed between elements
// and a trailing comma is accepted; a leading comma is not.
func (p *parser) array(line int) (*Item, *diag.Diagnostic) {
	arr := &Item{kind: KindArray, line: line}
	expectValue := true
	for {
		tok, derr := p.next(false)
		if derr != nil {
			return nil, derr
		}
		switch tok.ID {
		case TokLineBreak:
		case TokRBracket:
			return arr, nil
		case TokComma:
			if expectValue {
				return nil, unexpected(tok)
			}
			expectValue = true
		case TokEndOfInput:
			return nil, unexpected(tok)
		default:
			if !expectValue {
				return nil, unexpected(tok)
			}
			val, derr := p.value(tok)
			if derr != nil {
				return nil, derr
			}
			arr.array = append(arr.array, val)
			expectValue = false
		}
	}
}

// insertInto applies the dotted key insertion rules relative to an inline
// table under construction.
func insertInto(base *Item, keys []string, line int, v *Item) *diag.Diagnostic {
	cur := base
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur.table[k]
		if !ok {
			next = newTable(line, false)
			cur.insert(k, next)
			cur = next
			continue
		}
		switch next.kind {
		case KindTable:
			cur = next
		case KindArray:
			return docErr("E-Toml-KeyUsedForValueArray", line, k)
		default:
			return docErr("E-Toml-KeyUsedForSimpleValue", line, k)
		}
	}
	last := keys[len(keys)-1]
	if !cur.insert(last, v) {
		return docErr("E-Toml-KeyAlreadyInUse", line, last)
	}
	return nil
}
