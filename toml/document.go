package toml

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/coaly-project/coaly/diag"
)

// Kind tags the node type of a document tree item.
type Kind int

const (
	KindString Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindDateTime
	KindTable
	KindArray
	KindTableArray
)

// Item is one node of the document tree. Tables and arrays-of-tables carry a
// mutability flag encoding whether they may still be extended by further
// headers or dotted key assignments.
type Item struct {
	kind    Kind
	vt      ValueType
	line    int
	mutable bool

	str   string
	i64   int64
	f64   float64
	b     bool
	tm    time.Time
	keys  []string
	table map[string]*Item
	array []*Item
}

func newTable(line int, mutable bool) *Item {
	return &Item{kind: KindTable, line: line, mutable: mutable, table: map[string]*Item{}}
}

func newTableArray(line int) *Item {
	return &Item{kind: KindTableArray, line: line, mutable: true}
}

// Kind returns the node type.
func (it *Item) Kind() Kind { return it.kind }

// ValueType returns the scanner type of a scalar node, NoValue otherwise.
func (it *Item) ValueType() ValueType { return it.vt }

// LineNr returns the source line the node was created on.
func (it *Item) LineNr() int { return it.line }

// AsString returns the string payload.
func (it *Item) AsString() (string, bool) { return it.str, it.kind == KindString }

// AsInt returns the integer payload.
func (it *Item) AsInt() (int64, bool) { return it.i64, it.kind == KindInteger }

// AsFloat returns the float payload.
func (it *Item) AsFloat() (float64, bool) { return it.f64, it.kind == KindFloat }

// AsBool returns the boolean payload.
func (it *Item) AsBool() (bool, bool) { return it.b, it.kind == KindBoolean }

// AsTime returns the date-time payload.
func (it *Item) AsTime() (time.Time, bool) { return it.tm, it.kind == KindDateTime }

// IsTable reports whether the node is a table.
func (it *Item) IsTable() bool { return it.kind == KindTable }

// IsArray reports whether the node is a value array.
func (it *Item) IsArray() bool { return it.kind == KindArray }

// IsTableArray reports whether the node is an array of tables.
func (it *Item) IsTableArray() bool { return it.kind == KindTableArray }

// Keys returns a table's keys in insertion order.
func (it *Item) Keys() []string { return it.keys }

// Child returns the child item under key.
func (it *Item) Child(key string) (*Item, bool) {
	if it.table == nil {
		return nil, false
	}
	c, ok := it.table[key]
	return c, ok
}

// Items returns the elements of an array or array of tables.
func (it *Item) Items() []*Item { return it.array }

func (it *Item) insert(key string, v *Item) bool {
	if _, exists := it.table[key]; exists {
		return false
	}
	it.table[key] = v
	it.keys = append(it.keys, key)
	return true
}

// last returns the most recently appended element of an array of tables.
func (it *Item) last() *Item { return it.array[len(it.array)-1] }

// Document is the parse result: a tree of tables, arrays and scalar values
// rooted in the implicit top-level table.
type Document struct {
	root *Item
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{root: newTable(0, true)}
}

// Root returns the top-level table.
func (d *Document) Root() *Item { return d.root }

// walkPrefix descends along the given keys, auto-creating missing tables as
// mutable tables and descending into the last element of arrays-of-tables.
func (d *Document) walkPrefix(keys []string, line int) (*Item, *diag.Diagnostic) {
	cur := d.root
	for _, k := range keys {
		next, ok := cur.table[k]
		if !ok {
			next = newTable(line, true)
			cur.insert(k, next)
			cur = next
			continue
		}
		switch next.kind {
		case KindTable:
			cur = next
		case KindTableArray:
			cur = next.last()
		case KindArray:
			return nil, docErr("E-Toml-KeyUsedForValueArray", line, k)
		default:
			return nil, docErr("E-Toml-KeyUsedForSimpleValue", line, k)
		}
	}
	return cur, nil
}

// InsertValue inserts a dotted key / value pair.
func (d *Document) InsertValue(keys []string, line int, v *Item) *diag.Diagnostic {
	parent, derr := d.walkPrefix(keys[:len(keys)-1], line)
	if derr != nil {
		return derr
	}
	last := keys[len(keys)-1]
	if !parent.insert(last, v) {
		return docErr("E-Toml-KeyAlreadyInUse", line, last)
	}
	return nil
}

// StartTable handles a [key] header and returns the table subsequent key
// value pairs are inserted into.
func (d *Document) StartTable(keys []string, line int) (*Item, *diag.Diagnostic) {
	parent, derr := d.walkPrefix(keys[:len(keys)-1], line)
	if derr != nil {
		return nil, derr
	}
	last := keys[len(keys)-1]
	existing, ok := parent.table[last]
	if !ok {
		t := newTable(line, false)
		parent.insert(last, t)
		return t, nil
	}
	switch existing.kind {
	case KindTable:
		if !existing.mutable {
			return nil, docErr("E-Toml-ImmutableTable", line, last)
		}
		existing.mutable = false
		return existing, nil
	case KindTableArray:
		return nil, docErr("E-Toml-KeyAlreadyInUse", line, last)
	case KindArray:
		return nil, docErr("E-Toml-KeyUsedForValueArray", line, last)
	default:
		return nil, docErr("E-Toml-KeyUsedForSimpleValue", line, last)
	}
}

// StartTableArray handles a [[key]] header: it appends a fresh element to an
// existing mutable array of tables, or creates the array with one element.
func (d *Document) StartTableArray(keys []string, line int) (*Item, *diag.Diagnostic) {
	parent, derr := d.walkPrefix(keys[:len(keys)-1], line)
	if derr != nil {
		return nil, derr
	}
	last := keys[len(keys)-1]
	existing, ok := parent.table[last]
	if !ok {
		arr := newTableArray(line)
		elem := newTable(line, false)
		arr.array = append(arr.array, elem)
		parent.insert(last, arr)
		return elem, nil
	}
	switch existing.kind {
	case KindTableArray:
		if !existing.mutable {
			return nil, docErr("E-Toml-ImmutableTable", line, last)
		}
		elem := newTable(line, false)
		existing.array = append(existing.array, elem)
		return elem, nil
	case KindTable:
		return nil, docErr("E-Toml-KeyAlreadyInUse", line, last)
	case KindArray:
		return nil, docErr("E-Toml-KeyUsedForValueArray", line, last)
	default:
		return nil, docErr("E-Toml-KeyUsedForSimpleValue", line, last)
	}
}

func docErr(id string, line int, key string) *diag.Diagnostic {
	return diag.NewError(id, strconv.Itoa(line), key)
}

//
// canonical JSON projection, used by round-trip tests
//

// JSON renders the document as its canonical JSON projection: scalars become
// {"type": ..., "value": ...} objects, tables become JSON objects and both
// array forms become JSON lists.
func (d *Document) JSON() ([]byte, error) {
	return json.Marshal(project(d.root))
}

func project(it *Item) interface{} {
	switch it.kind {
	case KindTable:
		m := map[string]interface{}{}
		for _, k := range it.keys {
			m[k] = project(it.table[k])
		}
		return m
	case KindArray, KindTableArray:
		l := make([]interface{}, 0, len(it.array))
		for _, e := range it.array {
			l = append(l, project(e))
		}
		return l
	case KindString:
		return scalar("string", it.str)
	case KindBoolean:
		return scalar("bool", strconv.FormatBool(it.b))
	case KindInteger:
		return scalar("integer", strconv.FormatInt(it.i64, 10))
	case KindFloat:
		return scalar("float", strconv.FormatFloat(it.f64, 'g', -1, 64))
	default:
		return scalar(it.vt.String(), it.tm.Format(time.RFC3339Nano))
	}
}

func scalar(typ, val string) map[string]string {
	return map[string]string{"type": typ, "value": val}
}
