package knowledge

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

type Kind int

const (
	KindScalar Kind = iota
	KindObject
	KindArray
)

// Node is one value of a parsed record tree. Exactly one of Fields (objects),
// Items (arrays) or Text (scalars) is meaningful, selected by Kind.
type Node struct {
	Kind   Kind
	Fields []Field
	Items  []Node
	Text   string
	// IsString distinguishes string scalars from numbers, booleans and null.
	IsString bool
}

// Field is a named object member. Fields keep their document order.
type Field struct {
	Name  string
	Value Node
}

// Leaf is a string found by Extract together with the nearest enclosing field name.
type Leaf struct {
	Section string
	Text    string
}

var ErrInvalidJSON = errors.New("invalid JSON document")

// ParseJSON builds a Node tree from raw JSON, preserving object key order.
func ParseJSON(data []byte) (Node, error) {
	if !gjson.ValidBytes(data) {
		return Node{}, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

func fromResult(r gjson.Result) Node {
	switch {
	case r.IsObject():
		n := Node{Kind: KindObject}
		r.ForEach(func(key, value gjson.Result) bool {
			n.Fields = append(n.Fields, Field{Name: key.String(), Value: fromResult(value)})
			return true
		})
		return n
	case r.IsArray():
		n := Node{Kind: KindArray}
		r.ForEach(func(_, value gjson.Result) bool {
			n.Items = append(n.Items, fromResult(value))
			return true
		})
		return n
	default:
		return Node{Kind: KindScalar, Text: r.String(), IsString: r.Type == gjson.String}
	}
}

// Extract returns, in document order, every string stored under a field named
// field (case-insensitive). Each leaf is labelled with the name of the field
// that encloses the object holding it; array elements inherit the label of
// the field holding the array, and the root has an empty label.
func Extract(root Node, field string) []Leaf {
	var leaves []Leaf
	walk(root, "", field, &leaves)
	return leaves
}

func walk(n Node, section, field string, out *[]Leaf) {
	switch n.Kind {
	case KindObject:
		for _, f := range n.Fields {
			if strings.EqualFold(f.Name, field) && f.Value.Kind == KindScalar && f.Value.IsString {
				*out = append(*out, Leaf{Section: section, Text: f.Value.Text})
				continue
			}
			walk(f.Value, f.Name, field, out)
		}
	case KindArray:
		for _, item := range n.Items {
			walk(item, section, field, out)
		}
	}
}
