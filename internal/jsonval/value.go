// Package jsonval models JSON documents as a closed tagged union and
// implements the field comparison rules used by the expectation evaluator,
// including tolerant decimal comparison on numeric strings.
package jsonval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "invalid"
}

// Member is one key/value pair of an object. Object members keep the order
// they appeared in the document, so fixtures iterate deterministically.
type Member struct {
	Key   string
	Value Value
}

// Value is a parsed JSON value. The zero value is null.
type Value struct {
	kind Kind
	b    bool
	num  string // exact textual form, never a float64 round-trip
	str  string
	arr  []Value
	obj  []Member
	idx  map[string]int
}

func Null() Value             { return Value{kind: KindNull} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Number(s string) Value   { return Value{kind: KindNumber, num: s} }
func String(s string) Value   { return Value{kind: KindString, str: s} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

// Object builds an object value preserving the given member order.
func Object(members ...Member) Value {
	v := Value{kind: KindObject, obj: members, idx: make(map[string]int, len(members))}
	for i, m := range members {
		if _, dup := v.idx[m.Key]; !dup {
			v.idx[m.Key] = i
		}
	}
	return v
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsArray() bool { return v.kind == KindArray }

func (v Value) BoolVal() bool     { return v.b }
func (v Value) NumberVal() string { return v.num }
func (v Value) StringVal() string { return v.str }

// Len returns the element count for arrays and the member count for objects.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	}
	return 0
}

func (v Value) Elems() []Value    { return v.arr }
func (v Value) Members() []Member { return v.obj }

// Field looks up an object member by key.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	i, ok := v.idx[key]
	if !ok {
		return Value{}, false
	}
	return v.obj[i].Value, true
}

// Has reports whether an object has the named member.
func (v Value) Has(key string) bool {
	_, ok := v.Field(key)
	return ok
}

// String renders the canonical textual form of a value. This is the single
// place where "coerce to string" is defined: strings render bare, numbers
// keep their source text, bools are true/false, composites render as
// compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	}
	var sb strings.Builder
	v.writeJSON(&sb)
	return sb.String()
}

// MarshalJSON re-encodes the value exactly as parsed.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.JSON()), nil
}

// JSON renders the value as compact JSON (strings quoted).
func (v Value) JSON() string {
	var sb strings.Builder
	v.writeJSON(&sb)
	return sb.String()
}

func (v Value) writeJSON(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindNumber:
		sb.WriteString(v.num)
	case KindString:
		enc, _ := json.Marshal(v.str)
		sb.Write(enc)
	case KindArray:
		sb.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				sb.WriteByte(',')
			}
			e.writeJSON(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		sb.WriteByte('{')
		for i, m := range v.obj {
			if i > 0 {
				sb.WriteByte(',')
			}
			enc, _ := json.Marshal(m.Key)
			sb.Write(enc)
			sb.WriteByte(':')
			m.Value.writeJSON(sb)
		}
		sb.WriteByte('}')
	}
}

// Parse decodes a JSON document into a Value. Object member order and the
// exact textual form of numbers are preserved.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return fromToken(dec, tok)
}

func fromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t.String()), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var elems []Value
			for dec.More() {
				e, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, e)
			}
			if _, err := dec.Token(); err != nil { // closing ]
				return Value{}, err
			}
			return Array(elems...), nil
		case '{':
			var members []Member
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is not a string")
				}
				val, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				members = append(members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // closing }
				return Value{}, err
			}
			return Object(members...), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

// Equal reports deep structural equality. Numbers compare by numeric value
// so 3 equals 3.0; object member order is irrelevant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return numbersEqual(a.num, b.num)
	case KindString:
		return a.str == b.str
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for _, m := range a.obj {
			other, ok := b.Field(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}
