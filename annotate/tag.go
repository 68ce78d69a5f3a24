package annotate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

// ValueKind discriminates the closed set of aux-tag value types handled by
// this package.  KindNone marks a signal-only tag: an ID with no value yet,
// either waiting to receive one from a per-read edit or suppressed
// entirely.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindText
	KindInt
	KindReal
)

// Value is a tagged union over {text, integer, real}.  The zero Value is
// signal-only.  Every site that serializes or applies a Value must
// dispatch exhaustively on Kind; unknown kinds are programming errors.
type Value struct {
	kind ValueKind
	text string
	i    int64
	r    float64
}

// TextValue returns a textual Value.  An empty string still yields
// KindText; such a value is a no-op when applied.
func TextValue(s string) Value { return Value{kind: KindText, text: s} }

// IntValue returns an integer Value.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// RealValue returns a floating-point Value.
func RealValue(v float64) Value { return Value{kind: KindReal, r: v} }

// ParseValue infers a Value's type from its literal: integer unless the
// literal contains a decimal point, else real, with fallback to text when
// numeric parsing fails.  The empty literal yields the signal-only Value.
func ParseValue(s string) Value {
	if s == "" {
		return Value{}
	}
	if !strings.ContainsRune(s, '.') {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return IntValue(v)
		}
	} else if v, err := strconv.ParseFloat(s, 64); err == nil {
		return RealValue(v)
	}
	return TextValue(s)
}

// Kind returns the value's type discriminant.
func (v Value) Kind() ValueKind { return v.kind }

// Text returns the textual payload; valid only for KindText.
func (v Value) Text() string { return v.text }

// Int returns the integer payload; valid only for KindInt.
func (v Value) Int() int64 { return v.i }

// Real returns the floating-point payload; valid only for KindReal.
func (v Value) Real() float64 { return v.r }

// Tag is a 2-character-identified, typed key-value annotation to apply to
// alignment records.
type Tag struct {
	ID    sam.Tag
	Value Value
}

// ParseTag parses an "ID" or "ID:VALUE" directive.  The ID must be exactly
// two characters; with a value, the colon must sit at position 2.
// Three-character inputs can satisfy neither form and are rejected.
func ParseTag(s string) (Tag, error) {
	if len(s) < 2 || len(s) == 3 || (len(s) > 3 && s[2] != ':') {
		return Tag{}, fmt.Errorf("invalid tag %q (required TAG:VALUE)", s)
	}
	t := Tag{ID: sam.Tag{s[0], s[1]}}
	if len(s) > 3 {
		t.Value = ParseValue(s[3:])
	}
	return t, nil
}

// SignalOnly reports whether the tag still awaits a per-read value.
func (t Tag) SignalOnly() bool { return t.Value.kind == KindNone }

// Apply writes the tag onto rec, overwriting an existing aux field with
// the same ID.  Signal-only tags and empty textual values write nothing.
func (t Tag) Apply(rec *sam.Record) error {
	var val interface{}
	switch t.Value.kind {
	case KindNone:
		return nil
	case KindText:
		if t.Value.text == "" {
			return nil
		}
		val = t.Value.text
	case KindInt:
		val = int(t.Value.i)
	case KindReal:
		val = float32(t.Value.r)
	default:
		return fmt.Errorf("unhandled tag value kind %d", t.Value.kind)
	}
	aux, err := sam.NewAux(t.ID, val)
	if err != nil {
		return errors.E(err, "cannot encode tag", t.ID.String())
	}
	for i, a := range rec.AuxFields {
		if a.Tag() == t.ID {
			rec.AuxFields[i] = aux
			return nil
		}
	}
	rec.AuxFields = append(rec.AuxFields, aux)
	return nil
}
