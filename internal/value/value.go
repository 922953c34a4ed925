// Package value defines the closed set of field value kinds and maps them
// onto cty types. A field value is always a cty.Value; the error-marker kind
// from failed formula evaluation is represented as a cty mark so that error
// status flows through expression evaluation into dependent fields.
package value

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Kind identifies one of the schema-defined value kinds a field may hold.
type Kind string

const (
	Text       Kind = "text"
	Number     Kind = "number"
	Date       Kind = "date"
	Bool       Kind = "bool"
	Reference  Kind = "reference"
	Collection Kind = "collection"
)

// DateLayout is the canonical wire format for date-kind values.
const DateLayout = "2006-01-02"

// KindFromString parses a schema kind tag, rejecting anything outside the
// closed kind set.
func KindFromString(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Text, Number, Date, Bool, Reference, Collection:
		return k, nil
	default:
		return "", fmt.Errorf("unknown field kind %q", s)
	}
}

// CtyType returns the cty type that values of this kind are stored as.
// Dates and references are strings on the wire; collections are dynamically
// typed so tuples and lists of any element type pass through unchanged.
func (k Kind) CtyType() cty.Type {
	switch k {
	case Text, Date, Reference:
		return cty.String
	case Number:
		return cty.Number
	case Bool:
		return cty.Bool
	case Collection:
		return cty.DynamicPseudoType
	default:
		panic(fmt.Sprintf("value: kind %q has no cty type", k))
	}
}

// Null returns the null value of this kind's type.
func (k Kind) Null() cty.Value {
	return cty.NullVal(k.CtyType())
}

// Convert coerces an arbitrary cty value into this kind's storage type.
// Date-kind values are additionally checked against DateLayout when known.
func (k Kind) Convert(v cty.Value) (cty.Value, error) {
	converted, err := convert.Convert(v, k.CtyType())
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot use %s as %s: %w", v.Type().FriendlyName(), k, err)
	}
	if k == Date && converted.IsKnown() && !converted.IsNull() {
		if _, err := time.Parse(DateLayout, converted.AsString()); err != nil {
			return cty.NilVal, fmt.Errorf("invalid date %q: expected %s", converted.AsString(), DateLayout)
		}
	}
	return converted, nil
}

// ErrorMark is the cty mark attached to a field value when its formula failed
// to evaluate. Marks propagate through cty operations, so any field computed
// from an error-marked value comes out error-marked as well.
type ErrorMark struct {
	Msg string
}

// ErrorVal builds the defined "error" value for a field of the given type:
// an unknown value carrying an ErrorMark with the failure message.
func ErrorVal(ty cty.Type, msg string) cty.Value {
	return cty.UnknownVal(ty).Mark(ErrorMark{Msg: msg})
}

// IsError reports whether v carries an ErrorMark, either from its own failed
// evaluation or propagated from an upstream field.
func IsError(v cty.Value) bool {
	_, ok := errorMark(v)
	return ok
}

// ErrorMessage returns the message of the first ErrorMark on v, if any.
func ErrorMessage(v cty.Value) (string, bool) {
	m, ok := errorMark(v)
	return m.Msg, ok
}

func errorMark(v cty.Value) (ErrorMark, bool) {
	for m := range v.Marks() {
		if em, ok := m.(ErrorMark); ok {
			return em, true
		}
	}
	return ErrorMark{}, false
}

// Equal compares two field values for exact equality, ignoring marks.
// Unknown (error-marked) values never compare equal to anything, including
// other unknowns, so a failed computation can never satisfy a convergence
// check against an override value.
func Equal(a, b cty.Value) bool {
	a, _ = a.UnmarkDeep()
	b, _ = b.UnmarkDeep()
	if !a.IsWhollyKnown() || !b.IsWhollyKnown() {
		return false
	}
	return a.RawEquals(b)
}
