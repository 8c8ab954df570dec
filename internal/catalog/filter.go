package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ConstraintKind tags the variant held by a Constraint.
type ConstraintKind uint8

const (
	// NoConstraint matches every record.
	NoConstraint ConstraintKind = iota
	// EqualsConstraint matches one value.
	EqualsConstraint
	// AnyOfConstraint matches any value of a list.
	AnyOfConstraint
)

// Constraint restricts one field of a record. The zero value is
// NoConstraint. Values are compared after trimming whitespace on both sides;
// BlankValue matches an empty field.
type Constraint struct {
	kind   ConstraintKind
	values []string
}

// Equals constrains a field to v. An empty v is no constraint.
func Equals(v string) Constraint {
	v = strings.TrimSpace(v)
	if v == "" {
		return Constraint{}
	}
	return Constraint{kind: EqualsConstraint, values: []string{v}}
}

// AnyOf constrains a field to any of vs. An empty list, or a list holding an
// empty value, is no constraint: an empty value places no restriction on its
// own, so it places none as part of a union either.
func AnyOf(vs ...string) Constraint {
	if len(vs) == 0 {
		return Constraint{}
	}
	values := make([]string, len(vs))
	for i, v := range vs {
		v = strings.TrimSpace(v)
		if v == "" {
			return Constraint{}
		}
		values[i] = v
	}
	return Constraint{kind: AnyOfConstraint, values: values}
}

// Kind returns the variant tag.
func (c Constraint) Kind() ConstraintKind { return c.kind }

// Values returns the trimmed constraint values.
func (c Constraint) Values() []string { return c.values }

// IsZero reports whether c places no restriction.
func (c Constraint) IsZero() bool { return c.kind == NoConstraint }

// Matches reports whether a record value satisfies c.
func (c Constraint) Matches(value string) bool {
	if c.kind == NoConstraint {
		return true
	}
	value = strings.TrimSpace(value)
	for _, want := range c.values {
		if want == BlankValue {
			if value == "" {
				return true
			}
			continue
		}
		if value == want {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts null, a string, or an array of strings (null
// elements are ignored).
func (c *Constraint) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = Constraint{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Equals(s)
		return nil
	case len(data) > 0 && data[0] == '[':
		var list []*string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("filter values must be strings: %w", err)
		}
		vs := make([]string, 0, len(list))
		for _, v := range list {
			if v != nil {
				vs = append(vs, *v)
			}
		}
		*c = AnyOf(vs...)
		return nil
	}
	return fmt.Errorf("filter value must be a string or a list of strings, got %s", data)
}

// MarshalJSON is the inverse of UnmarshalJSON.
func (c Constraint) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case EqualsConstraint:
		return json.Marshal(c.values[0])
	case AnyOfConstraint:
		return json.Marshal(c.values)
	}
	return []byte("null"), nil
}

// Constraints holds at most one constraint per facet field.
type Constraints map[Field]Constraint

// filterAliases maps request keys that differ from field keys.
var filterAliases = map[string]Field{
	"manufacturer": ManufacturerName,
}

// ParseFilterKey resolves a request filter key to a facet field.
func ParseFilterKey(key string) (Field, bool) {
	f, ok := filterAliases[key]
	if !ok {
		f, ok = ParseField(key)
	}
	if !ok || !IsFacet(f) {
		return 0, false
	}
	return f, true
}

// Set adds or replaces the constraint on f.
func (cs Constraints) Set(f Field, c Constraint) error {
	if !IsFacet(f) {
		return fmt.Errorf("field %q is not filterable", f.Key())
	}
	cs[f] = c
	return nil
}

// Active reports whether any constraint restricts records.
func (cs Constraints) Active() bool {
	for _, c := range cs {
		if !c.IsZero() {
			return true
		}
	}
	return false
}

// UnmarshalJSON decodes {"manufacturer_name": "X", "sales_status": ["A", "(blank)"]}.
// Keys that are not filterable fields are ignored. When a field is sent
// under both its own key and an alias, the field key wins.
func (cs *Constraints) UnmarshalJSON(data []byte) error {
	var raw map[string]Constraint
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Constraints, len(raw))
	for key, c := range raw {
		f, ok := ParseFilterKey(key)
		if !ok {
			continue
		}
		if _, canonical := raw[f.Key()]; canonical && key != f.Key() {
			continue
		}
		out[f] = c
	}
	*cs = out
	return nil
}

// ApplyFilters returns the records matching every constraint, in input
// order. Without active constraints records is returned as is.
func ApplyFilters(records []Record, cs Constraints) []Record {
	type check struct {
		field Field
		c     Constraint
	}
	var checks []check
	for _, f := range FacetFields {
		if c, ok := cs[f]; ok && !c.IsZero() {
			checks = append(checks, check{f, c})
		}
	}
	if len(checks) == 0 {
		return records
	}

	out := make([]Record, 0)
	for _, r := range records {
		ok := true
		for _, ch := range checks {
			if !ch.c.Matches(r.Get(ch.field)) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}
