// Package binding keeps typed entity attributes synchronized with
// locations in a configuration document.
//
// Every entity (guest, OS block, device, ...) declares one Schema: an
// ordered table of Fields, each naming the document path it lives at, how
// its value is coerced, and optional validate, default and convert hooks.
// A Props value is the per-instance store evaluated through that table.
//
// Reads return the explicitly set value, falling back to the lazily
// computed default. Writes coerce, validate and convert before storing;
// a rejected write leaves the previous value in place. Serialize writes
// every resolvable field in schema order so output is reproducible, and
// Parse populates explicit values from an existing document.
package binding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jbweber/guestforge/internal/document"
)

// Kind selects how a field's value is coerced and represented in the
// document.
type Kind int

const (
	// KindString is stored as text or an attribute value.
	KindString Kind = iota
	// KindInt is a base 10 integer.
	KindInt
	// KindBool is represented by the presence of an element.
	KindBool
	// KindYesNo is a boolean written as "yes" or "no".
	KindYesNo
	// KindList is a list of strings written as repeated elements.
	KindList
	// KindChild delegates a document subtree to a nested entity.
	KindChild
)

// Child is a nested entity bound to its own subtree.
type Child interface {
	Serialize(n *document.Node) error
	Parse(n *document.Node) error
}

// Field describes one bound attribute of an entity of type O.
type Field[O any] struct {
	// Name identifies the field for Get and Set.
	Name string
	// Path locates the value relative to the entity's node. An empty path
	// on a KindChild field hands the entity's own node to the child.
	Path string
	Kind Kind

	// Validate rejects a coerced value before it is accepted.
	Validate func(o *O, v any) error
	// Default computes the value of an unset field on read.
	Default func(o *O) any
	// Convert runs on an accepted value before storage. It may update
	// other fields of o.
	Convert func(o *O, v any) any
	// Child returns the nested entity for KindChild fields.
	Child func(o *O) Child
}

// Schema is the ordered field table for one entity type.
type Schema[O any] struct {
	fields []Field[O]
	index  map[string]int
}

// NewSchema builds a schema. Field order is serialization order.
func NewSchema[O any](fields ...Field[O]) *Schema[O] {
	s := &Schema[O]{fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("binding: duplicate field %q", f.Name))
		}
		if f.Kind == KindChild && f.Child == nil {
			panic(fmt.Sprintf("binding: child field %q has no Child func", f.Name))
		}
		s.index[f.Name] = i
	}
	return s
}

// Fields returns the declared fields in order.
func (s *Schema[O]) Fields() []Field[O] {
	return s.fields
}

func (s *Schema[O]) lookup(name string) (Field[O], bool) {
	i, ok := s.index[name]
	if !ok {
		return Field[O]{}, false
	}
	return s.fields[i], true
}

func (s *Schema[O]) field(name string) Field[O] {
	f, ok := s.lookup(name)
	if !ok {
		panic(fmt.Sprintf("binding: unknown field %q", name))
	}
	return f
}

// Props stores the explicit field values of one entity.
type Props[O any] struct {
	schema *Schema[O]
	owner  *O
	values map[string]any
}

// NewProps binds a value store for owner.
func NewProps[O any](schema *Schema[O], owner *O) Props[O] {
	return Props[O]{schema: schema, owner: owner, values: make(map[string]any)}
}

// CloneFor copies the explicit values into a store bound to a new owner.
func (p *Props[O]) CloneFor(owner *O) Props[O] {
	c := NewProps(p.schema, owner)
	for k, v := range p.values {
		if l, ok := v.([]string); ok {
			v = append([]string(nil), l...)
		}
		c.values[k] = v
	}
	return c
}

// Get returns the explicit value of name, or its default when unset.
// A field with neither, or an undeclared name, yields nil.
func (p *Props[O]) Get(name string) any {
	f, ok := p.schema.lookup(name)
	if !ok {
		return nil
	}
	if v, ok := p.values[name]; ok {
		return v
	}
	if f.Default != nil {
		return f.Default(p.owner)
	}
	return nil
}

// IsSet reports whether name holds an explicit value.
func (p *Props[O]) IsSet(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Set validates and stores an explicit value. Setting nil clears the
// field so later reads fall back to the default. Undeclared names and
// child entities are rejected with ErrUnknownField.
func (p *Props[O]) Set(name string, v any) error {
	f, ok := p.schema.lookup(name)
	if !ok || f.Kind == KindChild {
		return &ValidationError{Field: name, Value: v, Err: ErrUnknownField}
	}
	if v == nil {
		delete(p.values, name)
		return nil
	}

	cv, err := coerce(f.Kind, v)
	if err != nil {
		return &ValidationError{Field: name, Value: v, Err: err}
	}
	if f.Validate != nil {
		if err := f.Validate(p.owner, cv); err != nil {
			return &ValidationError{Field: name, Value: v, Err: err}
		}
	}
	if f.Convert != nil {
		cv = f.Convert(p.owner, cv)
	}
	p.values[name] = cv
	return nil
}

// Put stores a value without validation or conversion. Converters use it
// for cross-field updates.
func (p *Props[O]) Put(name string, v any) {
	f := p.schema.field(name)
	if v == nil {
		delete(p.values, name)
		return
	}
	cv, err := coerce(f.Kind, v)
	if err != nil {
		panic(fmt.Sprintf("binding: put %q: %v", name, err))
	}
	p.values[name] = cv
}

// Clear removes the explicit value of name.
func (p *Props[O]) Clear(name string) {
	p.schema.field(name)
	delete(p.values, name)
}

// Text returns a string field, or "" when it resolves to nothing.
func (p *Props[O]) Text(name string) string {
	s, _ := p.Get(name).(string)
	return s
}

// Int returns an integer field and whether it resolved.
func (p *Props[O]) Int(name string) (int, bool) {
	i, ok := p.Get(name).(int)
	return i, ok
}

// Bool returns a boolean field and whether it resolved. An unresolved
// field is the third state of a tri-state flag.
func (p *Props[O]) Bool(name string) (bool, bool) {
	b, ok := p.Get(name).(bool)
	return b, ok
}

// Strings returns a list field.
func (p *Props[O]) Strings(name string) []string {
	l, _ := p.Get(name).([]string)
	return l
}

// Serialize writes every resolvable field beneath n in schema order.
func (p *Props[O]) Serialize(n *document.Node) error {
	for _, f := range p.schema.fields {
		if f.Kind == KindChild {
			sub := n.Node(f.Path, true)
			if err := f.Child(p.owner).Serialize(sub); err != nil {
				return fmt.Errorf("failed to serialize %s: %w", f.Name, err)
			}
			if f.Path != "" && sub.Empty() {
				sub.Detach()
			}
			continue
		}

		v := p.Get(f.Name)
		if v == nil {
			continue
		}
		switch f.Kind {
		case KindString:
			n.Set(f.Path, v.(string))
		case KindInt:
			n.Set(f.Path, strconv.Itoa(v.(int)))
		case KindBool:
			if v.(bool) {
				n.SetPresent(f.Path, true)
			}
		case KindYesNo:
			n.Set(f.Path, yesNo(v.(bool)))
		case KindList:
			if l := v.([]string); len(l) > 0 {
				n.SetValues(f.Path, l)
			}
		}
	}
	return nil
}

// Parse replaces the explicit values with those found beneath n.
// Absent paths leave the field unset.
func (p *Props[O]) Parse(n *document.Node) error {
	p.values = make(map[string]any)
	for _, f := range p.schema.fields {
		if f.Kind == KindChild {
			if sub := n.Node(f.Path, false); sub != nil {
				if err := f.Child(p.owner).Parse(sub); err != nil {
					return fmt.Errorf("failed to parse %s: %w", f.Name, err)
				}
			}
			continue
		}

		switch f.Kind {
		case KindBool:
			if n.Present(f.Path) {
				p.values[f.Name] = true
			}
		case KindList:
			if l := n.Values(f.Path); len(l) > 0 {
				p.values[f.Name] = l
			}
		default:
			raw, ok := n.Get(f.Path)
			if !ok {
				continue
			}
			v, err := coerce(f.Kind, raw)
			if err != nil {
				return fmt.Errorf("failed to parse %s at %s: %w", f.Name, f.Path, err)
			}
			p.values[f.Name] = v
		}
	}
	return nil
}

func coerce(kind Kind, v any) (any, error) {
	switch kind {
	case KindString:
		switch t := v.(type) {
		case string:
			return t, nil
		case fmt.Stringer:
			return t.String(), nil
		case int, int32, int64, uint, uint32, uint64:
			return fmt.Sprint(t), nil
		}
	case KindInt:
		switch t := v.(type) {
		case int:
			return t, nil
		case int32:
			return int(t), nil
		case int64:
			return int(t), nil
		case uint:
			return int(t), nil
		case uint32:
			return int(t), nil
		case uint64:
			return int(t), nil
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil {
				return nil, fmt.Errorf("not an integer: %q", t)
			}
			return i, nil
		}
	case KindBool, KindYesNo:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "yes", "on", "true", "1":
				return true, nil
			case "no", "off", "false", "0":
				return false, nil
			}
			return nil, fmt.Errorf("not a boolean: %q", t)
		}
	case KindList:
		switch t := v.(type) {
		case []string:
			return append([]string(nil), t...), nil
		case string:
			return []string{t}, nil
		}
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
