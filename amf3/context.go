package amf3

import "fmt"

// Context is the per-message trio of reference tables: strings,
// complex values (arrays/objects/dates/xml/byte-arrays), and class
// definitions. It must never be shared across an encode pass and a
// decode pass running in opposite directions (spec.md §3); call Clear
// between independent messages on the same Context instance.
type Context struct {
	strings []string
	strIdx  map[string]int

	objects []any

	classes  []*ClassDefinition
	classIdx map[string]int
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{
		strIdx:   make(map[string]int),
		classIdx: make(map[string]int),
	}
}

// AddString appends a non-empty string to the string table and returns
// its index. The empty string is never added (spec.md §3) — it has a
// dedicated one-byte wire encoding and always fails here.
func (c *Context) AddString(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("cannot add empty string to reference table: %w", ErrValue)
	}
	idx := len(c.strings)
	c.strings = append(c.strings, s)
	c.strIdx[s] = idx
	return idx, nil
}

// GetString returns the string at idx.
func (c *Context) GetString(idx int) (string, error) {
	if idx < 0 || idx >= len(c.strings) {
		return "", fmt.Errorf("string index %d out of range [0,%d): %w", idx, len(c.strings), ErrReference)
	}
	return c.strings[idx], nil
}

// GetStringReference returns the index of s in the string table.
func (c *Context) GetStringReference(s string) (int, error) {
	idx, ok := c.strIdx[s]
	if !ok {
		return 0, fmt.Errorf("string %q not in reference table: %w", s, ErrReference)
	}
	return idx, nil
}

// AddObject appends v to the object table by identity and returns its
// index. Callers must append before recursing into v's sub-values so
// that self-references resolve to the just-assigned index (spec.md §4.2).
func (c *Context) AddObject(v any) (int, error) {
	idx := len(c.objects)
	c.objects = append(c.objects, v)
	return idx, nil
}

// GetObject returns the object at idx.
func (c *Context) GetObject(idx int) (any, error) {
	if idx < 0 || idx >= len(c.objects) {
		return nil, fmt.Errorf("object index %d out of range [0,%d): %w", idx, len(c.objects), ErrReference)
	}
	return c.objects[idx], nil
}

// GetObjectReference returns the index of v in the object table, matched
// by identity for reference types and by equality for comparable
// container-less values (spec.md §9: reference identity vs equality).
func (c *Context) GetObjectReference(v any) (int, error) {
	for i, o := range c.objects {
		if sameIdentity(o, v) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("object not in reference table: %w", ErrReference)
}

// sameIdentity compares two object-table entries the way the Encoder
// needs to: pointer-held composites (Array, Object, ByteArray) by
// pointer/slice-header identity, everything else (e.g. time.Time dates)
// by value equality.
func sameIdentity(a, b any) bool {
	switch av := a.(type) {
	case *Array:
		bv, ok := b.(*Array)
		return ok && av == bv
	case *Object:
		bv, ok := b.(*Object)
		return ok && av == bv
	case ByteArray:
		bv, ok := b.(ByteArray)
		return ok && sameBacking(av, bv)
	default:
		return a == b
	}
}

func sameBacking(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}

// AddClassDefinition looks up def by structural identity (name,
// encoding, attrs) and appends on miss, returning its index either way
// (spec.md §4.2 rule 4).
// isNew reports whether this call is the first to see this structural
// identity; the caller uses it to decide between emitting an inline
// class-def body and a classIndex back-reference.
func (c *Context) AddClassDefinition(def *ClassDefinition) (idx int, isNew bool) {
	k := def.key()
	if idx, ok := c.classIdx[k]; ok {
		return idx, false
	}
	idx = len(c.classes)
	c.classes = append(c.classes, def)
	c.classIdx[k] = idx
	return idx, true
}

// GetClassDefinition returns the class definition at idx.
func (c *Context) GetClassDefinition(idx int) (*ClassDefinition, error) {
	if idx < 0 || idx >= len(c.classes) {
		return nil, fmt.Errorf("class index %d out of range [0,%d): %w", idx, len(c.classes), ErrReference)
	}
	return c.classes[idx], nil
}

// Clear resets all three tables, as required between independent
// messages sharing a Context instance (spec.md §3).
func (c *Context) Clear() {
	c.strings = nil
	c.strIdx = make(map[string]int)
	c.objects = nil
	c.classes = nil
	c.classIdx = make(map[string]int)
}

// Copy returns a fresh, empty Context — matching PyAMF's shallow-copy
// semantics where a copied Context starts with empty tables rather than
// inheriting the source's entries (original_source/pyamf/tests/test_amf3.py
// ContextTestCase.test_copy).
func (c *Context) Copy() *Context {
	return NewContext()
}
