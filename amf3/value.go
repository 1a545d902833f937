package amf3

import "reflect"

// typeOf accepts either a reflect.Type directly or an arbitrary instance
// and returns its reflect.Type, so NewRegisteredObject can be called
// with whichever is more convenient at the call site.
func typeOf(v any) reflect.Type {
	if t, ok := v.(reflect.Type); ok {
		return t
	}
	if v == nil {
		return nil
	}
	return reflect.TypeOf(v)
}

// Undefined is the sentinel value for the AMF3 "undefined" datum. Null is
// represented by untyped nil instead, so the two stay distinguishable on
// encode (spec.md §3).
type Undefined struct{}

// XMLDocument is a raw XML document string (tag 0x07). The codec never
// parses it — spec.md §1 delegates XML parsing to an external DOM
// library the caller is responsible for invoking.
type XMLDocument string

// XMLString is a raw XML string (tag 0x0B), distinct from XMLDocument
// only in wire tag; same pass-through semantics.
type XMLString string

// ByteArray is an opaque byte blob (tag 0x0C).
type ByteArray []byte

// kvPair is one entry of an OrderedMap.
type kvPair struct {
	key   string
	value any
}

// OrderedMap is a string-keyed map that preserves insertion order, used
// for an Array's keyed part and an Object's attribute map. AMF3 requires
// stable iteration order across a single encode pass (spec.md §4.7); a
// plain Go map cannot provide that.
type OrderedMap struct {
	pairs []kvPair
	index map[string]int
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{index: make(map[string]int)}
}

// Set inserts or overwrites key, preserving its original position on
// overwrite and appending on first insertion.
func (m *OrderedMap) Set(key string, value any) {
	if i, ok := m.index[key]; ok {
		m.pairs[i].value = value
		return
	}
	m.index[key] = len(m.pairs)
	m.pairs = append(m.pairs, kvPair{key: key, value: value})
}

// Get returns the value for key and whether it was present.
func (m *OrderedMap) Get(key string) (any, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.pairs[i].value, true
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int { return len(m.pairs) }

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	keys := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		keys[i] = p.key
	}
	return keys
}

// Each calls fn for every entry in insertion order.
func (m *OrderedMap) Each(fn func(key string, value any)) {
	for _, p := range m.pairs {
		fn(p.key, p.value)
	}
}

// Array is an AMF3 array: an ordered dense part plus an ordered keyed
// part (spec.md §3). A purely ordinal array (no Keyed entries) encodes
// as dense-only.
type Array struct {
	Dense []any
	Keyed *OrderedMap
}

// NewArray returns an Array with an empty keyed part.
func NewArray(dense ...any) *Array {
	return &Array{Dense: dense, Keyed: NewOrderedMap()}
}

// ClassEncoding is the per-class wire encoding mode (spec.md §3/§4.6).
type ClassEncoding int

const (
	// EncodingStatic encodes only the declared attribute list, in order,
	// with no dynamic tail.
	EncodingStatic ClassEncoding = iota
	// EncodingDynamic encodes the declared attributes followed by a
	// zero-or-more dynamic key/value tail terminated by the empty string.
	EncodingDynamic
	// EncodingExternalizable delegates the entire body to a read/write
	// hook pair; the codec never inspects attrs for this mode.
	EncodingExternalizable
)

// ClassDefinition is the per-message trait descriptor for an Object: its
// external name, encoding mode, and attribute order (spec.md §3). The
// empty name denotes an anonymous class.
type ClassDefinition struct {
	Name     string
	Encoding ClassEncoding
	Attrs    []string
}

// key returns the structural identity used for class-definition
// deduplication within a ReferenceContext (spec.md §3's invariant: name,
// encoding, attrs together determine a single table entry).
func (c *ClassDefinition) key() string {
	k := c.Name + "\x00" + string(rune('0'+int(c.Encoding)))
	for _, a := range c.Attrs {
		k += "\x00" + a
	}
	return k
}

// Object is an AMF3 object: a class definition plus its attribute
// values, keyed by attribute name regardless of static/dynamic mode
// (spec.md §3). For an Externalizable class, Attrs is unused and
// External holds whatever the registered read hook produced.
type Object struct {
	Def      *ClassDefinition
	Attrs    *OrderedMap
	External any
}

// NewObject returns an anonymous dynamic Object with an empty attribute
// map, matching the decoder's "generic attribute bag" fallback
// (spec.md §4.8/§9).
func NewObject() *Object {
	return &Object{
		Def:   &ClassDefinition{Encoding: EncodingDynamic},
		Attrs: NewOrderedMap(),
	}
}

// NewRegisteredObject builds an Object for instanceType, drawing the
// class definition from registry (or the default, process-wide Registry
// when nil). If instanceType has no registered alias, the object is
// anonymous: empty name, dynamic mode, attribute names taken from attrs
// in its stable iteration order (spec.md §4.7).
func NewRegisteredObject(instanceType any, attrs *OrderedMap, registry *Registry) *Object {
	if registry == nil {
		registry = defaultRegistry
	}
	if attrs == nil {
		attrs = NewOrderedMap()
	}

	t := typeOf(instanceType)
	if t != nil {
		if entry, ok := registry.entryForType(t); ok {
			def := &ClassDefinition{
				Name:     entry.alias,
				Encoding: entry.encoding,
				Attrs:    entry.attrs,
			}
			if def.Encoding != EncodingExternalizable && len(def.Attrs) == 0 {
				def.Attrs = append([]string(nil), attrs.Keys()...)
			}
			return &Object{Def: def, Attrs: attrs}
		}
	}
	return &Object{
		Def:   &ClassDefinition{Encoding: EncodingDynamic, Attrs: append([]string(nil), attrs.Keys()...)},
		Attrs: attrs,
	}
}
