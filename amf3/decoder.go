package amf3

import (
	"fmt"
)

// Decoder consumes AMF3 bytes and produces a value tree, using a
// Context for reference resolution and a Registry for class-alias
// lookups. Never mutates the Registry (spec.md §4.8).
type Decoder struct {
	stream   *ByteStream
	context  *Context
	registry *Registry
}

// NewDecoder returns a Decoder reading from stream. A nil registry uses
// the default, process-wide Registry.
func NewDecoder(stream *ByteStream, context *Context, registry *Registry) *Decoder {
	if registry == nil {
		registry = defaultRegistry
	}
	return &Decoder{stream: stream, context: context, registry: registry}
}

// ReadType returns the next tag at the cursor without consuming the
// value body, failing with DecodeError on an unknown tag.
func (d *Decoder) ReadType() (Marker, error) {
	pos := d.stream.Tell()
	b, err := d.stream.ReadU8()
	if err != nil {
		return 0, err
	}
	m := Marker(b)
	if err := d.stream.Seek(pos); err != nil {
		return 0, err
	}
	if !validMarker(m) {
		return 0, fmt.Errorf("unknown type tag 0x%02x: %w", b, ErrDecode)
	}
	return m, nil
}

func validMarker(m Marker) bool {
	for _, v := range ActionscriptTypes {
		if v == m {
			return true
		}
	}
	return false
}

// ReadElement reads one tagged value at the cursor and advances past it.
func (d *Decoder) ReadElement() (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				err = fmt.Errorf("amf3 decode panic: %v: %w", r, ErrDecode)
			}
		}
	}()
	return d.readValue(), nil
}

func (d *Decoder) readValue() any {
	b, err := d.stream.ReadU8()
	if err != nil {
		panic(err)
	}
	switch Marker(b) {
	case MarkerUndefined:
		return amf3Undefined
	case MarkerNull:
		return nil
	case MarkerBoolFalse:
		return false
	case MarkerBoolTrue:
		return true
	case MarkerInteger:
		v, n, err := decodeSignedU29(d.stream.buf, d.stream.pos)
		if err != nil {
			panic(err)
		}
		d.stream.pos += n
		return v
	case MarkerDouble:
		v, err := d.stream.ReadDouble()
		if err != nil {
			panic(err)
		}
		return v
	case MarkerString:
		return d.readStringBody()
	case MarkerXmlDocument:
		return XMLDocument(d.readStringBody())
	case MarkerDate:
		return d.readDate()
	case MarkerArray:
		return d.readArray()
	case MarkerObject:
		return d.readObject()
	case MarkerXmlString:
		return XMLString(d.readStringBody())
	case MarkerByteArray:
		return d.readByteArray()
	default:
		panic(fmt.Errorf("unknown type tag 0x%02x: %w", b, ErrDecode))
	}
}

var amf3Undefined = Undefined{}

// readStringBody reads the U29 header + body shared by String, XML and
// XMLString (spec.md §4.4): bit0=1 inline (length follows), bit0=0
// reference (index follows). The empty string is inline with no table
// entry.
func (d *Decoder) readStringBody() string {
	header, err := d.stream.ReadU29()
	if err != nil {
		panic(err)
	}
	if header&1 == 0 {
		idx := int(header >> 1)
		s, err := d.context.GetString(idx)
		if err != nil {
			panic(err)
		}
		return s
	}
	length := int(header >> 1)
	if length == 0 {
		return ""
	}
	b, err := d.stream.ReadBytes(length)
	if err != nil {
		panic(err)
	}
	s := string(b)
	if _, err := d.context.AddString(s); err != nil {
		panic(err)
	}
	return s
}

// readDate reads the Date tag body: reference/inline header, and if
// inline, an 8-byte epoch-millisecond double. Dates participate in the
// object table (spec.md §9).
func (d *Decoder) readDate() any {
	header, err := d.stream.ReadU29()
	if err != nil {
		panic(err)
	}
	if header&1 == 0 {
		idx := int(header >> 1)
		v, err := d.context.GetObject(idx)
		if err != nil {
			panic(err)
		}
		return v
	}
	ms, err := d.stream.ReadDouble()
	if err != nil {
		panic(err)
	}
	t := timeFromEpochMillis(ms)
	if _, err := d.context.AddObject(t); err != nil {
		panic(err)
	}
	return t
}

// readByteArray reads the ByteArray tag body.
func (d *Decoder) readByteArray() any {
	header, err := d.stream.ReadU29()
	if err != nil {
		panic(err)
	}
	if header&1 == 0 {
		idx := int(header >> 1)
		v, err := d.context.GetObject(idx)
		if err != nil {
			panic(err)
		}
		return v
	}
	length := int(header >> 1)
	raw, err := d.stream.ReadBytes(length)
	if err != nil {
		panic(err)
	}
	b := ByteArray(append([]byte(nil), raw...))
	if _, err := d.context.AddObject(b); err != nil {
		panic(err)
	}
	return b
}

// readArray reads the Array tag body: reference/inline header, keyed
// part terminated by the empty-string marker, then the dense part
// (spec.md §4.5). Inline arrays are added to the object table before
// their body is read so self-references resolve.
func (d *Decoder) readArray() any {
	header, err := d.stream.ReadU29()
	if err != nil {
		panic(err)
	}
	if header&1 == 0 {
		idx := int(header >> 1)
		v, err := d.context.GetObject(idx)
		if err != nil {
			panic(err)
		}
		return v
	}
	denseCount := int(header >> 1)
	arr := &Array{Keyed: NewOrderedMap()}
	if _, err := d.context.AddObject(arr); err != nil {
		panic(err)
	}

	for {
		// The keyed part's empty-string terminator and an inline empty
		// string share the same header encoding (spec.md §4.4/§4.5), so
		// reading a key via readStringBody and checking for "" both
		// detects the terminator and consumes exactly the right bytes.
		key := d.readStringBody()
		if key == "" {
			break
		}
		arr.Keyed.Set(key, d.readValue())
	}

	arr.Dense = make([]any, denseCount)
	for i := 0; i < denseCount; i++ {
		arr.Dense[i] = d.readValue()
	}
	return arr
}

// readObject reads the Object tag body: header, class-def (inline or
// reference), and attributes in the mode the class-def names
// (spec.md §4.6). Anonymous (empty-name) class-defs always resolve to a
// generic attribute bag; named defs require a registered alias
// (spec.md §4.8).
func (d *Decoder) readObject() any {
	header, err := d.stream.ReadU29()
	if err != nil {
		panic(err)
	}
	if header&1 == 0 {
		idx := int(header >> 1)
		v, err := d.context.GetObject(idx)
		if err != nil {
			panic(err)
		}
		return v
	}

	obj := &Object{}
	if _, err := d.context.AddObject(obj); err != nil {
		panic(err)
	}

	var def *ClassDefinition
	if header&0b10 == 0 {
		// Class-def reference: (classIndex<<2)|01.
		classIdx := int(header >> 2)
		def, err = d.context.GetClassDefinition(classIdx)
		if err != nil {
			panic(err)
		}
	} else {
		externalizable := header&0b0100 != 0
		dynamic := header&0b1000 != 0
		nAttrs := int(header >> 4)

		name := d.readStringBody()
		def = &ClassDefinition{Name: name}
		switch {
		case externalizable:
			def.Encoding = EncodingExternalizable
		case dynamic:
			def.Encoding = EncodingDynamic
			def.Attrs = make([]string, nAttrs)
			for i := 0; i < nAttrs; i++ {
				def.Attrs[i] = d.readStringBody()
			}
		default:
			def.Encoding = EncodingStatic
			def.Attrs = make([]string, nAttrs)
			for i := 0; i < nAttrs; i++ {
				def.Attrs[i] = d.readStringBody()
			}
		}
		d.context.AddClassDefinition(def)
	}
	obj.Def = def

	if def.Name != "" {
		if _, _, ok := d.registry.buildClassDefinition(def.Name); !ok {
			panic(fmt.Errorf("class %q has no registered alias: %w", def.Name, ErrUnknownClassAlias))
		}
	}

	switch def.Encoding {
	case EncodingExternalizable:
		entry, ok := d.registry.entryForTypeByAlias(def.Name)
		if !ok || entry.readHook == nil {
			panic(fmt.Errorf("class %q has no externalizable read hook: %w", def.Name, ErrUnknownClassAlias))
		}
		v, err := entry.readHook(d.stream)
		if err != nil {
			panic(err)
		}
		obj.External = v
	case EncodingDynamic:
		obj.Attrs = NewOrderedMap()
		for _, name := range def.Attrs {
			obj.Attrs.Set(name, d.readValue())
		}
		for {
			key := d.readStringBody()
			if key == "" {
				break
			}
			obj.Attrs.Set(key, d.readValue())
		}
	default: // EncodingStatic
		obj.Attrs = NewOrderedMap()
		for _, name := range def.Attrs {
			obj.Attrs.Set(name, d.readValue())
		}
	}
	return obj
}
