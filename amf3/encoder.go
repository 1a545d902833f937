package amf3

import (
	"fmt"
	"time"
)

// Encoder consumes a value tree and emits AMF3 bytes to a ByteStream,
// using a Context for string/object/class-def deduplication and a
// Registry for class-definition lookups. Mirrors the teacher's
// single-purpose codec-struct shape (amf0.Parser) but for writing.
type Encoder struct {
	stream   *ByteStream
	context  *Context
	registry *Registry
}

// NewEncoder returns an Encoder writing to stream, using context for
// reference bookkeeping and registry for class-alias lookups. A nil
// registry uses the default, process-wide Registry.
func NewEncoder(stream *ByteStream, context *Context, registry *Registry) *Encoder {
	if registry == nil {
		registry = defaultRegistry
	}
	return &Encoder{stream: stream, context: context, registry: registry}
}

// WriteElement encodes value to the stream. writeAsReference, when
// omitted or true, lets a value that already has an object-table entry
// encode as a compact back-reference; passing false for one call suppresses
// that shortcut (the value is still appended to the table for
// subsequent calls), per spec.md §4.7's writeAsReference switch.
func (e *Encoder) WriteElement(value any, writeAsReference ...bool) (err error) {
	asRef := true
	if len(writeAsReference) > 0 {
		asRef = writeAsReference[0]
	}
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				err = fmt.Errorf("amf3 encode panic: %v: %w", r, ErrEncode)
			}
		}
	}()
	e.writeValue(value, asRef)
	return nil
}

func (e *Encoder) writeValue(value any, asRef bool) {
	switch v := value.(type) {
	case Undefined:
		panic(fmt.Errorf("undefined is not emittable through the encoder: %w", ErrEncode))
	case nil:
		e.stream.WriteU8(byte(MarkerNull))
	case bool:
		if v {
			e.stream.WriteU8(byte(MarkerBoolTrue))
		} else {
			e.stream.WriteU8(byte(MarkerBoolFalse))
		}
	case int:
		e.writeNumber(int64(v))
	case int32:
		e.writeNumber(int64(v))
	case int64:
		e.writeNumber(v)
	case float32:
		e.writeDoubleOrInt(float64(v))
	case float64:
		e.writeDoubleOrInt(v)
	case string:
		e.writeString(v)
	case XMLDocument:
		e.writeStringLike(byte(MarkerXmlDocument), string(v))
	case XMLString:
		e.writeStringLike(byte(MarkerXmlString), string(v))
	case time.Time:
		e.writeDate(v, asRef)
	case ByteArray:
		e.writeByteArray(v, asRef)
	case *Array:
		e.writeArray(v, asRef)
	case *Object:
		e.writeObject(v, asRef)
	default:
		panic(fmt.Errorf("value of type %T is not representable in AMF3: %w", value, ErrEncode))
	}
}

// writeNumber emits an Integer if it fits the signed-29 range, else a
// Double (spec.md §4.1).
func (e *Encoder) writeNumber(n int64) {
	if fitsSignedU29(n) {
		e.stream.WriteU8(byte(MarkerInteger))
		b, err := encodeSignedU29(int32(n))
		if err != nil {
			panic(err)
		}
		e.stream.WriteBytes(b)
		return
	}
	e.stream.WriteU8(byte(MarkerDouble))
	e.stream.WriteDouble(float64(n))
}

// writeDoubleOrInt applies the same Integer/Double split to a float
// that happens to carry an exact integral value in range.
func (e *Encoder) writeDoubleOrInt(f float64) {
	if i := int64(f); float64(i) == f && fitsSignedU29(i) {
		e.writeNumber(i)
		return
	}
	e.stream.WriteU8(byte(MarkerDouble))
	e.stream.WriteDouble(f)
}

// writeString emits the String tag with reference/inline header and
// shares the string table with XML strings.
func (e *Encoder) writeString(s string) {
	e.writeStringLike(byte(MarkerString), s)
}

func (e *Encoder) writeStringLike(tag byte, s string) {
	e.stream.WriteU8(tag)
	e.writeStringBody(s)
}

// writeStringBody emits the U29 header + body shared by String, XML and
// XMLString (spec.md §4.4). The empty string is always `0x01` and never
// added to the table.
func (e *Encoder) writeStringBody(s string) {
	if s == "" {
		if err := e.stream.WriteU29(1); err != nil {
			panic(err)
		}
		return
	}
	if idx, err := e.context.GetStringReference(s); err == nil {
		if err := e.stream.WriteU29(uint32(idx) << 1); err != nil {
			panic(err)
		}
		return
	}
	if err := e.stream.WriteU29((uint32(len(s)) << 1) | 1); err != nil {
		panic(err)
	}
	e.stream.WriteBytes([]byte(s))
	if _, err := e.context.AddString(s); err != nil {
		panic(err)
	}
}

// writeDate emits the Date tag, reference/inline header, and — if
// inline — the 8-byte epoch-millisecond double (spec.md §4.3). Dates
// participate in the object table (spec.md §9).
func (e *Encoder) writeDate(t time.Time, asRef bool) {
	e.stream.WriteU8(byte(MarkerDate))
	if asRef {
		if idx, err := e.context.GetObjectReference(t); err == nil {
			if err := e.stream.WriteU29(uint32(idx) << 1); err != nil {
				panic(err)
			}
			return
		}
	}
	if err := e.stream.WriteU29(1); err != nil {
		panic(err)
	}
	if _, err := e.context.AddObject(t); err != nil {
		panic(err)
	}
	e.stream.WriteDouble(epochMillis(t))
}

// writeByteArray emits the ByteArray tag, reference/inline header, and
// raw bytes (spec.md §4.3).
func (e *Encoder) writeByteArray(b ByteArray, asRef bool) {
	e.stream.WriteU8(byte(MarkerByteArray))
	if asRef {
		if idx, err := e.context.GetObjectReference(b); err == nil {
			if err := e.stream.WriteU29(uint32(idx) << 1); err != nil {
				panic(err)
			}
			return
		}
	}
	if err := e.stream.WriteU29((uint32(len(b)) << 1) | 1); err != nil {
		panic(err)
	}
	if _, err := e.context.AddObject(b); err != nil {
		panic(err)
	}
	e.stream.WriteBytes(b)
}

// writeArray emits the Array tag. Inline arrays append to the object
// table before their body is written so self-references resolve
// (spec.md §4.2/§4.5). A keyed part containing the empty-string key
// fails with EncodeError.
func (e *Encoder) writeArray(a *Array, asRef bool) {
	e.stream.WriteU8(byte(MarkerArray))
	if asRef {
		if idx, err := e.context.GetObjectReference(a); err == nil {
			if err := e.stream.WriteU29(uint32(idx) << 1); err != nil {
				panic(err)
			}
			return
		}
	}
	if err := e.stream.WriteU29((uint32(len(a.Dense)) << 1) | 1); err != nil {
		panic(err)
	}
	if _, err := e.context.AddObject(a); err != nil {
		panic(err)
	}

	if a.Keyed != nil {
		if _, empty := a.Keyed.Get(""); empty {
			panic(fmt.Errorf("array keyed part must not contain the empty-string key: %w", ErrEncode))
		}
		a.Keyed.Each(func(key string, value any) {
			e.writeStringBody(key)
			e.writeValue(value, true)
		})
	}
	if err := e.stream.WriteU29(1); err != nil { // empty-string terminator
		panic(err)
	}
	for _, v := range a.Dense {
		e.writeValue(v, true)
	}
}

// writeObject emits the Object tag: header, class-def, and attributes
// in the mode the class definition names (spec.md §4.6). The instance
// is appended to the object table before the body is emitted so
// backreferences within the body resolve.
func (e *Encoder) writeObject(o *Object, asRef bool) {
	e.stream.WriteU8(byte(MarkerObject))
	if asRef {
		if idx, err := e.context.GetObjectReference(o); err == nil {
			// Whole-object reference: bit0=0, remaining bits are the
			// object-table index (spec.md §4.2) — distinct from the
			// class-def-only reference header below, which keeps bit0=1.
			if err := e.stream.WriteU29(uint32(idx) << 1); err != nil {
				panic(err)
			}
			return
		}
	}

	def := o.Def
	if def == nil {
		def = &ClassDefinition{Encoding: EncodingDynamic}
	}

	if _, err := e.context.AddObject(o); err != nil {
		panic(err)
	}

	classIdx, isNew := e.context.AddClassDefinition(def)
	if !isNew {
		// Class definition already seen: reference it and reuse its
		// body kind (spec.md §4.6 "Reference" mode / §9 Open Question).
		if err := e.stream.WriteU29(uint32(classIdx)<<2 | 0b01); err != nil {
			panic(err)
		}
		e.writeObjectAttrs(def)
		return
	}

	e.writeInlineClassHeader(def)
	e.writeStringBody(def.Name)
	if def.Encoding != EncodingExternalizable {
		for _, name := range def.Attrs {
			e.writeStringBody(name)
		}
	}
	e.writeObjectAttrs(def)
}

// writeInlineClassHeader emits the packed header for a fresh inline
// class-def (spec.md §4.6): bit0=inline object, bit1=inline class-def,
// bit2=externalizable, bit3=dynamic, bits4..28=attr count.
func (e *Encoder) writeInlineClassHeader(def *ClassDefinition) {
	var header uint32 = 0b11 // bit0 inline object, bit1 inline class-def
	switch def.Encoding {
	case EncodingExternalizable:
		header |= 0b0100
	case EncodingDynamic:
		header |= 0b1000 | uint32(len(def.Attrs))<<4
	default: // EncodingStatic
		header |= uint32(len(def.Attrs)) << 4
	}
	if err := e.stream.WriteU29(header); err != nil {
		panic(err)
	}
}

// writeObjectAttrs emits the object body that follows the class
// definition, in the mode def names. Declared attribute names belong to
// the inline class definition, so only their values are written here.
func (e *Encoder) writeObjectAttrs(def *ClassDefinition) {
	switch def.Encoding {
	case EncodingExternalizable:
		entry, ok := e.registry.entryForTypeByAlias(def.Name)
		if !ok || entry.writeHook == nil {
			panic(fmt.Errorf("class %q has no externalizable write hook: %w", def.Name, ErrEncode))
		}
		obj := e.lastObjectPayload()
		if err := entry.writeHook(e.stream, obj); err != nil {
			panic(err)
		}
	case EncodingDynamic:
		attrs := e.lastObjectAttrs()
		for _, name := range def.Attrs {
			v, _ := attrs.Get(name)
			e.writeValue(v, true)
		}
		dynamicKeys := attrs.Keys()
		declared := make(map[string]bool, len(def.Attrs))
		for _, a := range def.Attrs {
			declared[a] = true
		}
		for _, k := range dynamicKeys {
			if declared[k] {
				continue
			}
			v, _ := attrs.Get(k)
			e.writeStringBody(k)
			e.writeValue(v, true)
		}
		if err := e.stream.WriteU29(1); err != nil { // empty-string terminator
			panic(err)
		}
	default: // EncodingStatic
		attrs := e.lastObjectAttrs()
		for _, name := range def.Attrs {
			v, _ := attrs.Get(name)
			e.writeValue(v, true)
		}
	}
}

// lastObjectAttrs/lastObjectPayload retrieve the Object instance most
// recently appended to the object table, so writeObjectAttrs can read
// its attribute map without threading it through every call.
func (e *Encoder) lastObjectAttrs() *OrderedMap {
	o, _ := e.context.GetObject(len(e.context.objects) - 1)
	obj := o.(*Object)
	if obj.Attrs == nil {
		return NewOrderedMap()
	}
	return obj.Attrs
}

func (e *Encoder) lastObjectPayload() any {
	o, _ := e.context.GetObject(len(e.context.objects) - 1)
	obj := o.(*Object)
	return obj.External
}

