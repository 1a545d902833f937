package amf3

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, b []byte, registry *Registry) any {
	t.Helper()
	stream := NewByteStream(b)
	dec := NewDecoder(stream, NewContext(), registry)
	v, err := dec.ReadElement()
	require.NoError(t, err)
	return v
}

func TestDecodeNull(t *testing.T) {
	assert.Nil(t, decode(t, []byte{0x01}, nil))
}

func TestDecodeBoolean(t *testing.T) {
	assert.Equal(t, true, decode(t, []byte{0x03}, nil))
	assert.Equal(t, false, decode(t, []byte{0x02}, nil))
}

func TestDecodeUndefined(t *testing.T) {
	assert.Equal(t, Undefined{}, decode(t, []byte{0x00}, nil))
}

func TestDecodeInteger(t *testing.T) {
	assert.Equal(t, int32(0), decode(t, []byte{0x04, 0x00}, nil))
	assert.Equal(t, int32(94), decode(t, []byte{0x04, 0x5e}, nil))
	assert.Equal(t, int32(-3422345), decode(t, []byte{0x04, 0xff, 0x97, 0xc7, 0x77}, nil))
}

func TestDecodeDouble(t *testing.T) {
	got := decode(t, []byte{0x05, 0x3f, 0xb9, 0x99, 0x99, 0x99, 0x99, 0x99, 0x9a}, nil)
	assert.InDelta(t, 0.1, got.(float64), 1e-12)
}

func TestDecodeString(t *testing.T) {
	assert.Equal(t, "hello", decode(t, []byte("\x06\x0bhello"), nil))
}

func TestDecodeStringReferences(t *testing.T) {
	stream := NewByteStream([]byte("\x06\x0bhello\x06\x00\x06\x00"))
	dec := NewDecoder(stream, NewContext(), nil)

	for i := 0; i < 3; i++ {
		v, err := dec.ReadElement()
		require.NoError(t, err)
		assert.Equal(t, "hello", v)
	}
}

func TestDecodeUnknownStringReferenceFails(t *testing.T) {
	stream := NewByteStream([]byte{0x06, 0x02})
	dec := NewDecoder(stream, NewContext(), nil)
	_, err := dec.ReadElement()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReference)
}

func TestDecodeDate(t *testing.T) {
	got := decode(t, []byte("\x08\x01Bp+6!\x15\x80\x00"), nil)
	want := time.Date(2005, time.March, 18, 1, 58, 31, 0, time.UTC)
	assert.True(t, got.(time.Time).Equal(want))
}

func TestDecodeByteArray(t *testing.T) {
	got := decode(t, []byte("\x0c\x0bhello"), nil)
	assert.Equal(t, ByteArray("hello"), got)
}

func TestDecodeXMLStringAndDocument(t *testing.T) {
	body := "<a><b>hello world</b></a>"
	got := decode(t, append([]byte{0x0b, 0x33}, []byte(body)...), nil)
	assert.Equal(t, XMLString(body), got)

	got = decode(t, append([]byte{0x07, 0x33}, []byte(body)...), nil)
	assert.Equal(t, XMLDocument(body), got)
}

func TestDecodeArrayDenseOnly(t *testing.T) {
	got := decode(t, []byte("\x09\x09\x01\x04\x00\x04\x01\x04\x02\x04\x03"), nil)
	arr, ok := got.(*Array)
	require.True(t, ok)
	assert.Equal(t, []any{int32(0), int32(1), int32(2), int32(3)}, arr.Dense)
	assert.Equal(t, 0, arr.Keyed.Len())
}

func TestDecodeArrayWithKeyedPart(t *testing.T) {
	// {'foo': 'bar'} dense-empty array with one keyed pair.
	b := []byte("\x09\x01\x07foo\x06\x07bar\x01")
	got := decode(t, b, nil)
	arr, ok := got.(*Array)
	require.True(t, ok)
	assert.Equal(t, 0, len(arr.Dense))
	v, ok := arr.Keyed.Get("foo")
	require.True(t, ok)
	assert.Equal(t, "bar", v)
}

func TestDecodeArraySelfReference(t *testing.T) {
	// An array whose sole dense element is a back-reference to itself.
	b := []byte{0x09, 0x03, 0x01, 0x09, 0x00}
	got := decode(t, b, nil)
	arr, ok := got.(*Array)
	require.True(t, ok)
	require.Len(t, arr.Dense, 1)
	assert.Same(t, arr, arr.Dense[0])
}

func TestDecodeStaticObject(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(fooBag{})
	require.NoError(t, r.Register(typ, "com.collab.dev.pyamf.foo",
		WithEncoding(EncodingStatic), WithAttrs([]string{"baz"})))

	got := decode(t, []byte("\n\x131com.collab.dev.pyamf.foo\x07baz\x06\x0bhello"), r)
	obj, ok := got.(*Object)
	require.True(t, ok)
	assert.Equal(t, "com.collab.dev.pyamf.foo", obj.Def.Name)
	assert.Equal(t, EncodingStatic, obj.Def.Encoding)
	v, ok := obj.Attrs.Get("baz")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestDecodeObjectClassDefinitionReference(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(fooBag{})
	require.NoError(t, r.Register(typ, "com.collab.dev.pyamf.foo",
		WithEncoding(EncodingStatic), WithAttrs([]string{"baz"})))

	var b []byte
	b = append(b, []byte("\n\x131com.collab.dev.pyamf.foo\x07baz\x06\x0bhello")...)
	b = append(b, 0x0A, 0x01)
	b = append(b, []byte("\x06\x0bworld")...)

	stream := NewByteStream(b)
	dec := NewDecoder(stream, NewContext(), r)

	first, err := dec.ReadElement()
	require.NoError(t, err)
	firstObj := first.(*Object)
	v, _ := firstObj.Attrs.Get("baz")
	assert.Equal(t, "hello", v)

	second, err := dec.ReadElement()
	require.NoError(t, err)
	secondObj := second.(*Object)
	assert.NotSame(t, firstObj, secondObj)
	assert.Same(t, firstObj.Def, secondObj.Def, "class definition is reused by reference")
	v, _ = secondObj.Attrs.Get("baz")
	assert.Equal(t, "world", v)
}

func TestDecodeObjectWithUnregisteredNamedClassFails(t *testing.T) {
	_, err := NewDecoder(
		NewByteStream([]byte("\n\x131com.collab.dev.pyamf.foo\x07baz\x06\x0bhello")),
		NewContext(), nil,
	).ReadElement()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownClassAlias)
}

func TestDecodeAnonymousObjectAlwaysAllowed(t *testing.T) {
	// Anonymous dynamic object with one dynamic attr "baz"="hello".
	b := []byte("\n\x0b\x01\x07baz\x06\x0bhello\x01")
	got := decode(t, b, nil)
	obj, ok := got.(*Object)
	require.True(t, ok)
	assert.Equal(t, "", obj.Def.Name)
	v, _ := obj.Attrs.Get("baz")
	assert.Equal(t, "hello", v)
}

func TestDecodeObjectSelfReference(t *testing.T) {
	// Object whose dynamic attribute "self" is a back-reference to itself.
	b := []byte{0x0a, 0x0b, 0x01, 0x09, 's', 'e', 'l', 'f', 0x0a, 0x00, 0x01}
	got := decode(t, b, nil)
	obj, ok := got.(*Object)
	require.True(t, ok)
	v, ok := obj.Attrs.Get("self")
	require.True(t, ok)
	assert.Same(t, obj, v)
}

func TestDecodeExternalizableObject(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(fooBag{})
	read := func(s *ByteStream) (any, error) {
		b, err := s.ReadBytes(7)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	require.NoError(t, r.Register(typ, "ext.Foo", WithHooks(read, nil)))

	b := append([]byte("\n\x07\x0fext.Foo"), []byte("payload")...)
	got := decode(t, b, r)
	obj, ok := got.(*Object)
	require.True(t, ok)
	assert.Equal(t, "payload", obj.External)
}

func TestDecodeUnknownMarkerFails(t *testing.T) {
	stream := NewByteStream([]byte{0xFF})
	dec := NewDecoder(stream, NewContext(), nil)
	_, err := dec.ReadElement()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestReadTypePeeksWithoutConsuming(t *testing.T) {
	stream := NewByteStream([]byte{0x04, 0x5e})
	dec := NewDecoder(stream, NewContext(), nil)

	m, err := dec.ReadType()
	require.NoError(t, err)
	assert.Equal(t, MarkerInteger, m)
	assert.Equal(t, 0, stream.Tell())

	v, err := dec.ReadElement()
	require.NoError(t, err)
	assert.Equal(t, int32(94), v)
}
