package amf3

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testPerson struct {
	Name string
	Age  int
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(testPerson{})

	require.NoError(t, r.Register(typ, "com.example.Person"))

	alias, err := r.AliasForType(typ)
	require.NoError(t, err)
	assert.Equal(t, "com.example.Person", alias)

	got, err := r.TypeForAlias("com.example.Person")
	require.NoError(t, err)
	assert.Equal(t, typ, got)
}

func TestRegistryRegisterEmptyAliasFails(t *testing.T) {
	r := NewRegistry()
	err := r.Register(reflect.TypeOf(testPerson{}), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValue)
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(testPerson{})
	require.NoError(t, r.Register(typ, "com.example.Person"))
	require.NoError(t, r.Unregister(typ))

	_, err := r.AliasForType(typ)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownClassAlias)

	err = r.Unregister(typ)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownClassAlias)
}

func TestRegistryUnknownAliasLookup(t *testing.T) {
	r := NewRegistry()
	_, err := r.TypeForAlias("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownClassAlias)
}

func TestRegistryBuildClassDefinitionSnapshotsAttrs(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(testPerson{})
	require.NoError(t, r.Register(typ, "com.example.Person",
		WithAttrs([]string{"name", "age"}),
		WithEncoding(EncodingStatic)))

	def, entry, ok := r.buildClassDefinition("com.example.Person")
	require.True(t, ok)
	require.NotNil(t, entry)
	assert.Equal(t, "com.example.Person", def.Name)
	assert.Equal(t, EncodingStatic, def.Encoding)
	assert.Equal(t, []string{"name", "age"}, def.Attrs)

	// Mutating the returned slice must not affect the registry's own copy.
	def.Attrs[0] = "mutated"
	def2, _, _ := r.buildClassDefinition("com.example.Person")
	assert.Equal(t, "name", def2.Attrs[0])
}

func TestRegistryWithHooksSetsExternalizable(t *testing.T) {
	r := NewRegistry()
	typ := reflect.TypeOf(testPerson{})
	read := func(s *ByteStream) (any, error) { return nil, nil }
	write := func(s *ByteStream, instance any) error { return nil }

	require.NoError(t, r.Register(typ, "com.example.Person", WithHooks(read, write)))

	entry, ok := r.entryForType(typ)
	require.True(t, ok)
	assert.Equal(t, EncodingExternalizable, entry.encoding)
	assert.NotNil(t, entry.readHook)
	assert.NotNil(t, entry.writeHook)
}

func TestRegistryOverwriteLogsWarn(t *testing.T) {
	r := NewRegistry()
	typ1 := reflect.TypeOf(testPerson{})
	typ2 := reflect.TypeOf(struct{ X int }{})

	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	require.NoError(t, r.Register(typ1, "dup"))
	require.NoError(t, r.Register(typ2, "dup"))

	got, err := r.TypeForAlias("dup")
	require.NoError(t, err)
	assert.Equal(t, typ2, got, "second registration under the same alias wins")
	assert.Equal(t, 1, logs.FilterMessage("amf3: overwriting class alias registration").Len())
}

func TestDefaultRegistryPackageFunctions(t *testing.T) {
	typ := reflect.TypeOf(testPerson{})
	require.NoError(t, RegisterClassAlias(typ, "amf3test.Person"))
	defer func() { _ = UnregisterClassAlias(typ) }()

	alias, err := GetAliasForType(typ)
	require.NoError(t, err)
	assert.Equal(t, "amf3test.Person", alias)

	got, err := GetTypeForAlias("amf3test.Person")
	require.NoError(t, err)
	assert.Equal(t, typ, got)
}
