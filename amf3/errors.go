package amf3

import "errors"

// Sentinel error kinds, matched with errors.Is. Every operation that can
// fail wraps one of these with fmt.Errorf("...: %w", ErrXxx) so callers
// get both a typed kind and a human-readable message.
var (
	// ErrDecode covers an unknown type tag, a malformed U29, or a
	// truncated buffer.
	ErrDecode = errors.New("amf3: decode error")

	// ErrEncode covers a forbidden shape, such as an empty key in a
	// mixed array, or a value that cannot be represented on the wire.
	ErrEncode = errors.New("amf3: encode error")

	// ErrReference covers a reference index out of range, or a value
	// expected to already be in a table that isn't.
	ErrReference = errors.New("amf3: reference error")

	// ErrUnknownClassAlias covers a named class definition with no
	// matching registry entry on decode, or an unregistered alias/type
	// lookup against the registry.
	ErrUnknownClassAlias = errors.New("amf3: unknown class alias")

	// ErrValue covers an empty string added to the string table, or an
	// empty class alias passed to Register.
	ErrValue = errors.New("amf3: value error")

	// ErrType covers a non-integral index passed to a table lookup.
	ErrType = errors.New("amf3: type error")

	// ErrValueOutOfRange covers a U29 integer exceeding 2^29-1, or a
	// length prefix exceeding its field width.
	ErrValueOutOfRange = errors.New("amf3: value out of range")
)
