package amf3

// Marker is the one-byte type tag that precedes every AMF3 value on the wire.
//
// Spec @ https://www.adobe.com/content/dam/acom/en/devnet/pdf/amf-file-format-spec.pdf
type Marker byte

const (
	MarkerUndefined   Marker = 0x00
	MarkerNull        Marker = 0x01
	MarkerBoolFalse   Marker = 0x02
	MarkerBoolTrue    Marker = 0x03
	MarkerInteger     Marker = 0x04
	MarkerDouble      Marker = 0x05
	MarkerString      Marker = 0x06
	MarkerXmlDocument Marker = 0x07
	MarkerDate        Marker = 0x08
	MarkerArray       Marker = 0x09
	MarkerObject      Marker = 0x0A
	MarkerXmlString   Marker = 0x0B
	MarkerByteArray   Marker = 0x0C
)

// ActionscriptTypes lists every valid marker, in ascending order.
var ActionscriptTypes = []Marker{
	MarkerUndefined, MarkerNull, MarkerBoolFalse, MarkerBoolTrue, MarkerInteger,
	MarkerDouble, MarkerString, MarkerXmlDocument, MarkerDate, MarkerArray,
	MarkerObject, MarkerXmlString, MarkerByteArray,
}

func (m Marker) String() string {
	switch m {
	case MarkerUndefined:
		return "Undefined"
	case MarkerNull:
		return "Null"
	case MarkerBoolFalse:
		return "BoolFalse"
	case MarkerBoolTrue:
		return "BoolTrue"
	case MarkerInteger:
		return "Integer"
	case MarkerDouble:
		return "Double"
	case MarkerString:
		return "String"
	case MarkerXmlDocument:
		return "XmlDocument"
	case MarkerDate:
		return "Date"
	case MarkerArray:
		return "Array"
	case MarkerObject:
		return "Object"
	case MarkerXmlString:
		return "XmlString"
	case MarkerByteArray:
		return "ByteArray"
	default:
		return "Unknown"
	}
}
