package log

import (
	"fmt"
	"strconv"
)

// FieldType selects how a ZField is rendered.
type FieldType uint8

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeBool
	FieldTypeString
	FieldTypeHex8  // data bus value
	FieldTypeHex16 // address
	FieldTypeOctal // ROM id, select code
	FieldTypeInt
	FieldTypeUint
	FieldTypeNanos // bus time
	FieldTypeError
	FieldTypeStringer
)

// ZField is a typed log field. Numbers share num, so a field is never
// formatted before the entry is emitted.
type ZField struct {
	Type FieldType
	Key  string

	num uint64
	str string
	obj any
}

func (f *ZField) Value() string {
	switch f.Type {
	case FieldTypeBool:
		return strconv.FormatBool(f.num != 0)
	case FieldTypeString:
		return f.str
	case FieldTypeHex8:
		return fmt.Sprintf("%02x", f.num)
	case FieldTypeHex16:
		return fmt.Sprintf("%04x", f.num)
	case FieldTypeOctal:
		return fmt.Sprintf("%03o", f.num)
	case FieldTypeInt:
		return strconv.FormatInt(int64(f.num), 10)
	case FieldTypeUint:
		return strconv.FormatUint(f.num, 10)
	case FieldTypeNanos:
		return strconv.FormatUint(f.num, 10) + "ns"
	case FieldTypeError:
		if f.obj == nil {
			return "<nil>"
		}
		return f.obj.(error).Error()
	case FieldTypeStringer:
		return f.obj.(fmt.Stringer).String()
	}
	return ""
}
