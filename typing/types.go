package typing

import "strings"

// DataType is the parent interface for all types known to the lowering core.
// It is a closed variant: the only implementations are PrimType and
// *StructType.
type DataType interface {
	// Repr returns a representative string of the type for purposes of error
	// reporting.
	Repr() string

	// equals is the internal, type-specific implementation of Equals.  It
	// should NEVER be called directly except by Equals.
	equals(DataType) bool
}

// -----------------------------------------------------------------------------

// PrimType represents a primitive type.  It should be one of the enumerated
// primitive types.
type PrimType int

// Enumeration of different primitive types.
const (
	PrimNumber PrimType = iota // 32-bit signed integer.
	PrimFloat                  // 32-bit IEEE float.

	// The kinds below are internal: they can never be the type of a storage
	// location.
	PrimBool // Single-bit comparison result, only usable as a branch condition.
	PrimText // Pointer to a string literal, only usable as a call argument.
	PrimVoid // Return type of functions which yield no value.
)

func (pt PrimType) Repr() string {
	switch pt {
	case PrimNumber:
		return "number"
	case PrimFloat:
		return "float"
	case PrimBool:
		return "bool"
	case PrimText:
		return "text"
	default:
		// PrimVoid
		return "void"
	}
}

func (pt PrimType) equals(other DataType) bool {
	if opt, ok := other.(PrimType); ok {
		return pt == opt
	}

	return false
}

// -----------------------------------------------------------------------------

// StructType represents a record type whose fields are addressed by index.
// Two struct types are equal if they have the same name and field types.
// Anonymous structs (empty name) are compared structurally.
type StructType struct {
	Name   string
	Fields []DataType
}

func (st *StructType) Repr() string {
	if st.Name != "" {
		return st.Name
	}

	sb := strings.Builder{}
	sb.WriteString("struct {")

	for i, field := range st.Fields {
		sb.WriteString(field.Repr())

		if i < len(st.Fields)-1 {
			sb.WriteString(", ")
		}
	}

	sb.WriteRune('}')
	return sb.String()
}

func (st *StructType) equals(other DataType) bool {
	ost, ok := other.(*StructType)
	if !ok {
		return false
	}

	if st == ost {
		return true
	}

	if st.Name != ost.Name || len(st.Fields) != len(ost.Fields) {
		return false
	}

	for i, field := range st.Fields {
		if !Equals(field, ost.Fields[i]) {
			return false
		}
	}

	return true
}

// FieldType returns the type of the field at index ndx and whether that index
// is in bounds.
func (st *StructType) FieldType(ndx int) (DataType, bool) {
	if ndx < 0 || ndx >= len(st.Fields) {
		return nil, false
	}

	return st.Fields[ndx], true
}
