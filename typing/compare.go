package typing

// Equals returns if two types are exactly identical.  This operation is
// commutative.  A nil type is only equal to another nil type.
func Equals(lhs, rhs DataType) bool {
	if lhs == nil || rhs == nil {
		return lhs == nil && rhs == nil
	}

	return lhs.equals(rhs)
}

// -----------------------------------------------------------------------------

// IsVoid returns whether the given type is the void type.
func IsVoid(dt DataType) bool {
	return Equals(dt, PrimVoid)
}

// IsScalar returns whether the given type is a number or float: the only types
// that arithmetic and comparison operators accept.
func IsScalar(dt DataType) bool {
	if pt, ok := dt.(PrimType); ok {
		return pt == PrimNumber || pt == PrimFloat
	}

	return false
}

// IsStorable returns whether a value of the given type may be held in a storage
// location: a local variable, a global, a parameter, or a struct field.
func IsStorable(dt DataType) bool {
	switch v := dt.(type) {
	case PrimType:
		return v == PrimNumber || v == PrimFloat
	case *StructType:
		for _, field := range v.Fields {
			if !IsStorable(field) {
				return false
			}
		}

		return true
	}

	return false
}

// IsFloat returns whether the given type is the float type.
func IsFloat(dt DataType) bool {
	return Equals(dt, PrimFloat)
}
