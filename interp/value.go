package interp

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// Kind is the kind of a runtime value.
type Kind int

// Enumeration of value kinds.
const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindPtr
	KindAgg
	KindFunc
)

// Value is a runtime value.  Only the fields relevant to its kind are set.
type Value struct {
	Kind Kind

	Int   int64
	Float float64

	// Ptr is the address held by a pointer.  A nil cell is the null pointer.
	Ptr Pointer

	// Fields are the elements of a struct or array.
	Fields []Value

	Func *ir.Func
}

// Int returns an integer value.
func Int(x int64) Value {
	return Value{Kind: KindInt, Int: x}
}

// Float returns a floating point value.
func Float(x float64) Value {
	return Value{Kind: KindFloat, Float: x}
}

// Agg returns an aggregate value.
func Agg(fields ...Value) Value {
	return Value{Kind: KindAgg, Fields: fields}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprint(v.Int)
	case KindFloat:
		return fmt.Sprint(v.Float)
	case KindPtr:
		if v.Ptr.cell == nil {
			return "null"
		}

		return fmt.Sprintf("ptr(%s%v)", v.Ptr.cell.name, v.Ptr.path)
	case KindAgg:
		elems := make([]string, len(v.Fields))
		for i, field := range v.Fields {
			elems[i] = field.String()
		}

		return "{" + strings.Join(elems, ", ") + "}"
	case KindFunc:
		return "@" + v.Func.Name()
	}

	return "void"
}

// clone deep copies aggregate values so that loaded values do not alias
// memory.
func (v Value) clone() Value {
	if v.Kind != KindAgg {
		return v
	}

	fields := make([]Value, len(v.Fields))
	for i, field := range v.Fields {
		fields[i] = field.clone()
	}

	v.Fields = fields
	return v
}

// zeroOf returns the zero value of an LLVM type.
func zeroOf(typ types.Type) Value {
	switch t := typ.(type) {
	case *types.IntType:
		return Int(0)
	case *types.FloatType:
		return Float(0)
	case *types.PointerType:
		return Value{Kind: KindPtr}
	case *types.StructType:
		fields := make([]Value, len(t.Fields))
		for i, ft := range t.Fields {
			fields[i] = zeroOf(ft)
		}

		return Agg(fields...)
	case *types.ArrayType:
		elems := make([]Value, t.Len)
		for i := range elems {
			elems[i] = zeroOf(t.ElemType)
		}

		return Agg(elems...)
	}

	return Value{}
}

// wrapInt truncates an integer to the bit size of an LLVM integer type and
// sign extends it back.
func wrapInt(x int64, typ types.Type) int64 {
	it, ok := typ.(*types.IntType)
	if !ok {
		return x
	}

	switch it.BitSize {
	case 1:
		return x & 1
	case 8:
		return int64(int8(x))
	case 16:
		return int64(int16(x))
	case 32:
		return int64(int32(x))
	}

	return x
}

// roundFloat rounds a float to the precision of an LLVM float type.
func roundFloat(x float64, typ types.Type) float64 {
	if ft, ok := typ.(*types.FloatType); ok && ft.Kind == types.FloatKindFloat {
		return float64(float32(x))
	}

	return x
}
