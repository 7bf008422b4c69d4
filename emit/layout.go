package emit

import (
	"fmt"

	"github.com/llir/llvm/ir/types"
)

// sizeOf returns the size and alignment of a type in bytes.  Pointers take the
// size of the target word.
func (t *translator) sizeOf(typ types.Type) (int64, int64, error) {
	switch v := typ.(type) {
	case *types.IntType:
		switch {
		case v.BitSize <= 8:
			return 1, 1, nil
		case v.BitSize <= 16:
			return 2, 2, nil
		case v.BitSize <= 32:
			return 4, 4, nil
		default:
			return 8, 8, nil
		}
	case *types.FloatType:
		if v.Kind == types.FloatKindFloat {
			return 4, 4, nil
		}

		return 8, 8, nil
	case *types.PointerType:
		if t.wordType == WordLong {
			return 8, 8, nil
		}

		return 4, 4, nil
	case *types.ArrayType:
		size, align, err := t.sizeOf(v.ElemType)
		if err != nil {
			return 0, 0, err
		}

		return size * int64(v.Len), align, nil
	case *types.StructType:
		var size, maxAlign int64 = 0, 1
		for _, field := range v.Fields {
			fsize, falign, err := t.sizeOf(field)
			if err != nil {
				return 0, 0, err
			}

			size = alignUp(size, falign) + fsize
			if falign > maxAlign {
				maxAlign = falign
			}
		}

		return alignUp(size, maxAlign), maxAlign, nil
	}

	return 0, 0, fmt.Errorf("no layout for type %s", typ)
}

// fieldOffset returns the byte offset of a struct field.
func (t *translator) fieldOffset(st *types.StructType, ndx int) (int64, error) {
	var offset int64
	for i, field := range st.Fields {
		size, align, err := t.sizeOf(field)
		if err != nil {
			return 0, err
		}

		offset = alignUp(offset, align)
		if i == ndx {
			return offset, nil
		}

		offset += size
	}

	return 0, fmt.Errorf("field %d out of range for %s", ndx, st)
}

func alignUp(n, align int64) int64 {
	return (n + align - 1) / align * align
}

// leaf is a scalar inside an aggregate.
type leaf struct {
	offset int64
	typ    types.Type
}

// leaves flattens an aggregate into its scalars.
func (t *translator) leaves(typ types.Type, base int64) ([]leaf, error) {
	switch v := typ.(type) {
	case *types.StructType:
		var result []leaf
		for i, field := range v.Fields {
			offset, err := t.fieldOffset(v, i)
			if err != nil {
				return nil, err
			}

			sub, err := t.leaves(field, base+offset)
			if err != nil {
				return nil, err
			}

			result = append(result, sub...)
		}

		return result, nil
	case *types.ArrayType:
		size, _, err := t.sizeOf(v.ElemType)
		if err != nil {
			return nil, err
		}

		var result []leaf
		for i := uint64(0); i < v.Len; i++ {
			sub, err := t.leaves(v.ElemType, base+int64(i)*size)
			if err != nil {
				return nil, err
			}

			result = append(result, sub...)
		}

		return result, nil
	}

	return []leaf{{offset: base, typ: typ}}, nil
}
