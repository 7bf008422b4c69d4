package generate

import (
	"lowc/report"
	"lowc/typing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// convType converts a data type into its LLVM type.  Named structs are
// converted to the type definition registered for them.
func (r *Registry) convType(dt typing.DataType) types.Type {
	switch v := dt.(type) {
	case typing.PrimType:
		return convPrimType(v)
	case *typing.StructType:
		if v.Name != "" {
			if ll, ok := r.structs[v.Name]; ok {
				return ll.ll
			}
		}

		return r.convStructBody(v)
	}

	// unreachable: DataType is closed
	return nil
}

func convPrimType(pt typing.PrimType) types.Type {
	switch pt {
	case typing.PrimNumber:
		return types.I32
	case typing.PrimFloat:
		return types.Float
	case typing.PrimBool:
		return types.I1
	case typing.PrimText:
		return types.I8Ptr
	default:
		// PrimVoid
		return types.Void
	}
}

func (r *Registry) convStructBody(st *typing.StructType) *types.StructType {
	fields := make([]types.Type, len(st.Fields))
	for i, field := range st.Fields {
		fields[i] = r.convType(field)
	}

	return types.NewStruct(fields...)
}

// registerType makes sure every named struct reachable from dt has a type
// definition in the module.  Two different struct types may not share a name.
func (r *Registry) registerType(dt typing.DataType) error {
	st, ok := dt.(*typing.StructType)
	if !ok {
		return nil
	}

	for _, field := range st.Fields {
		if err := r.registerType(field); err != nil {
			return err
		}
	}

	if st.Name == "" {
		return nil
	}

	if entry, ok := r.structs[st.Name]; ok {
		if !typing.Equals(entry.dt, st) {
			return report.Raise(
				report.DuplicateDeclaration,
				"struct `"+st.Name+"`",
				"struct `%s` is already defined with a different layout",
				st.Name,
			)
		}

		return nil
	}

	r.structs[st.Name] = structEntry{
		dt: st,
		ll: r.mod.NewTypeDef(st.Name, r.convStructBody(st)),
	}

	return nil
}

// zeroValue returns the zero constant of a storable type.
func (r *Registry) zeroValue(dt typing.DataType) constant.Constant {
	switch dt {
	case typing.PrimNumber:
		return constant.NewInt(types.I32, 0)
	case typing.PrimFloat:
		return constant.NewFloat(types.Float, 0)
	}

	return constant.NewZeroInitializer(r.convType(dt))
}
