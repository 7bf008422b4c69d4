package generate

import (
	"lowc/ast"
	"lowc/report"
	"lowc/typing"
	"math"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// genExpr generates an expression at the cursor.
func (g *Generator) genExpr(expr ast.ASTExpr) (Value, error) {
	switch v := expr.(type) {
	case *ast.IntLit:
		if v.Value < math.MinInt32 || v.Value > math.MaxInt32 {
			return Value{}, report.Raise(report.TypeMismatch, v.Describe(), "constant overflows a number")
		}

		return Value{LL: constant.NewInt(types.I32, v.Value), Type: typing.PrimNumber}, nil
	case *ast.FloatLit:
		return Value{LL: constant.NewFloat(types.Float, float64(float32(v.Value))), Type: typing.PrimFloat}, nil
	case *ast.StrLit:
		return Value{LL: g.registry.internString(v.Value), Type: typing.PrimText}, nil
	case *ast.Identifier:
		sym, err := g.lookup(v.Name)
		if err != nil {
			return Value{}, err
		}

		return g.genLoad(sym.Storage, sym.Type)
	case *ast.FieldAccess:
		addr, dt, err := g.genFieldAddr(v)
		if err != nil {
			return Value{}, err
		}

		return g.genLoad(addr, dt)
	case *ast.BinaryOp:
		return g.genBinaryOp(v)
	case *ast.Call:
		return g.genCall(v)
	}

	return Value{}, report.Raise(report.TypeMismatch, expr.Describe(), "unsupported expression")
}

// lookup finds the symbol a name refers to: first in the function's scopes
// and then among the globals.
func (g *Generator) lookup(name string) (*Symbol, error) {
	if g.fs != nil {
		if sym, ok := g.fs.scopes.Lookup(name); ok {
			return sym, nil
		}
	}

	global, err := g.registry.ResolveGlobal(name)
	if err != nil {
		return nil, err
	}

	return &Symbol{Name: name, Storage: global.LL, Type: global.Type}, nil
}

// genLoad loads a value of type dt from addr.
func (g *Generator) genLoad(addr value.Value, dt typing.DataType) (Value, error) {
	block, err := g.builder.Insert()
	if err != nil {
		return Value{}, err
	}

	return Value{LL: block.NewLoad(g.registry.convType(dt), addr), Type: dt}, nil
}

// genFieldAddr computes the address of a struct field.  The root of the access
// must be addressable: a variable or another field access.
func (g *Generator) genFieldAddr(fa *ast.FieldAccess) (value.Value, typing.DataType, error) {
	var rootAddr value.Value
	var rootType typing.DataType

	switch v := fa.Root.(type) {
	case *ast.Identifier:
		sym, err := g.lookup(v.Name)
		if err != nil {
			return nil, nil, err
		}

		rootAddr, rootType = sym.Storage, sym.Type
	case *ast.FieldAccess:
		addr, dt, err := g.genFieldAddr(v)
		if err != nil {
			return nil, nil, err
		}

		rootAddr, rootType = addr, dt
	default:
		return nil, nil, report.Raise(report.TypeMismatch, fa.Describe(), "%s is not addressable", fa.Root.Describe())
	}

	st, ok := rootType.(*typing.StructType)
	if !ok {
		return nil, nil, report.Raise(report.TypeMismatch, fa.Describe(), "cannot access a field of %s", rootType.Repr())
	}

	fieldType, ok := st.FieldType(fa.Index)
	if !ok {
		return nil, nil, report.Raise(
			report.InvalidFieldIndex,
			fa.Describe(),
			"%s has %d fields but field %d was accessed",
			st.Repr(),
			len(st.Fields),
			fa.Index,
		)
	}

	block, err := g.builder.Insert()
	if err != nil {
		return nil, nil, err
	}

	gep := block.NewGetElementPtr(
		g.registry.convType(st),
		rootAddr,
		constant.NewInt(types.I32, 0),
		constant.NewInt(types.I32, int64(fa.Index)),
	)

	return gep, fieldType, nil
}

// -----------------------------------------------------------------------------

var intPreds = map[ast.Oper]enum.IPred{
	ast.OpEq:   enum.IPredEQ,
	ast.OpNeq:  enum.IPredNE,
	ast.OpLt:   enum.IPredSLT,
	ast.OpLtEq: enum.IPredSLE,
	ast.OpGt:   enum.IPredSGT,
	ast.OpGtEq: enum.IPredSGE,
}

var floatPreds = map[ast.Oper]enum.FPred{
	ast.OpEq:   enum.FPredOEQ,
	ast.OpNeq:  enum.FPredONE,
	ast.OpLt:   enum.FPredOLT,
	ast.OpLtEq: enum.FPredOLE,
	ast.OpGt:   enum.FPredOGT,
	ast.OpGtEq: enum.FPredOGE,
}

// genBinaryOp generates an arithmetic operation or comparison.  Both operands
// must be of the same type and that type must be a number or a float.
func (g *Generator) genBinaryOp(bo *ast.BinaryOp) (Value, error) {
	lhs, err := g.genExpr(bo.Lhs)
	if err != nil {
		return Value{}, err
	}

	rhs, err := g.genExpr(bo.Rhs)
	if err != nil {
		return Value{}, err
	}

	if !typing.Equals(lhs.Type, rhs.Type) {
		return Value{}, report.Raise(
			report.TypeMismatch,
			bo.Describe(),
			"operands are of different types: %s and %s",
			lhs.Type.Repr(),
			rhs.Type.Repr(),
		)
	}

	if !typing.IsScalar(lhs.Type) {
		return Value{}, report.Raise(report.TypeMismatch, bo.Describe(), "operator cannot be applied to %s", lhs.Type.Repr())
	}

	isFloat := typing.IsFloat(lhs.Type)
	if isFloat && bo.Op == ast.OpMod {
		return Value{}, report.Raise(report.TypeMismatch, bo.Describe(), "operator cannot be applied to %s", lhs.Type.Repr())
	}

	block, err := g.builder.Insert()
	if err != nil {
		return Value{}, err
	}

	if bo.Op.IsComparison() {
		var result value.Value
		if isFloat {
			result = block.NewFCmp(floatPreds[bo.Op], lhs.LL, rhs.LL)
		} else {
			result = block.NewICmp(intPreds[bo.Op], lhs.LL, rhs.LL)
		}

		return Value{LL: result, Type: typing.PrimBool}, nil
	}

	var result value.Value
	switch bo.Op {
	case ast.OpAdd:
		if isFloat {
			result = block.NewFAdd(lhs.LL, rhs.LL)
		} else {
			result = block.NewAdd(lhs.LL, rhs.LL)
		}
	case ast.OpSub:
		if isFloat {
			result = block.NewFSub(lhs.LL, rhs.LL)
		} else {
			result = block.NewSub(lhs.LL, rhs.LL)
		}
	case ast.OpMul:
		if isFloat {
			result = block.NewFMul(lhs.LL, rhs.LL)
		} else {
			result = block.NewMul(lhs.LL, rhs.LL)
		}
	case ast.OpDiv:
		if isFloat {
			result = block.NewFDiv(lhs.LL, rhs.LL)
		} else {
			result = block.NewSDiv(lhs.LL, rhs.LL)
		}
	case ast.OpMod:
		result = block.NewSRem(lhs.LL, rhs.LL)
	default:
		return Value{}, report.Raise(report.TypeMismatch, bo.Describe(), "unknown operator")
	}

	return Value{LL: result, Type: lhs.Type}, nil
}

// -----------------------------------------------------------------------------

// genCall generates a function call.  The arguments are evaluated left to
// right before the callee is resolved.  If the call cannot be generated, every
// instruction emitted for it is removed again.
func (g *Generator) genCall(call *ast.Call) (result Value, err error) {
	cp := g.builder.checkpoint()
	sm := g.registry.markStrings()

	defer func() {
		if err != nil {
			g.builder.rollback(cp)
			g.registry.rollbackStrings(sm)
		}
	}()

	args := make([]Value, len(call.Args))
	for i, arg := range call.Args {
		if args[i], err = g.genExpr(arg); err != nil {
			return
		}
	}

	fn, err := g.registry.ResolveFunction(call.Func)
	if err != nil {
		return
	}

	if len(args) < len(fn.Params) || (!fn.Variadic && len(args) > len(fn.Params)) {
		expected := "exactly"
		if fn.Variadic {
			expected = "at least"
		}

		err = report.Raise(
			report.ArgumentCountMismatch,
			call.Describe(),
			"expected %s %d arguments but got %d",
			expected,
			len(fn.Params),
			len(args),
		)
		return
	}

	block, err := g.builder.Insert()
	if err != nil {
		return
	}

	llArgs := make([]value.Value, len(args))
	for i, arg := range args {
		if i < len(fn.Params) {
			if !typing.Equals(fn.Params[i].Type, arg.Type) {
				err = report.Raise(
					report.ArgumentTypeMismatch,
					call.Describe(),
					"argument %d (`%s`) expects %s but got %s",
					i+1,
					fn.Params[i].Name,
					fn.Params[i].Type.Repr(),
					arg.Type.Repr(),
				)
				return
			}

			llArgs[i] = arg.LL
			continue
		}

		// variadic arguments follow the C promotion rules
		switch arg.Type {
		case typing.PrimNumber, typing.PrimText:
			llArgs[i] = arg.LL
		case typing.PrimFloat:
			llArgs[i] = block.NewFPExt(arg.LL, types.Double)
		default:
			err = report.Raise(
				report.ArgumentTypeMismatch,
				call.Describe(),
				"argument %d of type %s cannot be passed as a variadic argument",
				i+1,
				arg.Type.Repr(),
			)
			return
		}
	}

	callInst := block.NewCall(fn.LL, llArgs...)

	// the callee may have written to any global
	g.clobberGlobals()

	return Value{LL: callInst, Type: fn.ReturnType}, nil
}

// genCondition generates a branch condition: it must be a comparison.
func (g *Generator) genCondition(expr ast.ASTExpr, construct string) (value.Value, error) {
	cond, err := g.genExpr(expr)
	if err != nil {
		return nil, err
	}

	if !typing.Equals(cond.Type, typing.PrimBool) {
		return nil, report.Raise(report.TypeMismatch, construct, "condition must be a comparison but got %s", cond.Type.Repr())
	}

	return cond.LL, nil
}
