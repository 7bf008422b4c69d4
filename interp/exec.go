package interp

import (
	"fmt"
	"math"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
)

// eval evaluates an operand.  The frame may be nil when evaluating global
// initializers.
func (m *Machine) eval(fr *frame, v value.Value) (Value, error) {
	switch x := v.(type) {
	case *ir.Global:
		c, ok := m.globals[x]
		if !ok {
			return Value{}, fmt.Errorf("unknown global `%s`", x.Name())
		}

		return Value{Kind: KindPtr, Ptr: Pointer{cell: c}}, nil
	case *ir.Func:
		return Value{Kind: KindFunc, Func: x}, nil
	case *constant.Int:
		return Int(x.X.Int64()), nil
	case *constant.Float:
		f, _ := x.X.Float64()
		return Float(f), nil
	case *constant.Null:
		return Value{Kind: KindPtr}, nil
	case *constant.ZeroInitializer:
		return zeroOf(x.Type()), nil
	case *constant.Undef:
		return zeroOf(x.Type()), nil
	case *constant.CharArray:
		elems := make([]Value, len(x.X))
		for i, c := range x.X {
			elems[i] = Int(int64(c))
		}

		return Agg(elems...), nil
	case *constant.Array:
		return m.evalAll(fr, x.Elems)
	case *constant.Struct:
		return m.evalAll(fr, x.Fields)
	case *constant.ExprGetElementPtr:
		src, err := m.eval(fr, x.Src)
		if err != nil {
			return Value{}, err
		}

		indices := make([]value.Value, len(x.Indices))
		for i, ndx := range x.Indices {
			indices[i] = ndx
		}

		return m.gep(fr, src, indices)
	}

	if fr != nil {
		if val, ok := fr.vals[v]; ok {
			return val, nil
		}
	}

	return Value{}, fmt.Errorf("use of undefined value %s", v.Ident())
}

func (m *Machine) evalAll(fr *frame, consts []constant.Constant) (Value, error) {
	fields := make([]Value, len(consts))
	for i, c := range consts {
		val, err := m.eval(fr, c)
		if err != nil {
			return Value{}, err
		}

		fields[i] = val
	}

	return Agg(fields...), nil
}

func (m *Machine) evalPtr(fr *frame, v value.Value) (Pointer, error) {
	val, err := m.eval(fr, v)
	if err != nil {
		return Pointer{}, err
	}

	if val.Kind != KindPtr {
		return Pointer{}, fmt.Errorf("%s is not a pointer", v.Ident())
	}

	return val.Ptr, nil
}

// gep computes an element address.  The first index moves the pointer within
// its enclosing array; the rest select elements of the value pointed to.
func (m *Machine) gep(fr *frame, src Value, indices []value.Value) (Value, error) {
	if src.Kind != KindPtr {
		return Value{}, fmt.Errorf("getelementptr on a non-pointer")
	}

	p := src.Ptr
	for i, ndx := range indices {
		n, err := m.eval(fr, ndx)
		if err != nil {
			return Value{}, err
		}

		if i == 0 {
			if p, err = p.offset(int(n.Int)); err != nil {
				return Value{}, err
			}
		} else {
			p = p.elem(int(n.Int))
		}
	}

	return Value{Kind: KindPtr, Ptr: p}, nil
}

// -----------------------------------------------------------------------------

// exec executes a single non-terminator instruction.
func (m *Machine) exec(fr *frame, inst ir.Instruction) error {
	switch v := inst.(type) {
	case *ir.InstAlloca:
		c := &cell{name: "%" + v.Name(), val: zeroOf(v.ElemType)}
		fr.set(v, Value{Kind: KindPtr, Ptr: Pointer{cell: c}})
	case *ir.InstLoad:
		p, err := m.evalPtr(fr, v.Src)
		if err != nil {
			return err
		}

		val, err := p.load()
		if err != nil {
			return err
		}

		fr.set(v, val)
	case *ir.InstStore:
		val, err := m.eval(fr, v.Src)
		if err != nil {
			return err
		}

		p, err := m.evalPtr(fr, v.Dst)
		if err != nil {
			return err
		}

		return p.store(val)
	case *ir.InstGetElementPtr:
		src, err := m.eval(fr, v.Src)
		if err != nil {
			return err
		}

		val, err := m.gep(fr, src, v.Indices)
		if err != nil {
			return err
		}

		fr.set(v, val)
	case *ir.InstAdd:
		return m.intOp(fr, v, v.X, v.Y, func(x, y int64) (int64, error) { return x + y, nil })
	case *ir.InstSub:
		return m.intOp(fr, v, v.X, v.Y, func(x, y int64) (int64, error) { return x - y, nil })
	case *ir.InstMul:
		return m.intOp(fr, v, v.X, v.Y, func(x, y int64) (int64, error) { return x * y, nil })
	case *ir.InstSDiv:
		return m.intOp(fr, v, v.X, v.Y, func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, ErrDivideByZero
			}

			return x / y, nil
		})
	case *ir.InstSRem:
		return m.intOp(fr, v, v.X, v.Y, func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, ErrDivideByZero
			}

			return x % y, nil
		})
	case *ir.InstFAdd:
		return m.floatOp(fr, v, v.X, v.Y, func(x, y float64) float64 { return x + y })
	case *ir.InstFSub:
		return m.floatOp(fr, v, v.X, v.Y, func(x, y float64) float64 { return x - y })
	case *ir.InstFMul:
		return m.floatOp(fr, v, v.X, v.Y, func(x, y float64) float64 { return x * y })
	case *ir.InstFDiv:
		return m.floatOp(fr, v, v.X, v.Y, func(x, y float64) float64 { return x / y })
	case *ir.InstFRem:
		return m.floatOp(fr, v, v.X, v.Y, math.Mod)
	case *ir.InstICmp:
		x, y, err := m.evalPair(fr, v.X, v.Y)
		if err != nil {
			return err
		}

		result, err := icmp(v.Pred, x.Int, y.Int)
		if err != nil {
			return err
		}

		fr.set(v, boolValue(result))
	case *ir.InstFCmp:
		x, y, err := m.evalPair(fr, v.X, v.Y)
		if err != nil {
			return err
		}

		result, err := fcmp(v.Pred, x.Float, y.Float)
		if err != nil {
			return err
		}

		fr.set(v, boolValue(result))
	case *ir.InstFPExt:
		x, err := m.eval(fr, v.From)
		if err != nil {
			return err
		}

		fr.set(v, Float(x.Float))
	case *ir.InstFPTrunc:
		x, err := m.eval(fr, v.From)
		if err != nil {
			return err
		}

		fr.set(v, Float(roundFloat(x.Float, v.To)))
	case *ir.InstCall:
		callee, err := m.eval(fr, v.Callee)
		if err != nil {
			return err
		}

		if callee.Kind != KindFunc {
			return fmt.Errorf("call to a non-function")
		}

		args := make([]Value, len(v.Args))
		for i, arg := range v.Args {
			if args[i], err = m.eval(fr, arg); err != nil {
				return err
			}
		}

		result, err := m.call(callee.Func, args)
		if err != nil {
			return err
		}

		fr.set(v, result)
	default:
		return fmt.Errorf("unsupported instruction %T", inst)
	}

	return nil
}

// execTerm executes a terminator.  It returns either the next block or the
// function's result.
func (m *Machine) execTerm(fr *frame, term ir.Terminator) (*ir.Block, Value, bool, error) {
	switch v := term.(type) {
	case *ir.TermRet:
		if v.X == nil {
			return nil, Value{}, true, nil
		}

		result, err := m.eval(fr, v.X)
		return nil, result, true, err
	case *ir.TermBr:
		target, ok := asBlock(v.Target)
		if !ok {
			return nil, Value{}, false, fmt.Errorf("branch to a non-block")
		}

		return target, Value{}, false, nil
	case *ir.TermCondBr:
		cond, err := m.eval(fr, v.Cond)
		if err != nil {
			return nil, Value{}, false, err
		}

		next := v.TargetFalse
		if cond.Int != 0 {
			next = v.TargetTrue
		}

		target, ok := asBlock(next)
		if !ok {
			return nil, Value{}, false, fmt.Errorf("branch to a non-block")
		}

		return target, Value{}, false, nil
	case *ir.TermUnreachable:
		return nil, Value{}, false, fmt.Errorf("reached unreachable")
	case nil:
		return nil, Value{}, false, fmt.Errorf("block has no terminator")
	}

	return nil, Value{}, false, fmt.Errorf("unsupported terminator %T", term)
}

// -----------------------------------------------------------------------------

func (m *Machine) evalPair(fr *frame, x, y value.Value) (Value, Value, error) {
	xv, err := m.eval(fr, x)
	if err != nil {
		return Value{}, Value{}, err
	}

	yv, err := m.eval(fr, y)
	if err != nil {
		return Value{}, Value{}, err
	}

	return xv, yv, nil
}

func (m *Machine) intOp(fr *frame, inst value.Value, x, y value.Value, op func(x, y int64) (int64, error)) error {
	xv, yv, err := m.evalPair(fr, x, y)
	if err != nil {
		return err
	}

	result, err := op(xv.Int, yv.Int)
	if err != nil {
		return err
	}

	fr.set(inst, Int(wrapInt(result, inst.Type())))
	return nil
}

func (m *Machine) floatOp(fr *frame, inst value.Value, x, y value.Value, op func(x, y float64) float64) error {
	xv, yv, err := m.evalPair(fr, x, y)
	if err != nil {
		return err
	}

	fr.set(inst, Float(roundFloat(op(xv.Float, yv.Float), inst.Type())))
	return nil
}

func boolValue(b bool) Value {
	if b {
		return Int(1)
	}

	return Int(0)
}

func icmp(pred enum.IPred, x, y int64) (bool, error) {
	switch pred {
	case enum.IPredEQ:
		return x == y, nil
	case enum.IPredNE:
		return x != y, nil
	case enum.IPredSLT:
		return x < y, nil
	case enum.IPredSLE:
		return x <= y, nil
	case enum.IPredSGT:
		return x > y, nil
	case enum.IPredSGE:
		return x >= y, nil
	case enum.IPredULT:
		return uint32(x) < uint32(y), nil
	case enum.IPredULE:
		return uint32(x) <= uint32(y), nil
	case enum.IPredUGT:
		return uint32(x) > uint32(y), nil
	case enum.IPredUGE:
		return uint32(x) >= uint32(y), nil
	}

	return false, fmt.Errorf("unsupported integer predicate %v", pred)
}

func fcmp(pred enum.FPred, x, y float64) (bool, error) {
	ordered := !math.IsNaN(x) && !math.IsNaN(y)

	switch pred {
	case enum.FPredOEQ:
		return ordered && x == y, nil
	case enum.FPredONE:
		return ordered && x != y, nil
	case enum.FPredOLT:
		return ordered && x < y, nil
	case enum.FPredOLE:
		return ordered && x <= y, nil
	case enum.FPredOGT:
		return ordered && x > y, nil
	case enum.FPredOGE:
		return ordered && x >= y, nil
	case enum.FPredORD:
		return ordered, nil
	case enum.FPredUNO:
		return !ordered, nil
	}

	return false, fmt.Errorf("unsupported float predicate %v", pred)
}
