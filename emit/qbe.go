package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Word types: the QBE base type used for pointers.
const (
	WordLong  = "l"
	WordShort = "w"
)

// translator converts an LLVM module into QBE IL.  It supports the subset of
// LLVM emitted by the generator.  Aggregates are handled the way QBE does:
// an aggregate value is the address of its storage.
type translator struct {
	wordType string

	typeDefs strings.Builder
	data     strings.Builder
	funcs    strings.Builder

	// aggNames maps struct types to their QBE aggregate names.
	aggNames map[string]string

	// names are the QBE temporaries of the current function.
	names    map[value.Value]string
	used     map[string]struct{}
	tempSeed int

	// prologue holds the allocations hoisted into the start block.
	prologue []string
}

// TranslateQBE converts a module into QBE IL.  Functions without a body are
// assumed to be provided by the C library.
func TranslateQBE(mod *ir.Module, wordType string) (string, error) {
	if wordType != WordLong && wordType != WordShort {
		return "", fmt.Errorf("invalid word type `%s`", wordType)
	}

	t := &translator{
		wordType: wordType,
		aggNames: make(map[string]string),
	}

	for _, g := range mod.Globals {
		if err := t.genGlobal(g); err != nil {
			return "", fmt.Errorf("global `%s`: %w", g.Name(), err)
		}
	}

	for _, fn := range mod.Funcs {
		if len(fn.Blocks) == 0 {
			continue
		}

		if err := t.genFunc(fn); err != nil {
			return "", fmt.Errorf("function `%s`: %w", fn.Name(), err)
		}
	}

	var sb strings.Builder
	sb.WriteString(t.typeDefs.String())
	sb.WriteString(t.data.String())
	sb.WriteString(t.funcs.String())
	return sb.String(), nil
}

// -----------------------------------------------------------------------------

// qbeType returns the QBE type of a first class value.
func (t *translator) qbeType(typ types.Type) (string, error) {
	switch v := typ.(type) {
	case *types.IntType:
		if v.BitSize > 32 {
			return "l", nil
		}

		return "w", nil
	case *types.FloatType:
		if v.Kind == types.FloatKindFloat {
			return "s", nil
		}

		return "d", nil
	case *types.PointerType:
		return t.wordType, nil
	case *types.StructType:
		name, err := t.aggName(v)
		if err != nil {
			return "", err
		}

		return ":" + name, nil
	}

	return "", fmt.Errorf("type %s has no QBE equivalent", typ)
}

// memType returns the suffix of the load or store of a scalar type.
func (t *translator) memType(typ types.Type) (string, error) {
	if it, ok := typ.(*types.IntType); ok && it.BitSize <= 8 {
		return "b", nil
	}

	return t.qbeType(typ)
}

// aggName returns the name of the aggregate type of a struct, defining it on
// first use.
func (t *translator) aggName(st *types.StructType) (string, error) {
	key := st.String()
	if name, ok := t.aggNames[key]; ok {
		return name, nil
	}

	fields := make([]string, len(st.Fields))
	for i, field := range st.Fields {
		ft, err := t.memType(field)
		if err != nil {
			return "", err
		}

		fields[i] = ft
	}

	name := st.Name()
	if name == "" {
		name = fmt.Sprintf("anon.%d", len(t.aggNames))
	}

	t.aggNames[key] = name
	fmt.Fprintf(&t.typeDefs, "type :%s = { %s }\n", name, strings.Join(fields, ", "))
	return name, nil
}

// -----------------------------------------------------------------------------

func (t *translator) genGlobal(g *ir.Global) error {
	items, err := t.dataItems(g.Init)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		items = []string{"z 1"}
	}

	if g.Linkage != enum.LinkagePrivate {
		t.data.WriteString("export ")
	}

	fmt.Fprintf(&t.data, "data $%s = { %s }\n", g.Name(), strings.Join(items, ", "))
	return nil
}

// dataItems lays out a constant as QBE data items.
func (t *translator) dataItems(c constant.Constant) ([]string, error) {
	switch v := c.(type) {
	case *constant.Int:
		ty, err := t.memType(v.Typ)
		if err != nil {
			return nil, err
		}

		return []string{ty + " " + v.X.String()}, nil
	case *constant.Float:
		ty, err := t.qbeType(v.Typ)
		if err != nil {
			return nil, err
		}

		lit, err := t.operand(v)
		if err != nil {
			return nil, err
		}

		return []string{ty + " " + lit}, nil
	case *constant.CharArray:
		s := strings.TrimRight(string(v.X), "\x00")
		if s == "" {
			return []string{"b 0"}, nil
		}

		return []string{"b " + strconv.Quote(s), "b 0"}, nil
	case *constant.ZeroInitializer:
		size, _, err := t.sizeOf(v.Type())
		if err != nil {
			return nil, err
		}

		if size == 0 {
			return nil, nil
		}

		return []string{fmt.Sprintf("z %d", size)}, nil
	case *constant.Struct:
		var items []string
		var offset int64

		st, ok := v.Type().(*types.StructType)
		if !ok {
			return nil, fmt.Errorf("struct constant of type %s", v.Type())
		}

		for i, field := range v.Fields {
			fieldOffset, err := t.fieldOffset(st, i)
			if err != nil {
				return nil, err
			}

			if fieldOffset > offset {
				items = append(items, fmt.Sprintf("z %d", fieldOffset-offset))
			}

			sub, err := t.dataItems(field)
			if err != nil {
				return nil, err
			}

			size, _, err := t.sizeOf(field.Type())
			if err != nil {
				return nil, err
			}

			items = append(items, sub...)
			offset = fieldOffset + size
		}

		return items, nil
	case *constant.Array:
		var items []string
		for _, elem := range v.Elems {
			sub, err := t.dataItems(elem)
			if err != nil {
				return nil, err
			}

			items = append(items, sub...)
		}

		return items, nil
	}

	return nil, fmt.Errorf("unsupported initializer %s", c)
}

// -----------------------------------------------------------------------------

// operand formats a value used as an instruction argument.
func (t *translator) operand(v value.Value) (string, error) {
	switch x := v.(type) {
	case *constant.Int:
		return x.X.String(), nil
	case *constant.Float:
		f, _ := x.X.Float64()
		if x.Typ.Kind == types.FloatKindFloat {
			return "s_" + strconv.FormatFloat(f, 'g', -1, 32), nil
		}

		return "d_" + strconv.FormatFloat(f, 'g', -1, 64), nil
	case *constant.Null:
		return "0", nil
	case *constant.ExprGetElementPtr:
		g, ok := x.Src.(*ir.Global)
		if !ok {
			return "", fmt.Errorf("constant address of %s", x.Src.Ident())
		}

		indices := make([]value.Value, len(x.Indices))
		for i, ndx := range x.Indices {
			indices[i] = ndx
		}

		offset, err := t.gepOffset(x.ElemType, indices)
		if err != nil {
			return "", err
		}

		if offset != 0 {
			return "", fmt.Errorf("constant offset into `%s`", g.Name())
		}

		return "$" + g.Name(), nil
	case *ir.Global:
		return "$" + x.Name(), nil
	case *ir.Func:
		return "$" + x.Name(), nil
	}

	if name, ok := t.names[v]; ok {
		return name, nil
	}

	return "", fmt.Errorf("use of undefined value %s", v.Ident())
}

// local returns the temporary holding a local value, creating it if needed.
func (t *translator) local(v value.Value) string {
	if name, ok := t.names[v]; ok {
		return name
	}

	hint := ""
	if named, ok := v.(interface{ Name() string }); ok {
		hint = named.Name()
	}

	// values left unnamed are numbered by LLVM and get fresh temporaries
	var name string
	if _, err := strconv.Atoi(hint); err == nil || hint == "" {
		name = t.temp()
	} else {
		name = "%" + hint
		for i := 1; t.isUsed(name); i++ {
			name = fmt.Sprintf("%%%s.%d", hint, i)
		}

		t.used[name] = struct{}{}
	}

	t.names[v] = name
	return name
}

func (t *translator) isUsed(name string) bool {
	_, ok := t.used[name]
	return ok
}

// temp returns a fresh temporary.
func (t *translator) temp() string {
	for {
		t.tempSeed++

		name := fmt.Sprintf("%%.t%d", t.tempSeed)
		if !t.isUsed(name) {
			t.used[name] = struct{}{}
			return name
		}
	}
}

// gepOffset computes the byte offset of an element address.  Every index must
// be a constant.
func (t *translator) gepOffset(elemType types.Type, indices []value.Value) (int64, error) {
	var offset int64
	typ := elemType

	for i, ndx := range indices {
		c, ok := ndx.(*constant.Int)
		if !ok {
			return 0, fmt.Errorf("non-constant element index")
		}

		n := c.X.Int64()

		if i == 0 {
			size, _, err := t.sizeOf(typ)
			if err != nil {
				return 0, err
			}

			offset += n * size
			continue
		}

		switch v := typ.(type) {
		case *types.StructType:
			fieldOffset, err := t.fieldOffset(v, int(n))
			if err != nil {
				return 0, err
			}

			offset += fieldOffset
			typ = v.Fields[n]
		case *types.ArrayType:
			size, _, err := t.sizeOf(v.ElemType)
			if err != nil {
				return 0, err
			}

			offset += n * size
			typ = v.ElemType
		default:
			return 0, fmt.Errorf("cannot index into %s", typ)
		}
	}

	return offset, nil
}

// -----------------------------------------------------------------------------

func (t *translator) genFunc(fn *ir.Func) error {
	t.names = make(map[value.Value]string)
	t.used = make(map[string]struct{})
	t.tempSeed = 0
	t.prologue = nil

	retType := ""
	if !fn.Sig.RetType.Equal(types.Void) {
		rt, err := t.qbeType(fn.Sig.RetType)
		if err != nil {
			return err
		}

		retType = " " + rt
	}

	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		pt, err := t.qbeType(param.Type())
		if err != nil {
			return err
		}

		params[i] = pt + " " + t.local(param)
	}

	if fn.Sig.Variadic {
		params = append(params, "...")
	}

	// every block label and result is named up front so that phis and
	// branches can refer forward
	for _, block := range fn.Blocks {
		for _, inst := range block.Insts {
			if v, ok := inst.(value.Value); ok && !isVoid(v) {
				t.local(v)
			}
		}
	}

	var blocks [][]string
	for _, block := range fn.Blocks {
		lines := []string{"@" + block.Name()}

		for _, inst := range block.Insts {
			instLines, err := t.genInst(inst)
			if err != nil {
				return fmt.Errorf("in block `%s`: %w", block.Name(), err)
			}

			lines = append(lines, instLines...)
		}

		termLine, err := t.genTerm(block.Term)
		if err != nil {
			return fmt.Errorf("in block `%s`: %w", block.Name(), err)
		}

		blocks = append(blocks, append(lines, termLine))
	}

	fmt.Fprintf(&t.funcs, "\nexport function%s $%s(%s) {\n", retType, fn.Name(), strings.Join(params, ", "))
	for i, lines := range blocks {
		t.funcs.WriteString(lines[0] + "\n")

		if i == 0 {
			for _, line := range t.prologue {
				t.funcs.WriteString("\t" + line + "\n")
			}
		}

		for _, line := range lines[1:] {
			t.funcs.WriteString("\t" + line + "\n")
		}
	}
	t.funcs.WriteString("}\n")

	return nil
}

func isVoid(v value.Value) bool {
	return v.Type().Equal(types.Void)
}

var intCmps = map[enum.IPred]string{
	enum.IPredEQ:  "ceq",
	enum.IPredNE:  "cne",
	enum.IPredSLT: "cslt",
	enum.IPredSLE: "csle",
	enum.IPredSGT: "csgt",
	enum.IPredSGE: "csge",
	enum.IPredULT: "cult",
	enum.IPredULE: "cule",
	enum.IPredUGT: "cugt",
	enum.IPredUGE: "cuge",
}

var floatCmps = map[enum.FPred]string{
	enum.FPredOEQ: "ceq",
	enum.FPredONE: "cne",
	enum.FPredOLT: "clt",
	enum.FPredOLE: "cle",
	enum.FPredOGT: "cgt",
	enum.FPredOGE: "cge",
	enum.FPredORD: "co",
	enum.FPredUNO: "cuo",
}

// genInst translates a single instruction into lines of QBE.
func (t *translator) genInst(inst ir.Instruction) ([]string, error) {
	switch v := inst.(type) {
	case *ir.InstAlloca:
		size, align, err := t.sizeOf(v.ElemType)
		if err != nil {
			return nil, err
		}

		return []string{fmt.Sprintf("%s =%s %s %d", t.local(v), t.wordType, allocOp(align), size)}, nil
	case *ir.InstLoad:
		return t.genLoad(v)
	case *ir.InstStore:
		return t.genStore(v)
	case *ir.InstGetElementPtr:
		offset, err := t.gepOffset(v.ElemType, v.Indices)
		if err != nil {
			return nil, err
		}

		src, err := t.operand(v.Src)
		if err != nil {
			return nil, err
		}

		return []string{fmt.Sprintf("%s =%s add %s, %d", t.local(v), t.wordType, src, offset)}, nil
	case *ir.InstAdd:
		return t.binary(v, "add", v.X, v.Y)
	case *ir.InstSub:
		return t.binary(v, "sub", v.X, v.Y)
	case *ir.InstMul:
		return t.binary(v, "mul", v.X, v.Y)
	case *ir.InstSDiv:
		return t.binary(v, "div", v.X, v.Y)
	case *ir.InstSRem:
		return t.binary(v, "rem", v.X, v.Y)
	case *ir.InstFAdd:
		return t.binary(v, "add", v.X, v.Y)
	case *ir.InstFSub:
		return t.binary(v, "sub", v.X, v.Y)
	case *ir.InstFMul:
		return t.binary(v, "mul", v.X, v.Y)
	case *ir.InstFDiv:
		return t.binary(v, "div", v.X, v.Y)
	case *ir.InstFRem:
		return nil, fmt.Errorf("QBE has no floating point remainder")
	case *ir.InstICmp:
		op, ok := intCmps[v.Pred]
		if !ok {
			return nil, fmt.Errorf("unsupported integer predicate %v", v.Pred)
		}

		return t.compare(v, op, v.X, v.Y)
	case *ir.InstFCmp:
		op, ok := floatCmps[v.Pred]
		if !ok {
			return nil, fmt.Errorf("unsupported float predicate %v", v.Pred)
		}

		return t.compare(v, op, v.X, v.Y)
	case *ir.InstFPExt:
		return t.convert(v, "exts", v.From)
	case *ir.InstFPTrunc:
		return t.convert(v, "truncd", v.From)
	case *ir.InstCall:
		return t.genCall(v)
	case *ir.InstPhi:
		ty, err := t.qbeType(v.Type())
		if err != nil {
			return nil, err
		}

		incs := make([]string, len(v.Incs))
		for i, inc := range v.Incs {
			pred, ok := asBlock(inc.Pred)
			if !ok {
				return nil, fmt.Errorf("phi predecessor is not a block")
			}

			x, err := t.operand(inc.X)
			if err != nil {
				return nil, err
			}

			incs[i] = "@" + pred.Name() + " " + x
		}

		return []string{fmt.Sprintf("%s =%s phi %s", t.local(v), ty, strings.Join(incs, ", "))}, nil
	}

	return nil, fmt.Errorf("unsupported instruction %T", inst)
}

func allocOp(align int64) string {
	switch {
	case align <= 4:
		return "alloc4"
	case align <= 8:
		return "alloc8"
	default:
		return "alloc16"
	}
}

func (t *translator) binary(result value.Value, op string, x, y value.Value) ([]string, error) {
	ty, err := t.qbeType(result.Type())
	if err != nil {
		return nil, err
	}

	xs, err := t.operand(x)
	if err != nil {
		return nil, err
	}

	ys, err := t.operand(y)
	if err != nil {
		return nil, err
	}

	return []string{fmt.Sprintf("%s =%s %s %s, %s", t.local(result), ty, op, xs, ys)}, nil
}

// compare generates a comparison.  The result is always a word.
func (t *translator) compare(result value.Value, op string, x, y value.Value) ([]string, error) {
	ty, err := t.qbeType(x.Type())
	if err != nil {
		return nil, err
	}

	xs, err := t.operand(x)
	if err != nil {
		return nil, err
	}

	ys, err := t.operand(y)
	if err != nil {
		return nil, err
	}

	return []string{fmt.Sprintf("%s =w %s%s %s, %s", t.local(result), op, ty, xs, ys)}, nil
}

func (t *translator) convert(result value.Value, op string, from value.Value) ([]string, error) {
	ty, err := t.qbeType(result.Type())
	if err != nil {
		return nil, err
	}

	x, err := t.operand(from)
	if err != nil {
		return nil, err
	}

	return []string{fmt.Sprintf("%s =%s %s %s", t.local(result), ty, op, x)}, nil
}

// genLoad loads a scalar or copies an aggregate into a fresh stack slot.
func (t *translator) genLoad(v *ir.InstLoad) ([]string, error) {
	src, err := t.operand(v.Src)
	if err != nil {
		return nil, err
	}

	if _, ok := v.ElemType.(*types.StructType); ok {
		size, align, err := t.sizeOf(v.ElemType)
		if err != nil {
			return nil, err
		}

		t.prologue = append(t.prologue, fmt.Sprintf("%s =%s %s %d", t.local(v), t.wordType, allocOp(align), size))
		return []string{fmt.Sprintf("blit %s, %s, %d", src, t.local(v), size)}, nil
	}

	ty, err := t.qbeType(v.ElemType)
	if err != nil {
		return nil, err
	}

	mt, err := t.memType(v.ElemType)
	if err != nil {
		return nil, err
	}

	op := "load" + mt
	if mt == "b" {
		op, ty = "loadub", "w"
	}

	return []string{fmt.Sprintf("%s =%s %s %s", t.local(v), ty, op, src)}, nil
}

// genStore stores a scalar or copies an aggregate.  Constant aggregates are
// stored scalar by scalar.
func (t *translator) genStore(v *ir.InstStore) ([]string, error) {
	dst, err := t.operand(v.Dst)
	if err != nil {
		return nil, err
	}

	srcType := v.Src.Type()
	if _, ok := srcType.(*types.StructType); !ok {
		return t.storeScalar(v.Src, dst)
	}

	switch c := v.Src.(type) {
	case *constant.ZeroInitializer:
		leaves, err := t.leaves(srcType, 0)
		if err != nil {
			return nil, err
		}

		var lines []string
		for _, lf := range leaves {
			addr := t.temp()
			lines = append(lines, fmt.Sprintf("%s =%s add %s, %d", addr, t.wordType, dst, lf.offset))

			line, err := t.storeZero(lf.typ, addr)
			if err != nil {
				return nil, err
			}

			lines = append(lines, line)
		}

		return lines, nil
	case constant.Constant:
		return nil, fmt.Errorf("unsupported aggregate constant %s", c)
	}

	size, _, err := t.sizeOf(srcType)
	if err != nil {
		return nil, err
	}

	src, err := t.operand(v.Src)
	if err != nil {
		return nil, err
	}

	return []string{fmt.Sprintf("blit %s, %s, %d", src, dst, size)}, nil
}

func (t *translator) storeScalar(src value.Value, dst string) ([]string, error) {
	mt, err := t.memType(src.Type())
	if err != nil {
		return nil, err
	}

	x, err := t.operand(src)
	if err != nil {
		return nil, err
	}

	return []string{fmt.Sprintf("store%s %s, %s", mt, x, dst)}, nil
}

func (t *translator) storeZero(typ types.Type, addr string) (string, error) {
	mt, err := t.memType(typ)
	if err != nil {
		return "", err
	}

	zero := "0"
	switch mt {
	case "s":
		zero = "s_0"
	case "d":
		zero = "d_0"
	}

	return fmt.Sprintf("store%s %s, %s", mt, zero, addr), nil
}

// genCall translates a call.  Arguments past the fixed parameters of a
// variadic callee follow the `...` marker.
func (t *translator) genCall(v *ir.InstCall) ([]string, error) {
	callee, ok := v.Callee.(*ir.Func)
	if !ok {
		return nil, fmt.Errorf("indirect calls are not supported")
	}

	var args []string
	for i, arg := range v.Args {
		if callee.Sig.Variadic && i == len(callee.Sig.Params) {
			args = append(args, "...")
		}

		ty, err := t.qbeType(arg.Type())
		if err != nil {
			return nil, err
		}

		x, err := t.operand(arg)
		if err != nil {
			return nil, err
		}

		args = append(args, ty+" "+x)
	}

	if callee.Sig.Variadic && len(v.Args) <= len(callee.Sig.Params) {
		args = append(args, "...")
	}

	call := fmt.Sprintf("call $%s(%s)", callee.Name(), strings.Join(args, ", "))
	if isVoid(v) {
		return []string{call}, nil
	}

	ty, err := t.qbeType(v.Type())
	if err != nil {
		return nil, err
	}

	return []string{fmt.Sprintf("%s =%s %s", t.local(v), ty, call)}, nil
}

// genTerm translates a terminator.
func (t *translator) genTerm(term ir.Terminator) (string, error) {
	switch v := term.(type) {
	case *ir.TermRet:
		if v.X == nil {
			return "ret", nil
		}

		x, err := t.operand(v.X)
		if err != nil {
			return "", err
		}

		return "ret " + x, nil
	case *ir.TermBr:
		target, ok := asBlock(v.Target)
		if !ok {
			return "", fmt.Errorf("branch to a non-block")
		}

		return "jmp @" + target.Name(), nil
	case *ir.TermCondBr:
		cond, err := t.operand(v.Cond)
		if err != nil {
			return "", err
		}

		ifTrue, ok := asBlock(v.TargetTrue)
		if !ok {
			return "", fmt.Errorf("branch to a non-block")
		}

		ifFalse, ok := asBlock(v.TargetFalse)
		if !ok {
			return "", fmt.Errorf("branch to a non-block")
		}

		return fmt.Sprintf("jnz %s, @%s, @%s", cond, ifTrue.Name(), ifFalse.Name()), nil
	case *ir.TermUnreachable:
		return "hlt", nil
	case nil:
		return "", fmt.Errorf("block has no terminator")
	}

	return "", fmt.Errorf("unsupported terminator %T", term)
}

// asBlock converts a branch target or phi predecessor to a block.
func asBlock(x interface{}) (*ir.Block, bool) {
	block, ok := x.(*ir.Block)
	return block, ok
}
