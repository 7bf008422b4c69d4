package generate

import (
	"fmt"
	"lowc/ast"
	"lowc/report"
	"lowc/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Function is the registry's handle to a declared function.
type Function struct {
	Name       string
	Params     []ast.FuncParam
	ReturnType typing.DataType

	// Variadic functions accept any number of arguments after their fixed
	// parameters.
	Variadic bool

	// External functions are imported: they never receive a body.
	External bool

	// Defined indicates that the function's body has been lowered.
	Defined bool

	// LL is the LLVM function.
	LL *ir.Func
}

// Global is the registry's handle to a module-level variable.
type Global struct {
	Name string
	Type typing.DataType
	Init constant.Constant
	LL   *ir.Global
}

// structEntry is a named struct type and its LLVM type definition.
type structEntry struct {
	dt *typing.StructType
	ll types.Type
}

// Registry is the module-wide table of globals, functions and imports.  It
// owns the LLVM module being populated.  Lookups are pure reads: they return
// the same handle every time and never modify the module.
type Registry struct {
	mod *ir.Module

	globals     map[string]*Global
	globalOrder []*Global

	funcs     map[string]*Function
	funcOrder []*Function

	structs map[string]structEntry

	// strs interns string literals by content.  strOrder records the order in
	// which they were created so that they can be rolled back.
	strs     map[string]*ir.Global
	strOrder []string
}

// NewRegistry creates a new registry for a module of the given name.  The
// imported printf function is declared immediately.
func NewRegistry(name string) *Registry {
	r := &Registry{
		mod:     ir.NewModule(),
		globals: make(map[string]*Global),
		funcs:   make(map[string]*Function),
		structs: make(map[string]structEntry),
		strs:    make(map[string]*ir.Global),
	}
	r.mod.SourceFilename = name

	r.declareImport("printf", []ast.FuncParam{{Name: "format", Type: typing.PrimText}}, typing.PrimNumber, true)

	return r
}

// Module returns the LLVM module populated by the registry.
func (r *Registry) Module() *ir.Module {
	return r.mod
}

// declareImport declares an external function.
func (r *Registry) declareImport(name string, params []ast.FuncParam, rtType typing.DataType, variadic bool) *Function {
	fn := &Function{
		Name:       name,
		Params:     params,
		ReturnType: rtType,
		Variadic:   variadic,
		External:   true,
		LL:         r.mod.NewFunc(name, r.convType(rtType), r.convParams(params)...),
	}
	fn.LL.Sig.Variadic = variadic

	r.funcs[name] = fn
	r.funcOrder = append(r.funcOrder, fn)
	return fn
}

func (r *Registry) convParams(params []ast.FuncParam) []*ir.Param {
	llParams := make([]*ir.Param, len(params))
	for i, param := range params {
		llParams[i] = ir.NewParam(param.Name, r.convType(param.Type))
	}

	return llParams
}

// -----------------------------------------------------------------------------

// DeclareGlobal declares a new global variable.  A nil initializer
// zero-initializes the global.
func (r *Registry) DeclareGlobal(name string, dt typing.DataType, init constant.Constant) (*Global, error) {
	construct := "global `" + name + "`"

	if _, ok := r.globals[name]; ok {
		return nil, report.Raise(report.DuplicateDeclaration, construct, "global `%s` is already declared", name)
	}

	if _, ok := r.funcs[name]; ok {
		return nil, report.Raise(report.DuplicateDeclaration, construct, "`%s` is already declared as a function", name)
	}

	if !typing.IsStorable(dt) {
		return nil, report.Raise(report.TypeMismatch, construct, "globals cannot be of type %s", dt.Repr())
	}

	if err := r.registerType(dt); err != nil {
		return nil, err
	}

	if init == nil {
		init = r.zeroValue(dt)
	}

	g := &Global{
		Name: name,
		Type: dt,
		Init: init,
		LL:   r.mod.NewGlobalDef(name, init),
	}

	r.globals[name] = g
	r.globalOrder = append(r.globalOrder, g)
	return g, nil
}

// DeclareFunction registers the signature of a function.  This must happen
// before its body is lowered so that the function may call itself.
func (r *Registry) DeclareFunction(name string, params []ast.FuncParam, rtType typing.DataType, variadic bool) (*Function, error) {
	construct := "function `" + name + "`"

	if _, ok := r.funcs[name]; ok {
		return nil, report.Raise(report.DuplicateDeclaration, construct, "function `%s` is already declared", name)
	}

	// globals and functions share the module's symbol namespace
	if _, ok := r.globals[name]; ok {
		return nil, report.Raise(report.DuplicateDeclaration, construct, "`%s` is already declared as a global", name)
	}

	seen := make(map[string]struct{})
	for _, param := range params {
		if _, ok := seen[param.Name]; ok {
			return nil, report.Raise(report.DuplicateDeclaration, construct, "parameter `%s` is declared more than once", param.Name)
		}
		seen[param.Name] = struct{}{}

		if !typing.IsStorable(param.Type) {
			return nil, report.Raise(report.TypeMismatch, construct, "parameter `%s` cannot be of type %s", param.Name, param.Type.Repr())
		}

		if err := r.registerType(param.Type); err != nil {
			return nil, err
		}
	}

	if rtType == nil {
		rtType = typing.PrimVoid
	} else if !typing.IsVoid(rtType) {
		if !typing.IsStorable(rtType) {
			return nil, report.Raise(report.TypeMismatch, construct, "functions cannot return %s", rtType.Repr())
		}

		if err := r.registerType(rtType); err != nil {
			return nil, err
		}
	}

	fn := &Function{
		Name:       name,
		Params:     params,
		ReturnType: rtType,
		Variadic:   variadic,
		LL:         r.mod.NewFunc(name, r.convType(rtType), r.convParams(params)...),
	}
	fn.LL.Sig.Variadic = variadic
	fn.LL.Linkage = enum.LinkageExternal

	r.funcs[name] = fn
	r.funcOrder = append(r.funcOrder, fn)
	return fn, nil
}

// ResolveFunction looks up a function by name.
func (r *Registry) ResolveFunction(name string) (*Function, error) {
	if fn, ok := r.funcs[name]; ok {
		return fn, nil
	}

	return nil, report.Raise(report.UndefinedFunction, "call to `"+name+"`", "no function named `%s` is declared", name)
}

// ResolveGlobal looks up a global by name.
func (r *Registry) ResolveGlobal(name string) (*Global, error) {
	if g, ok := r.globals[name]; ok {
		return g, nil
	}

	return nil, report.Raise(report.UndefinedSymbol, "reference to `"+name+"`", "`%s` is not defined", name)
}

// Functions returns all declared functions in declaration order.
func (r *Registry) Functions() []*Function {
	return r.funcOrder
}

// Globals returns all declared globals in declaration order.
func (r *Registry) Globals() []*Global {
	return r.globalOrder
}

// -----------------------------------------------------------------------------

// internString returns a pointer to the first character of a global holding
// the given string with a null terminator.  Identical strings share a global.
func (r *Registry) internString(s string) value.Value {
	g, ok := r.strs[s]
	if !ok {
		g = r.mod.NewGlobalDef(fmt.Sprintf("str.%d", len(r.strOrder)), constant.NewCharArrayFromString(s+"\x00"))
		g.Immutable = true
		g.Linkage = enum.LinkagePrivate

		r.strs[s] = g
		r.strOrder = append(r.strOrder, s)
	}

	return constant.NewGetElementPtr(
		types.NewArray(uint64(len(s)+1), types.I8),
		g,
		constant.NewInt(types.I32, 0),
		constant.NewInt(types.I32, 0),
	)
}

// stringMark records how many strings have been interned.
type stringMark struct {
	strCount, globalCount int
}

func (r *Registry) markStrings() stringMark {
	return stringMark{strCount: len(r.strOrder), globalCount: len(r.mod.Globals)}
}

// rollbackStrings discards every string interned since the mark was taken.
// Globals are only ever appended, so the interned strings are the tail of the
// module's global list.
func (r *Registry) rollbackStrings(m stringMark) {
	for _, s := range r.strOrder[m.strCount:] {
		delete(r.strs, s)
	}

	r.strOrder = r.strOrder[:m.strCount]
	r.mod.Globals = r.mod.Globals[:m.globalCount]
}
