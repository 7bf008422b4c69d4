package generate

import (
	"lowc/ast"
	"lowc/report"
	"lowc/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// Value is a lowered value tagged with its data type.
type Value struct {
	LL   value.Value
	Type typing.DataType
}

// funcState is the state of a function whose body is being lowered.
type funcState struct {
	fn *Function

	// scopes is the function's own scope chain: functions never see the
	// locals of the function they are nested in.
	scopes *ScopeChain

	// entry is the entry block.  All allocas are placed at its start.
	entry *ir.Block

	// allocaCount is the number of allocas at the start of the entry block.
	allocaCount int
}

// Generator lowers syntax trees into an LLVM module.  A generator is
// single-threaded: separate programs should use separate generators.
type Generator struct {
	registry *Registry
	builder  *Builder

	// fs is the function currently being lowered or nil at the top level.
	fs *funcState

	// arms is the stack of write trackers for the conditional arms and loop
	// bodies enclosing the cursor in the current function.
	arms []*armTracker

	// warnings accumulates non-fatal diagnostics.
	warnings []string
}

// NewGenerator creates a new generator for a module of the given name.
func NewGenerator(name string) *Generator {
	return &Generator{
		registry: NewRegistry(name),
		builder:  NewBuilder(),
	}
}

// Module returns the module being generated.
func (g *Generator) Module() *ir.Module {
	return g.registry.Module()
}

// Registry returns the generator's registry.
func (g *Generator) Registry() *Registry {
	return g.registry
}

// Builder returns the generator's builder.
func (g *Generator) Builder() *Builder {
	return g.builder
}

// Warnings returns the warnings produced so far.
func (g *Generator) Warnings() []string {
	return g.warnings
}

func (g *Generator) warn(msg string) {
	if g.fs != nil {
		msg = "in function `" + g.fs.fn.Name + "`: " + msg
	}

	g.warnings = append(g.warnings, msg)
}

// -----------------------------------------------------------------------------

// Generate lowers a whole program.  All globals and function signatures are
// declared before any body is lowered so that functions may be referenced
// before their definition.  Generation stops at the first error.
func (g *Generator) Generate(prog *ast.Program) (*ir.Module, error) {
	for _, gdecl := range prog.Globals {
		if err := g.DeclareGlobal(gdecl); err != nil {
			return nil, err
		}
	}

	for _, fdef := range prog.Funcs {
		if _, err := g.declareFunc(fdef); err != nil {
			return nil, err
		}
	}

	for _, fdef := range prog.Funcs {
		if err := g.LowerFunction(fdef); err != nil {
			return nil, err
		}
	}

	return g.Module(), nil
}

// DeclareGlobal declares a global variable.  Its initializer must be a
// constant of the declared type.
func (g *Generator) DeclareGlobal(gdecl *ast.GlobalDecl) error {
	dt := gdecl.Type
	if dt == nil {
		if gdecl.Initializer == nil {
			return report.Raise(report.TypeMismatch, "global `"+gdecl.Name+"`", "a global needs a type or an initializer")
		}

		dt = constType(gdecl.Initializer)
	}

	init, err := g.genConstant(gdecl.Initializer, dt, "global `"+gdecl.Name+"`")
	if err != nil {
		return err
	}

	_, err = g.registry.DeclareGlobal(gdecl.Name, dt, init)
	return err
}

// LowerFunction lowers a single function definition.  The function is
// declared first if it has not been already.
func (g *Generator) LowerFunction(fdef *ast.FuncDef) error {
	fn, err := g.registry.ResolveFunction(fdef.Name)
	if err != nil {
		fn, err = g.declareFunc(fdef)
		if err != nil {
			return err
		}
	} else if fn.External || fn.Defined || !sameSignature(fn, fdef) {
		return report.Raise(report.DuplicateDeclaration, "function `"+fdef.Name+"`", "function `%s` is already defined", fdef.Name)
	}

	return g.genFunc(fn, fdef.Body)
}

// sameSignature returns whether a definition matches the signature a function
// was declared with.
func sameSignature(fn *Function, fdef *ast.FuncDef) bool {
	if len(fn.Params) != len(fdef.Params) {
		return false
	}

	for i, param := range fdef.Params {
		if !typing.Equals(param.Type, fn.Params[i].Type) {
			return false
		}
	}

	rtType := fdef.ReturnType
	if rtType == nil {
		rtType = typing.PrimVoid
	}

	return typing.Equals(rtType, fn.ReturnType)
}
