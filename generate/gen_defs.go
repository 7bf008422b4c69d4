package generate

import (
	"lowc/ast"
	"lowc/report"
	"lowc/typing"
	"math"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// declareFunc registers the signature of a function definition.
func (g *Generator) declareFunc(fdef *ast.FuncDef) (*Function, error) {
	return g.registry.DeclareFunction(fdef.Name, fdef.Params, fdef.ReturnType, false)
}

// genFunc lowers the body of a declared function.  The builder's cursor is
// saved beforehand and restored afterward so that functions may be lowered in
// the middle of another function's body.  On failure, the function keeps its
// declaration but loses its partial body.
func (g *Generator) genFunc(fn *Function, body *ast.Block) (err error) {
	cursor := g.builder.Save()

	enclosing, enclosingArms := g.fs, g.arms
	g.fs = &funcState{fn: fn, scopes: NewScopeChain()}
	g.arms = nil

	defer func() {
		g.fs, g.arms = enclosing, enclosingArms

		if err != nil {
			g.builder.Discard(fn.LL)
			err = report.InFunc(err, fn.Name)
		}

		if rerr := g.builder.Restore(cursor); rerr != nil && err == nil {
			err = rerr
		}
	}()

	g.fs.entry = g.builder.CreateBlock(fn.LL, "entry")
	g.builder.PositionAt(g.fs.entry)

	// parameters are copied into stack slots so that they can be assigned to
	// like any other local
	for i, param := range fn.Params {
		slot := g.allocaLocal(param.Name+".addr", param.Type)

		block, err := g.builder.Insert()
		if err != nil {
			return err
		}

		block.NewStore(fn.LL.Params[i], slot)
		g.fs.scopes.Declare(param.Name, slot, param.Type)
	}

	if err := g.genBlock(body); err != nil {
		return err
	}

	// functions that fall off the end return the zero value of their return
	// type
	if g.builder.IsOpen() {
		var rtVal value.Value
		if !typing.IsVoid(fn.ReturnType) {
			rtVal = g.registry.zeroValue(fn.ReturnType)
		}

		if err := g.builder.TerminateWithReturn(rtVal); err != nil {
			return err
		}
	}

	g.builder.Seal(fn.LL)
	fn.Defined = true
	return nil
}

// allocaLocal allocates a stack slot for a local variable.  The alloca is
// placed in the entry block after any other allocas regardless of where the
// cursor is so that loops do not allocate on every iteration.
func (g *Generator) allocaLocal(name string, dt typing.DataType) *ir.InstAlloca {
	alloca := ir.NewAlloca(g.registry.convType(dt))
	alloca.SetName(g.builder.UniqueName(g.fs.fn.LL, name))

	entry := g.fs.entry
	entry.Insts = append(entry.Insts, nil)
	copy(entry.Insts[g.fs.allocaCount+1:], entry.Insts[g.fs.allocaCount:])
	entry.Insts[g.fs.allocaCount] = alloca
	g.fs.allocaCount++

	return alloca
}

// genFuncDefStmt lowers a function defined inside another function's body.
func (g *Generator) genFuncDefStmt(fds *ast.FuncDefStmt) error {
	fn, err := g.declareFunc(fds.Def)
	if err != nil {
		return err
	}

	return g.genFunc(fn, fds.Def.Body)
}

// -----------------------------------------------------------------------------

// constType returns the type of a constant expression, or nil if the
// expression is not a numeric constant.
func constType(expr ast.ASTExpr) typing.DataType {
	switch expr.(type) {
	case *ast.IntLit:
		return typing.PrimNumber
	case *ast.FloatLit:
		return typing.PrimFloat
	}

	return nil
}

// genConstant converts a constant initializer into an LLVM constant of the
// given type.  A nil expression yields a nil constant, meaning the zero value.
func (g *Generator) genConstant(expr ast.ASTExpr, dt typing.DataType, construct string) (constant.Constant, error) {
	if expr == nil {
		return nil, nil
	}

	if dt == nil {
		return nil, report.Raise(report.TypeMismatch, construct, "initializer %s is not a constant", expr.Describe())
	}

	switch v := expr.(type) {
	case *ast.IntLit:
		if typing.Equals(dt, typing.PrimNumber) {
			if v.Value < math.MinInt32 || v.Value > math.MaxInt32 {
				return nil, report.Raise(report.TypeMismatch, construct, "constant %d overflows a number", v.Value)
			}

			return constant.NewInt(types.I32, v.Value), nil
		}
	case *ast.FloatLit:
		if typing.Equals(dt, typing.PrimFloat) {
			return constant.NewFloat(types.Float, float64(float32(v.Value))), nil
		}
	default:
		return nil, report.Raise(report.TypeMismatch, construct, "initializer %s is not a constant", expr.Describe())
	}

	return nil, report.Raise(
		report.TypeMismatch,
		construct,
		"expected %s but got %s",
		dt.Repr(),
		constType(expr).Repr(),
	)
}
