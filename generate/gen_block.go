package generate

import (
	"lowc/ast"
	"lowc/report"
	"lowc/typing"
)

// genBlock generates a block of statements in a new scope.  Statements that
// follow a terminator are unreachable: they are skipped with a warning.
func (g *Generator) genBlock(block *ast.Block) error {
	g.fs.scopes.Push()
	defer g.fs.scopes.Pop()

	for _, stmt := range block.Stmts {
		if !g.builder.IsOpen() {
			g.warn("unreachable code: " + stmt.Describe())
			break
		}

		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}

	return nil
}

// genStmt generates a single statement.  Simple statements are generated
// atomically: if they fail, none of their instructions are kept.
func (g *Generator) genStmt(stmt ast.ASTStmt) error {
	switch v := stmt.(type) {
	case *ast.Block:
		return g.genBlock(v)
	case *ast.IfStmt:
		return g.genIf(v)
	case *ast.WhileLoop:
		return g.genWhile(v)
	case *ast.FuncDefStmt:
		return g.genFuncDefStmt(v)
	}

	cp := g.builder.checkpoint()
	sm := g.registry.markStrings()

	var err error
	switch v := stmt.(type) {
	case *ast.VarDecl:
		err = g.genVarDecl(v)
	case *ast.Assignment:
		err = g.genAssign(v)
	case *ast.ExprStmt:
		_, err = g.genExpr(v.Expr)
	case *ast.ReturnStmt:
		err = g.genReturn(v)
	default:
		err = report.Raise(report.TypeMismatch, stmt.Describe(), "unsupported statement")
	}

	if err != nil {
		g.builder.rollback(cp)
		g.registry.rollbackStrings(sm)
	}

	return err
}

// genVarDecl generates a variable declaration.  The new variable shadows any
// variable of the same name in an enclosing scope.
func (g *Generator) genVarDecl(vd *ast.VarDecl) error {
	dt := vd.Type

	var init *Value
	if vd.Initializer != nil {
		val, err := g.genExpr(vd.Initializer)
		if err != nil {
			return err
		}

		if dt == nil {
			dt = val.Type
		}

		if !typing.Equals(dt, val.Type) {
			return report.Raise(report.TypeMismatch, vd.Describe(), "expected %s but got %s", dt.Repr(), val.Type.Repr())
		}

		init = &val
	} else if dt == nil {
		return report.Raise(report.TypeMismatch, vd.Describe(), "a variable needs a type or an initializer")
	}

	if !typing.IsStorable(dt) {
		return report.Raise(report.TypeMismatch, vd.Describe(), "variables cannot hold %s", dt.Repr())
	}

	if err := g.registry.registerType(dt); err != nil {
		return err
	}

	block, err := g.builder.Insert()
	if err != nil {
		return err
	}

	// the alloca goes into the entry block and so it must come after every
	// check that can fail
	slot := g.allocaLocal(vd.Name, dt)

	if init != nil {
		block.NewStore(init.LL, slot)
	} else {
		block.NewStore(g.registry.zeroValue(dt), slot)
	}

	g.fs.scopes.Declare(vd.Name, slot, dt)
	return nil
}

// genAssign generates an assignment to an existing variable or struct field.
func (g *Generator) genAssign(as *ast.Assignment) error {
	switch target := as.Target.(type) {
	case *ast.Identifier:
		sym, err := g.lookup(target.Name)
		if err != nil {
			return err
		}

		val, err := g.genAssignValue(as, sym.Type)
		if err != nil {
			return err
		}

		block, err := g.builder.Insert()
		if err != nil {
			return err
		}

		block.NewStore(val.LL, sym.Storage)
		g.recordWrite(sym, val.LL)
		return nil
	case *ast.FieldAccess:
		addr, dt, err := g.genFieldAddr(target)
		if err != nil {
			return err
		}

		val, err := g.genAssignValue(as, dt)
		if err != nil {
			return err
		}

		block, err := g.builder.Insert()
		if err != nil {
			return err
		}

		block.NewStore(val.LL, addr)
		return nil
	}

	return report.Raise(report.TypeMismatch, as.Describe(), "%s cannot be assigned to", as.Target.Describe())
}

// genAssignValue generates the value of an assignment and checks that it can
// be stored into a location of type dt.
func (g *Generator) genAssignValue(as *ast.Assignment, dt typing.DataType) (Value, error) {
	val, err := g.genExpr(as.Value)
	if err != nil {
		return Value{}, err
	}

	if !typing.Equals(dt, val.Type) {
		return Value{}, report.Raise(report.TypeMismatch, as.Describe(), "expected %s but got %s", dt.Repr(), val.Type.Repr())
	}

	return val, nil
}

// genReturn generates a return statement.
func (g *Generator) genReturn(rs *ast.ReturnStmt) error {
	rtType := g.fs.fn.ReturnType

	if rs.Value == nil {
		if !typing.IsVoid(rtType) {
			return report.Raise(report.TypeMismatch, rs.Describe(), "expected a value of type %s", rtType.Repr())
		}

		return g.builder.TerminateWithReturn(nil)
	}

	val, err := g.genExpr(rs.Value)
	if err != nil {
		return err
	}

	if typing.IsVoid(rtType) || !typing.Equals(rtType, val.Type) {
		return report.Raise(report.TypeMismatch, rs.Describe(), "expected %s but got %s", rtType.Repr(), val.Type.Repr())
	}

	return g.builder.TerminateWithReturn(val.LL)
}
