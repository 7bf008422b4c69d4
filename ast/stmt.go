package ast

import "lowc/typing"

// VarDecl represents a variable declaration.  Either the type or the
// initializer may be omitted, but not both: a missing type is inferred from
// the initializer and a missing initializer zero-initializes the variable.
type VarDecl struct {
	StmtBase

	Name        string
	Type        typing.DataType
	Initializer ASTExpr
}

func (vd *VarDecl) Describe() string {
	return "declaration of `" + vd.Name + "`"
}

// Assignment stores a value into an existing variable or struct field.
type Assignment struct {
	StmtBase

	// The target must be an *Identifier or a *FieldAccess.
	Target ASTExpr
	Value  ASTExpr
}

func (as *Assignment) Describe() string {
	if fa, ok := as.Target.(*FieldAccess); ok {
		return "assignment to " + describeRoot(fa)
	}

	return "assignment to " + as.Target.Describe()
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	StmtBase

	Expr ASTExpr
}

func (es *ExprStmt) Describe() string {
	return es.Expr.Describe()
}

// ReturnStmt represents a return statement.  The value is nil in functions
// returning void.
type ReturnStmt struct {
	StmtBase

	Value ASTExpr
}

func (rs *ReturnStmt) Describe() string {
	return "return statement"
}

// FuncDefStmt is a function definition appearing in the middle of another
// function's body.  The function is lowered as a module-level function and
// does not capture the enclosing function's locals.
type FuncDefStmt struct {
	StmtBase

	Def *FuncDef
}

func (fds *FuncDefStmt) Describe() string {
	return "definition of `" + fds.Def.Name + "`"
}
