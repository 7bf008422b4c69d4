package ast

import "lowc/typing"

// The functions below build AST nodes tersely.  They are used to assemble
// programs by hand in the absence of a parser.

func Num(v int64) *IntLit { return &IntLit{Value: v} }

func Flt(v float64) *FloatLit { return &FloatLit{Value: v} }

func Str(s string) *StrLit { return &StrLit{Value: s} }

func Ident(name string) *Identifier { return &Identifier{Name: name} }

func Bin(op Oper, lhs, rhs ASTExpr) *BinaryOp {
	return &BinaryOp{Op: op, Lhs: lhs, Rhs: rhs}
}

func Field(root ASTExpr, ndx int) *FieldAccess {
	return &FieldAccess{Root: root, Index: ndx}
}

func CallOf(name string, args ...ASTExpr) *Call {
	return &Call{Func: name, Args: args}
}

// Printf builds a call to the imported printf function.
func Printf(format string, args ...ASTExpr) *Call {
	return &Call{Func: "printf", Args: append([]ASTExpr{Str(format)}, args...)}
}

// -----------------------------------------------------------------------------

func Let(name string, typ typing.DataType, init ASTExpr) *VarDecl {
	return &VarDecl{Name: name, Type: typ, Initializer: init}
}

func Set(target, value ASTExpr) *Assignment {
	return &Assignment{Target: target, Value: value}
}

// SetVar assigns to the named variable.
func SetVar(name string, value ASTExpr) *Assignment {
	return &Assignment{Target: Ident(name), Value: value}
}

func Do(expr ASTExpr) *ExprStmt { return &ExprStmt{Expr: expr} }

func Ret(value ASTExpr) *ReturnStmt { return &ReturnStmt{Value: value} }

func Body(stmts ...ASTStmt) *Block { return &Block{Stmts: stmts} }

func If(cond ASTExpr, then, els *Block) *IfStmt {
	return &IfStmt{Condition: cond, Then: then, Else: els}
}

func While(cond ASTExpr, body *Block) *WhileLoop {
	return &WhileLoop{Condition: cond, Body: body}
}

func DefStmt(def *FuncDef) *FuncDefStmt { return &FuncDefStmt{Def: def} }

// Func builds a function definition.
func Func(name string, ret typing.DataType, params []FuncParam, body *Block) *FuncDef {
	return &FuncDef{Name: name, Params: params, ReturnType: ret, Body: body}
}

func Param(name string, typ typing.DataType) FuncParam {
	return FuncParam{Name: name, Type: typ}
}
