package ast

import (
	"fmt"
	"strconv"
)

// IntLit is an integer constant.
type IntLit struct {
	ExprBase

	Value int64
}

func (il *IntLit) Describe() string {
	return strconv.FormatInt(il.Value, 10)
}

// FloatLit is a floating point constant.
type FloatLit struct {
	ExprBase

	Value float64
}

func (fl *FloatLit) Describe() string {
	return strconv.FormatFloat(fl.Value, 'g', -1, 32)
}

// StrLit is a string literal.  String literals may only appear as call
// arguments.
type StrLit struct {
	ExprBase

	Value string
}

func (sl *StrLit) Describe() string {
	return strconv.Quote(sl.Value)
}

// Identifier is a named value: a local variable, parameter or global.
type Identifier struct {
	ExprBase

	Name string
}

func (id *Identifier) Describe() string {
	return "`" + id.Name + "`"
}

// -----------------------------------------------------------------------------

// Oper is a binary operator.
type Oper int

// Enumeration of binary operators.
const (
	OpAdd Oper = iota
	OpSub
	OpMul
	OpDiv
	OpMod

	OpEq
	OpNeq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
)

var operSymbols = [...]string{"+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">="}

func (op Oper) String() string {
	if int(op) < len(operSymbols) {
		return operSymbols[op]
	}

	return fmt.Sprintf("oper(%d)", int(op))
}

// IsComparison returns whether the operator yields a comparison result.
func (op Oper) IsComparison() bool {
	return op >= OpEq
}

// BinaryOp represents a binary operator application.
type BinaryOp struct {
	ExprBase

	Op Oper

	Lhs, Rhs ASTExpr
}

func (bo *BinaryOp) Describe() string {
	return fmt.Sprintf("operator `%s`", bo.Op)
}

// -----------------------------------------------------------------------------

// FieldAccess is a struct field access by index: `root.n`.  The root must be
// addressable: an identifier or another field access.
type FieldAccess struct {
	ExprBase

	Root  ASTExpr
	Index int
}

func (fa *FieldAccess) Describe() string {
	return fmt.Sprintf("field access %s.%d", describeRoot(fa.Root), fa.Index)
}

func describeRoot(root ASTExpr) string {
	switch v := root.(type) {
	case *Identifier:
		return v.Name
	case *FieldAccess:
		return fmt.Sprintf("%s.%d", describeRoot(v.Root), v.Index)
	default:
		return "(" + root.Describe() + ")"
	}
}

// Call is a function call expression.  Functions are always called by name.
type Call struct {
	ExprBase

	Func string
	Args []ASTExpr
}

func (c *Call) Describe() string {
	return "call to `" + c.Func + "`"
}
