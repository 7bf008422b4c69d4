package ast

// ASTNode is the abstract interface for all AST nodes.
type ASTNode interface {
	// Describe returns a short description of the node for error messages:
	// eg. `call to sum` or `assignment to b`.
	Describe() string
}

// ASTExpr is the interface for all expression nodes.
type ASTExpr interface {
	ASTNode

	exprNode()
}

// ASTStmt is the interface for all statement nodes.
type ASTStmt interface {
	ASTNode

	stmtNode()
}

// ExprBase is embedded in all expression nodes.
type ExprBase struct{}

func (ExprBase) exprNode() {}

// StmtBase is embedded in all statement nodes.
type StmtBase struct{}

func (StmtBase) stmtNode() {}
