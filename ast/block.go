package ast

// Block represents a list of AST statements.  Each block introduces a new
// lexical scope.
type Block struct {
	StmtBase

	// The statements of the block.
	Stmts []ASTStmt
}

func (b *Block) Describe() string {
	return "block"
}

// -----------------------------------------------------------------------------

// IfStmt represents a conditional with an optional else branch.
type IfStmt struct {
	StmtBase

	// The condition must be a comparison.
	Condition ASTExpr

	// The body of the then branch.
	Then *Block

	// The (optional) else branch.
	Else *Block
}

func (is *IfStmt) Describe() string {
	return "if statement"
}

// WhileLoop represents a while loop.
type WhileLoop struct {
	StmtBase

	// The condition of the loop: it is evaluated before each iteration.
	Condition ASTExpr

	// The body of the loop.
	Body *Block
}

func (wl *WhileLoop) Describe() string {
	return "while loop"
}
