package ast

import "lowc/typing"

// FuncDef is an AST node for a function.
type FuncDef struct {
	Name       string
	Params     []FuncParam
	ReturnType typing.DataType
	Body       *Block
}

// FuncParam represents a function parameter.
type FuncParam struct {
	Name string
	Type typing.DataType
}

// GlobalDecl is a module-level variable.  Its initializer must be a constant
// of the declared type; a nil initializer zero-initializes the global.
type GlobalDecl struct {
	Name        string
	Type        typing.DataType
	Initializer ASTExpr
}

// Program is a whole translation unit: the globals and the functions defined
// at the top level, in source order.
type Program struct {
	Name    string
	Globals []*GlobalDecl
	Funcs   []*FuncDef
}
