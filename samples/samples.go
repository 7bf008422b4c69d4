package samples

import (
	"sort"

	"lowc/ast"
	"lowc/typing"
)

// Sample is a hand-built program together with the output it must produce
// when run.
type Sample struct {
	Name        string
	Description string

	// Build returns a fresh syntax tree for the program.
	Build func() *ast.Program

	// Output is what the program prints through printf.
	Output string

	// ExitCode is the value returned by `main`.
	ExitCode int
}

var (
	number = typing.PrimNumber
	float  = typing.PrimFloat
)

// catalog maps each sample name to its sample.
var catalog = map[string]*Sample{}

func register(s *Sample) {
	catalog[s.Name] = s
}

// Lookup returns the sample with the given name.
func Lookup(name string) (*Sample, bool) {
	s, ok := catalog[name]
	return s, ok
}

// Names returns the names of all the samples in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// program builds a program whose `main` is made of stmts.
func program(name string, globals []*ast.GlobalDecl, funcs []*ast.FuncDef, stmts ...ast.ASTStmt) *ast.Program {
	main := ast.Func("main", number, nil, ast.Body(stmts...))

	return &ast.Program{
		Name:    name,
		Globals: globals,
		Funcs:   append(funcs, main),
	}
}

func init() {
	register(&Sample{
		Name:        "global-vars",
		Description: "adds two global variables",
		Build: func() *ast.Program {
			return program("global-vars",
				[]*ast.GlobalDecl{
					{Name: "a", Type: number, Initializer: ast.Num(10)},
					{Name: "b", Type: number, Initializer: ast.Num(20)},
				},
				nil,
				ast.Let("c", number, ast.Bin(ast.OpAdd, ast.Ident("a"), ast.Ident("b"))),
				ast.Do(ast.Printf("%d\n", ast.Ident("c"))),
				ast.Ret(ast.Num(0)),
			)
		},
		Output: "30\n",
	})

	register(&Sample{
		Name:        "if-else",
		Description: "merges a variable written by both arms of a conditional",
		Build: func() *ast.Program {
			return program("if-else", nil, nil,
				ast.Let("a", number, ast.Num(10)),
				ast.Let("b", number, ast.Num(0)),
				ast.If(
					ast.Bin(ast.OpGt, ast.Ident("a"), ast.Num(0)),
					ast.Body(ast.SetVar("b", ast.Num(1))),
					ast.Body(ast.SetVar("b", ast.Num(2))),
				),
				ast.Do(ast.Printf("%d\n", ast.Ident("b"))),
				ast.Ret(ast.Num(0)),
			)
		},
		Output: "1\n",
	})

	register(&Sample{
		Name:        "loop",
		Description: "counts a variable down to zero",
		Build: func() *ast.Program {
			return program("loop", nil, nil,
				ast.Let("a", number, ast.Num(10)),
				ast.While(
					ast.Bin(ast.OpGt, ast.Ident("a"), ast.Num(0)),
					ast.Body(
						ast.SetVar("a", ast.Bin(ast.OpSub, ast.Ident("a"), ast.Num(1))),
						ast.Do(ast.Printf("%d\n", ast.Ident("a"))),
					),
				),
				ast.Ret(ast.Num(0)),
			)
		},
		Output: "9\n8\n7\n6\n5\n4\n3\n2\n1\n0\n",
	})

	register(&Sample{
		Name:        "structs",
		Description: "stores into and loads from the fields of a struct",
		Build: func() *ast.Program {
			point := &typing.StructType{Name: "Point", Fields: []typing.DataType{number, number}}

			return program("structs", nil, nil,
				ast.Let("p", point, nil),
				ast.Set(ast.Field(ast.Ident("p"), 0), ast.Num(10)),
				ast.Set(ast.Field(ast.Ident("p"), 1), ast.Num(20)),
				ast.Let("c", number, ast.Bin(ast.OpAdd, ast.Field(ast.Ident("p"), 0), ast.Field(ast.Ident("p"), 1))),
				ast.Do(ast.Printf("%d\n", ast.Ident("c"))),
				ast.Ret(ast.Num(0)),
			)
		},
		Output: "30\n",
	})

	register(&Sample{
		Name:        "environment",
		Description: "shadows an outer variable inside a nested block",
		Build: func() *ast.Program {
			return program("environment", nil, nil,
				ast.Let("x", number, ast.Num(1)),
				ast.If(
					ast.Bin(ast.OpEq, ast.Ident("x"), ast.Num(1)),
					ast.Body(
						ast.Let("x", number, ast.Num(2)),
						ast.Do(ast.Printf("inner %d\n", ast.Ident("x"))),
					),
					nil,
				),
				ast.Do(ast.Printf("outer %d\n", ast.Ident("x"))),
				ast.Ret(ast.Num(0)),
			)
		},
		Output: "inner 2\nouter 1\n",
	})

	register(&Sample{
		Name:        "float",
		Description: "performs float arithmetic and compares floats",
		Build: func() *ast.Program {
			return program("float", nil, nil,
				ast.Let("r", float, ast.Flt(1.5)),
				ast.Let("area", float, ast.Bin(ast.OpMul, ast.Ident("r"), ast.Ident("r"))),
				ast.Let("big", number, ast.Num(0)),
				ast.If(
					ast.Bin(ast.OpGtEq, ast.Ident("area"), ast.Flt(2)),
					ast.Body(ast.SetVar("big", ast.Num(1))),
					nil,
				),
				ast.Do(ast.Printf("%.2f %d\n", ast.Ident("area"), ast.Ident("big"))),
				ast.Ret(ast.Num(0)),
			)
		},
		Output: "2.25 1\n",
	})

	register(&Sample{
		Name:        "functions",
		Description: "calls a function defined before main",
		Build: func() *ast.Program {
			sum := ast.Func("sum", number,
				[]ast.FuncParam{ast.Param("a", number), ast.Param("b", number)},
				ast.Body(ast.Ret(ast.Bin(ast.OpAdd, ast.Ident("a"), ast.Ident("b")))),
			)

			return program("functions", nil, []*ast.FuncDef{sum},
				ast.Do(ast.Printf("%d\n", ast.CallOf("sum", ast.Num(10), ast.Num(20)))),
				ast.Ret(ast.Num(0)),
			)
		},
		Output: "30\n",
	})

	register(&Sample{
		Name:        "nested-function",
		Description: "defines a function part way through main and calls it",
		Build: func() *ast.Program {
			twice := ast.Func("twice", number,
				[]ast.FuncParam{ast.Param("n", number)},
				ast.Body(ast.Ret(ast.Bin(ast.OpMul, ast.Ident("n"), ast.Num(2)))),
			)

			return program("nested-function", nil, nil,
				ast.Let("x", number, ast.Num(21)),
				ast.DefStmt(twice),
				ast.Let("y", number, ast.CallOf("twice", ast.Ident("x"))),
				ast.Do(ast.Printf("%d\n", ast.Ident("y"))),
				ast.Ret(ast.Ident("y")),
			)
		},
		Output:   "42\n",
		ExitCode: 42,
	})
}
