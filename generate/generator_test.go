package generate

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"lowc/ast"
	"lowc/interp"
	"lowc/report"
	"lowc/typing"

	"github.com/google/go-cmp/cmp"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
)

var (
	number = typing.PrimNumber
	float  = typing.PrimFloat
)

// mainProgram wraps a body into a program with a single `main` function
// returning a number.
func mainProgram(stmts ...ast.ASTStmt) *ast.Program {
	return &ast.Program{
		Name:  "test",
		Funcs: []*ast.FuncDef{ast.Func("main", number, nil, ast.Body(stmts...))},
	}
}

// runProgram lowers a program, executes its `main` and returns the output and
// the exit code.
func runProgram(t *testing.T, prog *ast.Program) (string, int, *interp.Machine) {
	t.Helper()

	g := NewGenerator(prog.Name)
	mod, err := g.Generate(prog)
	if err != nil {
		t.Fatalf("lowering failed: %s", err)
	}

	var out bytes.Buffer
	m, err := interp.New(mod, &out)
	if err != nil {
		t.Fatal(err)
	}

	result, err := m.Call("main")
	if err != nil {
		t.Fatalf("execution failed: %s", err)
	}

	return out.String(), int(result.Int), m
}

// lowerError lowers a program that is expected to fail.
func lowerError(t *testing.T, prog *ast.Program) *report.LowerError {
	t.Helper()

	_, err := NewGenerator(prog.Name).Generate(prog)
	if err == nil {
		t.Fatal("expected lowering to fail")
	}

	var le *report.LowerError
	if !errors.As(err, &le) {
		t.Fatalf("expected a lowering error but got %T: %s", err, err)
	}

	return le
}

func findFunc(mod *ir.Module, name string) *ir.Func {
	for _, fn := range mod.Funcs {
		if fn.Name() == name {
			return fn
		}
	}

	return nil
}

func findBlock(fn *ir.Func, name string) *ir.Block {
	for _, block := range fn.Blocks {
		if block.Name() == name {
			return block
		}
	}

	return nil
}

func blockOf(x interface{}) *ir.Block {
	block, _ := x.(*ir.Block)
	return block
}

func countPhis(fn *ir.Func) int {
	n := 0
	for _, block := range fn.Blocks {
		for _, inst := range block.Insts {
			if _, ok := inst.(*ir.InstPhi); ok {
				n++
			}
		}
	}

	return n
}

// -----------------------------------------------------------------------------

func TestShadowing(t *testing.T) {
	prog := mainProgram(
		ast.Let("x", number, ast.Num(1)),
		ast.Body(
			ast.Let("x", number, ast.Num(2)),
			ast.Do(ast.Printf("inner %d\n", ast.Ident("x"))),
			ast.SetVar("x", ast.Num(3)),
		),
		ast.Do(ast.Printf("outer %d\n", ast.Ident("x"))),
		ast.Ret(ast.Ident("x")),
	)

	out, code, _ := runProgram(t, prog)

	if diff := cmp.Diff("inner 2\nouter 1\n", out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	if code != 1 {
		t.Errorf("expected the outer x to be untouched but main returned %d", code)
	}
}

func TestIfElseMerge(t *testing.T) {
	tests := []struct {
		name string
		cond ast.ASTExpr
		want int
	}{
		{"then", ast.Bin(ast.OpLt, ast.Num(1), ast.Num(2)), 1},
		{"else", ast.Bin(ast.OpGt, ast.Num(1), ast.Num(2)), 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			prog := mainProgram(
				ast.Let("b", number, ast.Num(0)),
				ast.If(
					test.cond,
					ast.Body(ast.SetVar("b", ast.Num(1))),
					ast.Body(ast.SetVar("b", ast.Num(2))),
				),
				ast.Ret(ast.Ident("b")),
			)

			g := NewGenerator("test")
			mod, err := g.Generate(prog)
			if err != nil {
				t.Fatal(err)
			}

			main := findFunc(mod, "main")
			merge := findBlock(main, "merge")
			if merge == nil || len(merge.Insts) == 0 {
				t.Fatal("expected a non-empty merge block")
			}

			phi, ok := merge.Insts[0].(*ir.InstPhi)
			if !ok {
				t.Fatalf("expected the merge block to start with a phi but got %T", merge.Insts[0])
			}

			// each incoming value must come from the arm that stored it
			got := make(map[string]int64)
			for _, inc := range phi.Incs {
				c, ok := inc.X.(*constant.Int)
				if !ok {
					t.Fatalf("expected a constant incoming value but got %T", inc.X)
				}

				got[blockOf(inc.Pred).Name()] = c.X.Int64()
			}

			if diff := cmp.Diff(map[string]int64{"then": 1, "else": 2}, got); diff != "" {
				t.Errorf("phi provenance mismatch (-want +got):\n%s", diff)
			}

			var out bytes.Buffer
			code, err := interp.Run(mod, &out)
			if err != nil {
				t.Fatal(err)
			}

			if code != test.want {
				t.Errorf("expected b = %d but got %d", test.want, code)
			}
		})
	}
}

func TestIfWithoutElse(t *testing.T) {
	prog := mainProgram(
		ast.Let("b", number, ast.Num(4)),
		ast.If(
			ast.Bin(ast.OpEq, ast.Ident("b"), ast.Num(4)),
			ast.Body(ast.SetVar("b", ast.Num(5))),
			nil,
		),
		ast.Ret(ast.Ident("b")),
	)

	g := NewGenerator("test")
	mod, err := g.Generate(prog)
	if err != nil {
		t.Fatal(err)
	}

	main := findFunc(mod, "main")
	if findBlock(main, "else") != nil {
		t.Error("expected the unused else block to be removed")
	}

	if n := countPhis(main); n != 0 {
		t.Errorf("expected no phis without an else branch but found %d", n)
	}

	code, err := interp.Run(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	if code != 5 {
		t.Errorf("expected 5 but got %d", code)
	}
}

func TestReturningArm(t *testing.T) {
	prog := mainProgram(
		ast.Let("b", number, ast.Num(0)),
		ast.If(
			ast.Bin(ast.OpGt, ast.Num(2), ast.Num(1)),
			ast.Body(ast.SetVar("b", ast.Num(1)), ast.Ret(ast.Num(7))),
			ast.Body(ast.SetVar("b", ast.Num(2))),
		),
		ast.Ret(ast.Ident("b")),
	)

	g := NewGenerator("test")
	mod, err := g.Generate(prog)
	if err != nil {
		t.Fatal(err)
	}

	if n := countPhis(findFunc(mod, "main")); n != 0 {
		t.Errorf("expected no phis when an arm returns but found %d", n)
	}

	code, err := interp.Run(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	if code != 7 {
		t.Errorf("expected 7 but got %d", code)
	}
}

func TestNestedMerges(t *testing.T) {
	// the inner conditional merges first; its result then flows into the
	// outer merge
	prog := mainProgram(
		ast.Let("a", number, ast.Num(0)),
		ast.Let("k", number, ast.Num(3)),
		ast.If(
			ast.Bin(ast.OpGt, ast.Ident("k"), ast.Num(1)),
			ast.Body(
				ast.If(
					ast.Bin(ast.OpGt, ast.Ident("k"), ast.Num(2)),
					ast.Body(ast.SetVar("a", ast.Num(30))),
					ast.Body(ast.SetVar("a", ast.Num(20))),
				),
			),
			ast.Body(ast.SetVar("a", ast.Num(10))),
		),
		ast.Ret(ast.Ident("a")),
	)

	_, code, _ := runProgram(t, prog)
	if code != 30 {
		t.Errorf("expected 30 but got %d", code)
	}
}

func TestLoopIterations(t *testing.T) {
	tests := []struct {
		name  string
		bound int64
	}{
		{"ten", 10},
		{"zero", 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			prog := mainProgram(
				ast.Let("i", number, ast.Num(0)),
				ast.Let("n", number, ast.Num(0)),
				ast.While(
					ast.Bin(ast.OpLt, ast.Ident("i"), ast.Num(test.bound)),
					ast.Body(
						ast.SetVar("n", ast.Bin(ast.OpAdd, ast.Ident("n"), ast.Num(1))),
						ast.SetVar("i", ast.Bin(ast.OpAdd, ast.Ident("i"), ast.Num(1))),
					),
				),
				ast.Ret(ast.Ident("n")),
			)

			_, code, m := runProgram(t, prog)

			if code != int(test.bound) {
				t.Errorf("expected %d iterations but counted %d", test.bound, code)
			}

			if hits := m.BlockHits("main", "body"); hits != int(test.bound) {
				t.Errorf("expected the body to run %d times but it ran %d times", test.bound, hits)
			}

			if hits := m.BlockHits("main", "cond"); hits != int(test.bound)+1 {
				t.Errorf("expected the condition to run %d times but it ran %d times", test.bound+1, hits)
			}
		})
	}
}

func TestLoopForgetsWrites(t *testing.T) {
	// a write inside a loop nested in an arm must not be merged as if it
	// were the arm's final value
	prog := mainProgram(
		ast.Let("x", number, ast.Num(0)),
		ast.If(
			ast.Bin(ast.OpEq, ast.Ident("x"), ast.Num(0)),
			ast.Body(
				ast.SetVar("x", ast.Num(1)),
				ast.While(
					ast.Bin(ast.OpLt, ast.Ident("x"), ast.Num(5)),
					ast.Body(ast.SetVar("x", ast.Bin(ast.OpAdd, ast.Ident("x"), ast.Num(1)))),
				),
			),
			ast.Body(ast.SetVar("x", ast.Num(9))),
		),
		ast.Ret(ast.Ident("x")),
	)

	_, code, _ := runProgram(t, prog)
	if code != 5 {
		t.Errorf("expected 5 but got %d", code)
	}
}

func TestStructFields(t *testing.T) {
	pair := &typing.StructType{Name: "Pair", Fields: []typing.DataType{number, float}}

	prog := mainProgram(
		ast.Let("p", pair, nil),
		ast.Set(ast.Field(ast.Ident("p"), 0), ast.Num(5)),
		ast.Set(ast.Field(ast.Ident("p"), 1), ast.Flt(2.5)),
		ast.Set(ast.Field(ast.Ident("p"), 0), ast.Num(7)),
		ast.Do(ast.Printf("%d %.1f\n", ast.Field(ast.Ident("p"), 0), ast.Field(ast.Ident("p"), 1))),
		ast.Ret(ast.Field(ast.Ident("p"), 0)),
	)

	out, code, _ := runProgram(t, prog)

	if diff := cmp.Diff("7 2.5\n", out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}

	if code != 7 {
		t.Errorf("expected 7 but got %d", code)
	}
}

func TestNestedStructFields(t *testing.T) {
	inner := &typing.StructType{Name: "Inner", Fields: []typing.DataType{number, number}}
	outer := &typing.StructType{Name: "Outer", Fields: []typing.DataType{inner, number}}

	prog := mainProgram(
		ast.Let("o", outer, nil),
		ast.Set(ast.Field(ast.Field(ast.Ident("o"), 0), 1), ast.Num(11)),
		ast.Set(ast.Field(ast.Ident("o"), 1), ast.Num(4)),
		ast.Ret(ast.Bin(
			ast.OpAdd,
			ast.Field(ast.Field(ast.Ident("o"), 0), 1),
			ast.Bin(ast.OpAdd, ast.Field(ast.Field(ast.Ident("o"), 0), 0), ast.Field(ast.Ident("o"), 1)),
		)),
	)

	_, code, _ := runProgram(t, prog)
	if code != 15 {
		t.Errorf("expected 15 but got %d", code)
	}
}

func TestCallRoundTrip(t *testing.T) {
	prog := &ast.Program{
		Name: "test",
		Funcs: []*ast.FuncDef{
			ast.Func("main", number, nil, ast.Body(
				ast.Let("r", nil, ast.CallOf("sum", ast.Num(10), ast.Num(20))),
				ast.Do(ast.Printf("%d\n", ast.Ident("r"))),
				ast.Ret(ast.Ident("r")),
			)),
			// defined after its caller
			ast.Func("sum", number, []ast.FuncParam{ast.Param("a", number), ast.Param("b", number)}, ast.Body(
				ast.Ret(ast.Bin(ast.OpAdd, ast.Ident("a"), ast.Ident("b"))),
			)),
		},
	}

	out, code, _ := runProgram(t, prog)

	if code != 30 {
		t.Errorf("expected sum(10, 20) = 30 but got %d", code)
	}

	if out != "30\n" {
		t.Errorf("expected output %q but got %q", "30\n", out)
	}
}

func TestRecursion(t *testing.T) {
	n := ast.Ident("n")
	prog := &ast.Program{
		Name: "test",
		Funcs: []*ast.FuncDef{
			ast.Func("fact", number, []ast.FuncParam{ast.Param("n", number)}, ast.Body(
				ast.If(ast.Bin(ast.OpLtEq, n, ast.Num(1)), ast.Body(ast.Ret(ast.Num(1))), nil),
				ast.Ret(ast.Bin(ast.OpMul, n, ast.CallOf("fact", ast.Bin(ast.OpSub, n, ast.Num(1))))),
			)),
			ast.Func("main", number, nil, ast.Body(ast.Ret(ast.CallOf("fact", ast.Num(5))))),
		},
	}

	_, code, _ := runProgram(t, prog)
	if code != 120 {
		t.Errorf("expected 120 but got %d", code)
	}
}

func TestGlobals(t *testing.T) {
	prog := &ast.Program{
		Name: "test",
		Globals: []*ast.GlobalDecl{
			{Name: "counter", Type: number, Initializer: ast.Num(40)},
			{Name: "scale", Initializer: ast.Flt(1.5)},
		},
		Funcs: []*ast.FuncDef{
			ast.Func("bump", nil, nil, ast.Body(
				ast.SetVar("counter", ast.Bin(ast.OpAdd, ast.Ident("counter"), ast.Num(1))),
			)),
			ast.Func("main", number, nil, ast.Body(
				ast.Do(ast.CallOf("bump")),
				ast.Do(ast.CallOf("bump")),
				ast.Do(ast.Printf("%.2f\n", ast.Ident("scale"))),
				ast.Ret(ast.Ident("counter")),
			)),
		},
	}

	out, code, m := runProgram(t, prog)

	if code != 42 {
		t.Errorf("expected 42 but got %d", code)
	}

	if out != "1.50\n" {
		t.Errorf("expected output %q but got %q", "1.50\n", out)
	}

	counter, err := m.Global("counter")
	if err != nil {
		t.Fatal(err)
	}

	if counter.Int != 42 {
		t.Errorf("expected the global to hold 42 but got %s", counter)
	}
}

func TestImplicitReturn(t *testing.T) {
	prog := mainProgram(ast.Let("x", number, ast.Num(3)))

	g := NewGenerator("test")
	mod, err := g.Generate(prog)
	if err != nil {
		t.Fatal(err)
	}

	for _, block := range findFunc(mod, "main").Blocks {
		if block.Term == nil {
			t.Errorf("block %s is not terminated", block.Name())
		}
	}

	code, err := interp.Run(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	if code != 0 {
		t.Errorf("expected an implicit zero return but got %d", code)
	}
}

func TestNestedFunction(t *testing.T) {
	prog := mainProgram(
		ast.Let("x", number, ast.Num(1)),
		ast.DefStmt(ast.Func("helper", number, nil, ast.Body(ast.Ret(ast.Num(41))))),
		ast.Ret(ast.Bin(ast.OpAdd, ast.CallOf("helper"), ast.Ident("x"))),
	)

	g := NewGenerator("test")
	mod, err := g.Generate(prog)
	if err != nil {
		t.Fatal(err)
	}

	if g.Builder().Current() != nil || len(g.Builder().saved) != 0 {
		t.Error("expected every saved cursor to be restored")
	}

	// the caller continues in the block it was in before the nested function
	main := findFunc(mod, "main")
	if len(main.Blocks) != 1 {
		t.Errorf("expected main to have a single block but it has %d", len(main.Blocks))
	}

	code, err := interp.Run(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	if code != 42 {
		t.Errorf("expected 42 but got %d", code)
	}
}

func TestNestedFunctionSeesNoLocals(t *testing.T) {
	prog := mainProgram(
		ast.Let("x", number, ast.Num(1)),
		ast.DefStmt(ast.Func("helper", number, nil, ast.Body(ast.Ret(ast.Ident("x"))))),
		ast.Ret(ast.Num(0)),
	)

	le := lowerError(t, prog)
	if le.Kind != report.UndefinedSymbol || le.Func != "helper" {
		t.Errorf("expected an undefined symbol in helper but got %s", le)
	}
}

func TestUnreachableWarning(t *testing.T) {
	prog := mainProgram(
		ast.Ret(ast.Num(1)),
		ast.Do(ast.Printf("never\n")),
	)

	g := NewGenerator("test")
	mod, err := g.Generate(prog)
	if err != nil {
		t.Fatal(err)
	}

	warnings := g.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "unreachable") {
		t.Errorf("expected one unreachable code warning but got %v", warnings)
	}

	// the skipped call leaves no string behind
	for _, glob := range mod.Globals {
		if strings.HasPrefix(glob.Name(), "str.") {
			t.Errorf("unexpected string global %s", glob.Name())
		}
	}
}

func TestFloatArithmetic(t *testing.T) {
	prog := mainProgram(
		ast.Let("x", float, ast.Flt(1.5)),
		ast.Let("y", nil, ast.Bin(ast.OpMul, ast.Ident("x"), ast.Flt(4))),
		ast.If(
			ast.Bin(ast.OpGt, ast.Ident("y"), ast.Flt(5.5)),
			ast.Body(ast.Do(ast.Printf("big %g\n", ast.Ident("y")))),
			ast.Body(ast.Do(ast.Printf("small %g\n", ast.Ident("y")))),
		),
		ast.Ret(ast.Num(0)),
	)

	out, _, _ := runProgram(t, prog)
	if diff := cmp.Diff("big 6\n", out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

// -----------------------------------------------------------------------------

func TestLoweringErrors(t *testing.T) {
	pair := &typing.StructType{Name: "Pair", Fields: []typing.DataType{number, number}}
	sum := ast.Func("sum", number, []ast.FuncParam{ast.Param("a", number), ast.Param("b", number)}, ast.Body(
		ast.Ret(ast.Bin(ast.OpAdd, ast.Ident("a"), ast.Ident("b"))),
	))

	tests := []struct {
		name    string
		globals []*ast.GlobalDecl
		funcs   []*ast.FuncDef
		want    report.Kind
	}{
		{
			name: "undefined symbol at depth",
			funcs: []*ast.FuncDef{ast.Func("main", number, nil, ast.Body(
				ast.Body(ast.While(
					ast.Bin(ast.OpLt, ast.Num(0), ast.Num(1)),
					ast.Body(ast.If(ast.Bin(ast.OpEq, ast.Num(1), ast.Num(1)), ast.Body(ast.Ret(ast.Ident("y"))), nil)),
				)),
			))},
			want: report.UndefinedSymbol,
		},
		{
			name:  "undefined function",
			funcs: []*ast.FuncDef{ast.Func("main", number, nil, ast.Body(ast.Ret(ast.CallOf("nope"))))},
			want:  report.UndefinedFunction,
		},
		{
			name: "argument count",
			funcs: []*ast.FuncDef{sum, ast.Func("main", number, nil, ast.Body(
				ast.Ret(ast.CallOf("sum", ast.Num(10))),
			))},
			want: report.ArgumentCountMismatch,
		},
		{
			name: "argument type",
			funcs: []*ast.FuncDef{sum, ast.Func("main", number, nil, ast.Body(
				ast.Ret(ast.CallOf("sum", ast.Num(10), ast.Flt(2))),
			))},
			want: report.ArgumentTypeMismatch,
		},
		{
			name: "mixed operands",
			funcs: []*ast.FuncDef{ast.Func("main", number, nil, ast.Body(
				ast.Ret(ast.Bin(ast.OpAdd, ast.Num(1), ast.Flt(1))),
			))},
			want: report.TypeMismatch,
		},
		{
			name: "float remainder",
			funcs: []*ast.FuncDef{ast.Func("main", nil, nil, ast.Body(
				ast.Let("f", nil, ast.Bin(ast.OpMod, ast.Flt(3), ast.Flt(2))),
			))},
			want: report.TypeMismatch,
		},
		{
			name: "non-comparison condition",
			funcs: []*ast.FuncDef{ast.Func("main", nil, nil, ast.Body(
				ast.If(ast.Num(1), ast.Body(), nil),
			))},
			want: report.TypeMismatch,
		},
		{
			name: "wrong return type",
			funcs: []*ast.FuncDef{ast.Func("main", number, nil, ast.Body(
				ast.Ret(ast.Flt(1)),
			))},
			want: report.TypeMismatch,
		},
		{
			name: "invalid field index",
			funcs: []*ast.FuncDef{ast.Func("main", number, nil, ast.Body(
				ast.Let("p", pair, nil),
				ast.Ret(ast.Field(ast.Ident("p"), 2)),
			))},
			want: report.InvalidFieldIndex,
		},
		{
			name: "duplicate function",
			funcs: []*ast.FuncDef{
				ast.Func("main", number, nil, ast.Body(ast.Ret(ast.Num(0)))),
				ast.Func("main", number, nil, ast.Body(ast.Ret(ast.Num(1)))),
			},
			want: report.DuplicateDeclaration,
		},
		{
			name: "duplicate parameter",
			funcs: []*ast.FuncDef{ast.Func("f", nil, []ast.FuncParam{ast.Param("a", number), ast.Param("a", float)}, ast.Body())},
			want:  report.DuplicateDeclaration,
		},
		{
			name: "redefining printf",
			funcs: []*ast.FuncDef{ast.Func("printf", number, nil, ast.Body(ast.Ret(ast.Num(0))))},
			want:  report.DuplicateDeclaration,
		},
		{
			name: "duplicate global",
			globals: []*ast.GlobalDecl{
				{Name: "g", Type: number, Initializer: ast.Num(1)},
				{Name: "g", Type: float},
			},
			want: report.DuplicateDeclaration,
		},
		{
			name:    "global and function share a name",
			globals: []*ast.GlobalDecl{{Name: "sum", Type: number, Initializer: ast.Num(1)}},
			funcs:   []*ast.FuncDef{sum},
			want:    report.DuplicateDeclaration,
		},
		{
			name:    "global named printf",
			globals: []*ast.GlobalDecl{{Name: "printf", Type: number}},
			want:    report.DuplicateDeclaration,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			le := lowerError(t, &ast.Program{Name: "test", Globals: test.globals, Funcs: test.funcs})

			if le.Kind != test.want {
				t.Errorf("expected %s but got %s", test.want, le)
			}
		})
	}
}

func TestErrorNamesFunction(t *testing.T) {
	prog := mainProgram(ast.Ret(ast.Ident("missing")))

	_, err := NewGenerator("test").Generate(prog)
	if !errors.Is(err, report.ErrUndefinedSymbol) {
		t.Fatalf("expected an undefined symbol error but got %v", err)
	}

	want := "in function `main`: reference to `missing`: undefined symbol: `missing` is not defined"
	if err.Error() != want {
		t.Errorf("expected %q but got %q", want, err.Error())
	}
}

func TestFailedFunctionLosesBody(t *testing.T) {
	g := NewGenerator("test")
	err := g.LowerFunction(ast.Func("broken", number, nil, ast.Body(
		ast.Let("x", number, ast.Num(1)),
		ast.Ret(ast.Ident("y")),
	)))

	if !report.IsKind(err, report.UndefinedSymbol) {
		t.Fatalf("expected an undefined symbol error but got %v", err)
	}

	fn, err := g.Registry().ResolveFunction("broken")
	if err != nil {
		t.Fatal("expected the failed function to remain declared")
	}

	if fn.Defined || len(fn.LL.Blocks) != 0 {
		t.Error("expected the failed function to have no body")
	}
}
