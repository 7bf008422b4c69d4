package emit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lowc/ast"
	"lowc/generate"
	"lowc/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

var (
	number = typing.PrimNumber
	float  = typing.PrimFloat
)

// testModule lowers a program touching every construct the translators
// support.
func testModule(t *testing.T) *ir.Module {
	t.Helper()

	pair := &typing.StructType{Name: "Pair", Fields: []typing.DataType{number, float}}

	prog := &ast.Program{
		Name: "emit",
		Globals: []*ast.GlobalDecl{
			{Name: "counter", Type: number, Initializer: ast.Num(40)},
			{Name: "origin", Type: pair},
		},
		Funcs: []*ast.FuncDef{
			ast.Func("sum", number, []ast.FuncParam{ast.Param("a", number), ast.Param("b", number)}, ast.Body(
				ast.Ret(ast.Bin(ast.OpAdd, ast.Ident("a"), ast.Ident("b"))),
			)),
			ast.Func("first", number, []ast.FuncParam{ast.Param("p", pair)}, ast.Body(
				ast.Ret(ast.Field(ast.Ident("p"), 0)),
			)),
			ast.Func("main", number, nil, ast.Body(
				ast.Let("b", number, ast.Num(0)),
				ast.If(
					ast.Bin(ast.OpLt, ast.Ident("counter"), ast.Num(50)),
					ast.Body(ast.SetVar("b", ast.Num(1))),
					ast.Body(ast.SetVar("b", ast.Num(2))),
				),
				ast.Let("i", number, ast.Num(0)),
				ast.While(
					ast.Bin(ast.OpLt, ast.Ident("i"), ast.Num(3)),
					ast.Body(ast.SetVar("i", ast.Bin(ast.OpAdd, ast.Ident("i"), ast.Num(1)))),
				),
				ast.Let("p", pair, nil),
				ast.Set(ast.Field(ast.Ident("p"), 1), ast.Flt(2.5)),
				ast.Do(ast.Printf("%d %f\n", ast.CallOf("sum", ast.Ident("b"), ast.Ident("i")), ast.Field(ast.Ident("p"), 1))),
				ast.Ret(ast.CallOf("first", ast.Ident("p"))),
			)),
		},
	}

	mod, err := generate.NewGenerator(prog.Name).Generate(prog)
	if err != nil {
		t.Fatal(err)
	}

	return mod
}

func TestWriteLLVM(t *testing.T) {
	text, err := LLVMText(testModule(t))
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"define i32 @sum(i32 %a, i32 %b)",
		"@printf(",
		"%Pair = type { i32, float }",
		"phi i32",
	} {
		if !strings.Contains(string(text), want) {
			t.Errorf("expected the LLVM IR to contain %q:\n%s", want, text)
		}
	}
}

func TestTranslateQBE(t *testing.T) {
	il, err := TranslateQBE(testModule(t), WordLong)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"type :Pair = { w, s }",
		"export data $counter = { w 40 }",
		"export data $origin = { z 8 }",
		"data $str.0 = { b \"%d %f\\n\", b 0 }",
		"export function w $sum(w %a, w %b) {",
		"export function w $first(:Pair %p) {",
		"export function w $main() {",
		"=w csltw",
		"=w phi @then 1, @else 2",
		"=d exts",
		"call $printf(l $str.0, ..., w",
		"blit %p, %p.addr, 8",
		"jnz ",
		"jmp @cond",
	} {
		if !strings.Contains(il, want) {
			t.Errorf("expected the QBE IL to contain %q:\n%s", want, il)
		}
	}

	if strings.Contains(il, "function w $printf") {
		t.Error("expected printf to be left to the C library")
	}
}

func TestTranslateQBERejectsWordType(t *testing.T) {
	if _, err := TranslateQBE(ir.NewModule(), "q"); err == nil {
		t.Error("expected an invalid word type to be rejected")
	}
}

func TestLayout(t *testing.T) {
	st := types.NewStruct(types.I8, types.I32, types.Float, types.I8Ptr)

	tests := []struct {
		wordType string
		size     int64
		offsets  []int64
	}{
		{WordLong, 24, []int64{0, 4, 8, 16}},
		{WordShort, 16, []int64{0, 4, 8, 12}},
	}

	for _, test := range tests {
		tr := &translator{wordType: test.wordType}

		size, _, err := tr.sizeOf(st)
		if err != nil {
			t.Fatal(err)
		}

		if size != test.size {
			t.Errorf("word %s: expected size %d but got %d", test.wordType, test.size, size)
		}

		for i, want := range test.offsets {
			got, err := tr.fieldOffset(st, i)
			if err != nil {
				t.Fatal(err)
			}

			if got != want {
				t.Errorf("word %s: expected field %d at %d but got %d", test.wordType, i, want, got)
			}
		}
	}
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out", "prog.ll")

	c, err := OpenCache(filepath.Join(dir, ".lowc"), true)
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		data    string
		written bool
	}{
		{"first", true},
		{"first", false},
		{"second", true},
	}

	for i, step := range steps {
		written, err := c.WriteFile(out, []byte(step.data))
		if err != nil {
			t.Fatal(err)
		}

		if written != step.written {
			t.Errorf("step %d: expected written = %v", i, step.written)
		}
	}

	if err := c.Save(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenCache(filepath.Join(dir, ".lowc"), true)
	if err != nil {
		t.Fatal(err)
	}

	if !reopened.Unchanged(out, []byte("second")) {
		t.Error("expected the fingerprint to survive a reload")
	}

	// an output edited on disk must be written again
	if err := os.WriteFile(out, []byte("edited"), 0644); err != nil {
		t.Fatal(err)
	}

	if reopened.Unchanged(out, []byte("second")) {
		t.Error("expected an output edited on disk to count as changed")
	}

	if written, err := reopened.WriteFile(out, []byte("second")); err != nil || !written {
		t.Errorf("expected the edited output to be rewritten (written = %v, err = %v)", written, err)
	}

	// a deleted output must be written again
	if err := os.Remove(out); err != nil {
		t.Fatal(err)
	}

	if reopened.Unchanged(out, []byte("second")) {
		t.Error("expected a missing output to count as changed")
	}
}

func TestDisabledCache(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "prog.ll")

	c, err := OpenCache(filepath.Join(dir, ".lowc"), false)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		written, err := c.WriteFile(out, []byte("same"))
		if err != nil {
			t.Fatal(err)
		}

		if !written {
			t.Errorf("write %d: expected a disabled cache to always write", i)
		}
	}

	if err := c.Save(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".lowc")); !os.IsNotExist(err) {
		t.Error("expected a disabled cache to leave no index behind")
	}
}
