package interp

import (
	"bytes"
	"errors"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

func i32(x int64) *constant.Int {
	return constant.NewInt(types.I32, x)
}

// newPrintf declares the external printf in mod.
func newPrintf(mod *ir.Module) *ir.Func {
	printf := mod.NewFunc("printf", types.I32, ir.NewParam("format", types.I8Ptr))
	printf.Sig.Variadic = true
	return printf
}

// newString adds a null terminated string global to mod and returns a pointer
// to its first character.
func newString(mod *ir.Module, name, s string) constant.Constant {
	g := mod.NewGlobalDef(name, constant.NewCharArrayFromString(s+"\x00"))
	g.Immutable = true

	return constant.NewGetElementPtr(types.NewArray(uint64(len(s)+1), types.I8), g, i32(0), i32(0))
}

func toValues(consts []constant.Constant) []value.Value {
	vals := make([]value.Value, len(consts))
	for i, c := range consts {
		vals[i] = c
	}

	return vals
}

func TestArithmeticWraps(t *testing.T) {
	mod := ir.NewModule()
	main := mod.NewFunc("main", types.I32)
	entry := main.NewBlock("entry")

	sum := entry.NewAdd(i32(2147483647), i32(1))
	entry.NewRet(sum)

	code, err := Run(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	if code != -2147483648 {
		t.Errorf("expected i32 overflow to wrap but got %d", code)
	}
}

func TestDivideByZero(t *testing.T) {
	mod := ir.NewModule()
	main := mod.NewFunc("main", types.I32)
	entry := main.NewBlock("entry")
	entry.NewRet(entry.NewSDiv(i32(1), i32(0)))

	if _, err := Run(mod, &bytes.Buffer{}); !errors.Is(err, ErrDivideByZero) {
		t.Errorf("expected a division by zero error but got %v", err)
	}
}

func TestLoopAndPhi(t *testing.T) {
	// counts i from 0 to 5 with the counter carried in a phi
	mod := ir.NewModule()
	main := mod.NewFunc("main", types.I32)
	entry := main.NewBlock("entry")
	cond := main.NewBlock("cond")
	body := main.NewBlock("body")
	end := main.NewBlock("end")

	entry.NewBr(cond)

	phi := cond.NewPhi(ir.NewIncoming(i32(0), entry))
	cmp := cond.NewICmp(enum.IPredSLT, phi, i32(5))
	cond.NewCondBr(cmp, body, end)

	next := body.NewAdd(phi, i32(1))
	body.NewBr(cond)
	phi.Incs = append(phi.Incs, ir.NewIncoming(next, body))

	end.NewRet(phi)

	m, err := New(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	result, err := m.Call("main")
	if err != nil {
		t.Fatal(err)
	}

	if result.Int != 5 {
		t.Errorf("expected 5 but got %d", result.Int)
	}

	if hits := m.BlockHits("main", "body"); hits != 5 {
		t.Errorf("expected the body to run 5 times but it ran %d times", hits)
	}

	if hits := m.BlockHits("main", "cond"); hits != 6 {
		t.Errorf("expected the condition to run 6 times but it ran %d times", hits)
	}
}

func TestStructMemory(t *testing.T) {
	mod := ir.NewModule()
	pair := types.NewStruct(types.I32, types.Float)
	main := mod.NewFunc("main", types.I32)
	entry := main.NewBlock("entry")

	slot := entry.NewAlloca(pair)
	first := entry.NewGetElementPtr(pair, slot, i32(0), i32(0))
	second := entry.NewGetElementPtr(pair, slot, i32(0), i32(1))
	entry.NewStore(i32(7), first)
	entry.NewStore(constant.NewFloat(types.Float, 2.5), second)
	entry.NewRet(entry.NewLoad(types.I32, first))

	m, err := New(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	result, err := m.Call("main")
	if err != nil {
		t.Fatal(err)
	}

	if result.Int != 7 {
		t.Errorf("expected the first field to hold 7 but got %s", result)
	}
}

func TestGlobals(t *testing.T) {
	mod := ir.NewModule()
	counter := mod.NewGlobalDef("counter", i32(41))

	main := mod.NewFunc("main", types.Void)
	entry := main.NewBlock("entry")
	val := entry.NewLoad(types.I32, counter)
	entry.NewStore(entry.NewAdd(val, i32(1)), counter)
	entry.NewRet(nil)

	m, err := New(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Call("main"); err != nil {
		t.Fatal(err)
	}

	got, err := m.Global("counter")
	if err != nil {
		t.Fatal(err)
	}

	if got.Int != 42 {
		t.Errorf("expected the global to hold 42 but got %s", got)
	}
}

func TestCalls(t *testing.T) {
	mod := ir.NewModule()

	x, y := ir.NewParam("x", types.I32), ir.NewParam("y", types.I32)
	sum := mod.NewFunc("sum", types.I32, x, y)
	sumEntry := sum.NewBlock("entry")
	sumEntry.NewRet(sumEntry.NewAdd(x, y))

	main := mod.NewFunc("main", types.I32)
	entry := main.NewBlock("entry")
	entry.NewRet(entry.NewCall(sum, i32(10), i32(20)))

	m, err := New(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	result, err := m.Call("main")
	if err != nil {
		t.Fatal(err)
	}

	if result.Int != 30 {
		t.Errorf("expected 30 but got %s", result)
	}

	if calls := m.Stats().Calls["sum"]; calls != 1 {
		t.Errorf("expected one call to sum but got %d", calls)
	}
}

func TestStepLimit(t *testing.T) {
	mod := ir.NewModule()
	main := mod.NewFunc("main", types.Void)
	entry := main.NewBlock("entry")
	loop := main.NewBlock("loop")

	entry.NewBr(loop)
	loop.NewAdd(i32(1), i32(1))
	loop.NewBr(loop)

	m, err := New(mod, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}

	m.MaxSteps = 100
	if _, err := m.Call("main"); !errors.Is(err, ErrStepLimit) {
		t.Errorf("expected the step limit to be hit but got %v", err)
	}
}

func TestPrintf(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   func(mod *ir.Module) []constant.Constant
		want   string
	}{
		{
			name:   "integers",
			format: "%d %i %5d|%-3d|%x %X %u %%\n",
			args: func(*ir.Module) []constant.Constant {
				return []constant.Constant{i32(42), i32(-7), i32(12), i32(3), i32(255), i32(255), i32(-1)}
			},
			want: "42 -7    12|3  |ff FF 4294967295 %\n",
		},
		{
			name:   "floats",
			format: "%f %.2f %e %g\n",
			args: func(*ir.Module) []constant.Constant {
				return []constant.Constant{
					constant.NewFloat(types.Double, 1.5),
					constant.NewFloat(types.Double, 3.14159),
					constant.NewFloat(types.Double, 1234.5),
					constant.NewFloat(types.Double, 0.1),
				}
			},
			want: "1.500000 3.14 1.234500e+03 0.1\n",
		},
		{
			name:   "strings",
			format: "%s and %c\n",
			args: func(mod *ir.Module) []constant.Constant {
				return []constant.Constant{newString(mod, "word", "hello"), i32('x')}
			},
			want: "hello and x\n",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mod := ir.NewModule()
			printf := newPrintf(mod)
			main := mod.NewFunc("main", types.I32)
			entry := main.NewBlock("entry")

			args := []constant.Constant{newString(mod, "fmt", test.format)}
			args = append(args, test.args(mod)...)

			n := entry.NewCall(printf, toValues(args)...)
			entry.NewRet(n)

			var out bytes.Buffer
			code, err := Run(mod, &out)
			if err != nil {
				t.Fatal(err)
			}

			if out.String() != test.want {
				t.Errorf("expected %q but got %q", test.want, out.String())
			}

			if code != len(test.want) {
				t.Errorf("expected printf to return %d but got %d", len(test.want), code)
			}
		})
	}
}
