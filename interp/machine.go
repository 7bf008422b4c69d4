package interp

import (
	"errors"
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// DefaultMaxSteps is the default limit on the number of instructions a
// machine executes before giving up.
const DefaultMaxSteps = 10_000_000

// maxCallDepth bounds recursion.
const maxCallDepth = 4096

// Errors returned by the machine.
var (
	ErrStepLimit    = errors.New("step limit exceeded")
	ErrCallDepth    = errors.New("call depth exceeded")
	ErrDivideByZero = errors.New("integer division by zero")
)

// Stats are the execution counters of a machine.
type Stats struct {
	// Steps is the number of instructions executed.
	Steps int

	// BlockHits counts the executions of each block keyed by
	// `function/block`.
	BlockHits map[string]int

	// Calls counts the calls to each function, including external ones.
	Calls map[string]int
}

// Machine executes an LLVM module produced by the generator.  It supports the
// subset of LLVM the generator emits along with the external printf function,
// whose output goes to the machine's writer.
type Machine struct {
	mod *ir.Module
	out io.Writer

	globals map[*ir.Global]*cell
	funcs   map[string]*ir.Func

	// MaxSteps is the instruction limit.  It may be changed before running.
	MaxSteps int

	stats Stats
	depth int
}

// New creates a new machine for the given module and initializes its globals.
func New(mod *ir.Module, out io.Writer) (*Machine, error) {
	m := &Machine{
		mod:      mod,
		out:      out,
		globals:  make(map[*ir.Global]*cell),
		funcs:    make(map[string]*ir.Func),
		MaxSteps: DefaultMaxSteps,
		stats: Stats{
			BlockHits: make(map[string]int),
			Calls:     make(map[string]int),
		},
	}

	for _, fn := range mod.Funcs {
		m.funcs[fn.Name()] = fn
	}

	// globals may refer to each other so every cell is created before any is
	// initialized
	for _, g := range mod.Globals {
		m.globals[g] = &cell{name: "@" + g.Name(), val: zeroOf(g.ContentType)}
	}

	for _, g := range mod.Globals {
		if g.Init == nil {
			continue
		}

		init, err := m.eval(nil, g.Init)
		if err != nil {
			return nil, fmt.Errorf("initializing global `%s`: %w", g.Name(), err)
		}

		m.globals[g].val = init
	}

	return m, nil
}

// Run executes the `main` function of a module and returns its result as the
// exit code.  Functions returning void exit with zero.
func Run(mod *ir.Module, out io.Writer) (int, error) {
	m, err := New(mod, out)
	if err != nil {
		return 0, err
	}

	result, err := m.Call("main")
	if err != nil {
		return 0, err
	}

	if result.Kind == KindInt {
		return int(result.Int), nil
	}

	return 0, nil
}

// Call calls the named function with the given arguments.
func (m *Machine) Call(name string, args ...Value) (Value, error) {
	fn, ok := m.funcs[name]
	if !ok {
		return Value{}, fmt.Errorf("no function named `%s`", name)
	}

	if len(args) < len(fn.Params) || (!fn.Sig.Variadic && len(args) > len(fn.Params)) {
		return Value{}, fmt.Errorf("`%s` takes %d arguments but got %d", name, len(fn.Params), len(args))
	}

	return m.call(fn, args)
}

// Global returns the current value of the named global.
func (m *Machine) Global(name string) (Value, error) {
	for g, c := range m.globals {
		if g.Name() == name {
			return c.val.clone(), nil
		}
	}

	return Value{}, fmt.Errorf("no global named `%s`", name)
}

// Stats returns the execution counters.
func (m *Machine) Stats() Stats {
	return m.stats
}

// BlockHits returns the number of times the given block of the given function
// was executed.
func (m *Machine) BlockHits(funcName, blockName string) int {
	return m.stats.BlockHits[funcName+"/"+blockName]
}

// -----------------------------------------------------------------------------

// frame is the activation record of a function call.
type frame struct {
	fn   *ir.Func
	vals map[value.Value]Value
}

func (fr *frame) set(v value.Value, val Value) {
	fr.vals[v] = val
}

// call executes a function.
func (m *Machine) call(fn *ir.Func, args []Value) (Value, error) {
	m.stats.Calls[fn.Name()]++

	if len(fn.Blocks) == 0 {
		return m.callExternal(fn, args)
	}

	if m.depth >= maxCallDepth {
		return Value{}, ErrCallDepth
	}

	m.depth++
	defer func() { m.depth-- }()

	fr := &frame{fn: fn, vals: make(map[value.Value]Value)}
	for i, param := range fn.Params {
		fr.set(param, args[i])
	}

	var prev *ir.Block
	block := fn.Blocks[0]

	for {
		m.stats.BlockHits[fn.Name()+"/"+block.Name()]++

		rest, err := m.execPhis(fr, block, prev)
		if err != nil {
			return Value{}, m.wrapErr(fn, block, err)
		}

		for _, inst := range rest {
			m.stats.Steps++
			if m.stats.Steps > m.MaxSteps {
				return Value{}, ErrStepLimit
			}

			if err := m.exec(fr, inst); err != nil {
				return Value{}, m.wrapErr(fn, block, err)
			}
		}

		next, result, done, err := m.execTerm(fr, block.Term)
		if err != nil {
			return Value{}, m.wrapErr(fn, block, err)
		}

		if done {
			return result, nil
		}

		prev, block = block, next
	}
}

func (m *Machine) wrapErr(fn *ir.Func, block *ir.Block, err error) error {
	if errors.Is(err, ErrStepLimit) || errors.Is(err, ErrCallDepth) {
		return err
	}

	return fmt.Errorf("in %s/%s: %w", fn.Name(), block.Name(), err)
}

// execPhis evaluates the phis leading a block simultaneously and returns the
// remaining instructions.
func (m *Machine) execPhis(fr *frame, block *ir.Block, prev *ir.Block) ([]ir.Instruction, error) {
	type phiResult struct {
		phi *ir.InstPhi
		val Value
	}

	var results []phiResult
	i := 0
	for ; i < len(block.Insts); i++ {
		phi, ok := block.Insts[i].(*ir.InstPhi)
		if !ok {
			break
		}

		found := false
		for _, inc := range phi.Incs {
			if pred, ok := asBlock(inc.Pred); ok && pred == prev {
				val, err := m.eval(fr, inc.X)
				if err != nil {
					return nil, err
				}

				results = append(results, phiResult{phi: phi, val: val})
				found = true
				break
			}
		}

		if !found {
			return nil, fmt.Errorf("phi has no incoming value for the predecessor block")
		}
	}

	for _, r := range results {
		fr.set(r.phi, r.val)
	}

	return block.Insts[i:], nil
}

// asBlock converts a branch target or phi predecessor to a block.
func asBlock(x interface{}) (*ir.Block, bool) {
	block, ok := x.(*ir.Block)
	return block, ok
}
