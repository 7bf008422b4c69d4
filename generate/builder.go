package generate

import (
	"fmt"
	"lowc/report"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// Builder manages the single insertion point (cursor) of the generator.  It
// enforces the basic block discipline: instructions are only appended to the
// block at the cursor, and only while that block is unterminated.
type Builder struct {
	// block is the block at the cursor, or nil if the builder is not
	// positioned anywhere.
	block *ir.Block

	// owners maps every block created by the builder to its function.
	owners map[*ir.Block]*ir.Func

	// visited is the set of blocks the cursor has been positioned at.
	visited map[*ir.Block]struct{}

	// names is the set of local names used in each function.
	names map[*ir.Func]map[string]int

	// saved is the stack of saved cursors.
	saved      []Cursor
	cursorSeed int
}

// Cursor is a saved insertion point.
type Cursor struct {
	id    int
	block *ir.Block
}

// NewBuilder creates a new builder with no insertion point.
func NewBuilder() *Builder {
	return &Builder{
		owners:  make(map[*ir.Block]*ir.Func),
		visited: make(map[*ir.Block]struct{}),
		names:   make(map[*ir.Func]map[string]int),
	}
}

// -----------------------------------------------------------------------------

// CreateBlock creates a new, empty block in fn.  The cursor does not move.
func (b *Builder) CreateBlock(fn *ir.Func, hint string) *ir.Block {
	block := fn.NewBlock(b.UniqueName(fn, hint))
	b.owners[block] = fn
	return block
}

// UniqueName returns a local name in fn derived from hint that has not been
// used before.  Blocks, parameters and locals share a single namespace.
func (b *Builder) UniqueName(fn *ir.Func, hint string) string {
	used, ok := b.names[fn]
	if !ok {
		used = make(map[string]int)
		for _, param := range fn.Params {
			used[param.Name()] = 1
		}

		b.names[fn] = used
	}

	n := used[hint]
	used[hint] = n + 1

	if n == 0 {
		return hint
	}

	name := fmt.Sprintf("%s.%d", hint, n)
	for used[name] > 0 {
		n++
		name = fmt.Sprintf("%s.%d", hint, n)
	}

	used[name] = 1
	return name
}

// PositionAt moves the cursor to the given block.
func (b *Builder) PositionAt(block *ir.Block) {
	b.block = block
	b.visited[block] = struct{}{}
}

// Current returns the block at the cursor.  It may be nil.
func (b *Builder) Current() *ir.Block {
	return b.block
}

// CurrentFunc returns the function containing the block at the cursor.
func (b *Builder) CurrentFunc() *ir.Func {
	return b.owners[b.block]
}

// IsOpen returns whether the cursor is at a block that can still receive
// instructions.
func (b *Builder) IsOpen() bool {
	return b.block != nil && b.block.Term == nil
}

// Insert returns the block that instructions should be appended to.
func (b *Builder) Insert() (*ir.Block, error) {
	if b.block == nil {
		return nil, report.Raise(report.NoInsertionPoint, "", "the builder is not positioned at any block")
	}

	if b.block.Term != nil {
		return nil, report.Raise(report.BlockAlreadyTerminated, "", "block `%s` is already terminated", b.block.Name())
	}

	return b.block, nil
}

// -----------------------------------------------------------------------------

// TerminateWithBranch ends the current block with an unconditional branch.
func (b *Builder) TerminateWithBranch(target *ir.Block) error {
	block, err := b.Insert()
	if err != nil {
		return err
	}

	block.NewBr(target)
	return nil
}

// TerminateWithConditional ends the current block with a conditional branch.
func (b *Builder) TerminateWithConditional(cond value.Value, ifTrue, ifFalse *ir.Block) error {
	block, err := b.Insert()
	if err != nil {
		return err
	}

	block.NewCondBr(cond, ifTrue, ifFalse)
	return nil
}

// TerminateWithReturn ends the current block with a return.  A nil value
// returns void.
func (b *Builder) TerminateWithReturn(val value.Value) error {
	block, err := b.Insert()
	if err != nil {
		return err
	}

	block.NewRet(val)
	return nil
}

// -----------------------------------------------------------------------------

// Save pushes the current cursor onto the saved stack and clears the
// insertion point.  Every Save must be matched by a Restore of the returned
// cursor, in LIFO order.
func (b *Builder) Save() Cursor {
	b.cursorSeed++

	c := Cursor{id: b.cursorSeed, block: b.block}
	b.saved = append(b.saved, c)
	b.block = nil

	return c
}

// Restore pops a saved cursor and moves the insertion point back to it.  The
// cursor must be the most recently saved one.
func (b *Builder) Restore(c Cursor) error {
	if len(b.saved) == 0 {
		return report.Raise(report.CursorMismatch, "", "restoring cursor %d but no cursor is saved", c.id)
	}

	top := b.saved[len(b.saved)-1]
	if top.id != c.id {
		return report.Raise(report.CursorMismatch, "", "restoring cursor %d but cursor %d was saved last", c.id, top.id)
	}

	b.saved = b.saved[:len(b.saved)-1]
	b.block = c.block
	return nil
}

// -----------------------------------------------------------------------------

// Seal removes the blocks of fn that were created but never used: blocks the
// cursor was never positioned at and which received no instructions.
func (b *Builder) Seal(fn *ir.Func) {
	kept := fn.Blocks[:0]
	for _, block := range fn.Blocks {
		_, visited := b.visited[block]
		if visited || len(block.Insts) > 0 || block.Term != nil {
			kept = append(kept, block)
		} else {
			delete(b.owners, block)
		}
	}

	fn.Blocks = kept
}

// Discard drops every block of fn.  It is used when lowering of fn fails so
// that no partial body is left behind.
func (b *Builder) Discard(fn *ir.Func) {
	for _, block := range fn.Blocks {
		delete(b.owners, block)
		delete(b.visited, block)
	}

	fn.Blocks = nil
	delete(b.names, fn)
}

// -----------------------------------------------------------------------------

// checkpoint is a position in the current block that emission can be rolled
// back to.
type checkpoint struct {
	block *ir.Block
	insts int
}

func (b *Builder) checkpoint() checkpoint {
	if b.block == nil {
		return checkpoint{}
	}

	return checkpoint{block: b.block, insts: len(b.block.Insts)}
}

// rollback removes every instruction appended to the checkpointed block after
// the checkpoint was taken.
func (b *Builder) rollback(cp checkpoint) {
	if cp.block != nil && len(cp.block.Insts) > cp.insts {
		cp.block.Insts = cp.block.Insts[:cp.insts]
	}
}
