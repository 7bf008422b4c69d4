package generate

import (
	"lowc/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
)

// PendingMerge collects the values a storage location holds at the end of
// each predecessor of a merge block.  It is resolved into a phi once every
// predecessor is known.
type PendingMerge struct {
	typ      typing.DataType
	incoming []*ir.Incoming
}

// NewPendingMerge creates an empty pending merge of values of type dt.
func NewPendingMerge(dt typing.DataType) *PendingMerge {
	return &PendingMerge{typ: dt}
}

// AddIncoming records that val flows into the merge from pred.
func (pm *PendingMerge) AddIncoming(val value.Value, pred *ir.Block) {
	pm.incoming = append(pm.incoming, ir.NewIncoming(val, pred))
}

// Incoming returns the recorded (value, predecessor) pairs.
func (pm *PendingMerge) Incoming() []*ir.Incoming {
	return pm.incoming
}

// Resolve emits the phi joining the incoming values at the cursor, which must
// be at the start of the merge block.
func (pm *PendingMerge) Resolve(b *Builder) (Value, error) {
	block, err := b.Insert()
	if err != nil {
		return Value{}, err
	}

	return Value{LL: block.NewPhi(pm.incoming...), Type: pm.typ}, nil
}

// -----------------------------------------------------------------------------

// trackedWrite is the last value stored to a symbol's storage.
type trackedWrite struct {
	sym *Symbol
	val value.Value
}

// armTracker records the last value stored to each scalar storage location at
// one nesting level of a conditional arm or loop body.  A value is only
// recorded while it is known to be the current contents of the storage at
// the end of the arm.
type armTracker struct {
	writes map[value.Value]trackedWrite
	order  []value.Value

	// touched is every storage location written at this level or below,
	// including those whose value is no longer known.
	touched map[value.Value]*Symbol
}

func newArmTracker() *armTracker {
	return &armTracker{
		writes:  make(map[value.Value]trackedWrite),
		touched: make(map[value.Value]*Symbol),
	}
}

// record notes that val was stored to sym at this level.
func (at *armTracker) record(sym *Symbol, val value.Value) {
	if _, ok := at.writes[sym.Storage]; !ok {
		at.order = append(at.order, sym.Storage)
	}

	at.writes[sym.Storage] = trackedWrite{sym: sym, val: val}
	at.touched[sym.Storage] = sym
}

// invalidate forgets the value of a storage location.
func (at *armTracker) invalidate(sym *Symbol) {
	delete(at.writes, sym.Storage)
	at.touched[sym.Storage] = sym
}

// known returns the writes whose values are still known, in the order the
// storage locations were first written.
func (at *armTracker) known() []trackedWrite {
	var writes []trackedWrite
	for _, storage := range at.order {
		if w, ok := at.writes[storage]; ok {
			writes = append(writes, w)
		}
	}

	return writes
}

// -----------------------------------------------------------------------------

// pushArm starts tracking writes for a new arm or loop body.
func (g *Generator) pushArm() {
	g.arms = append(g.arms, newArmTracker())
}

// popArm stops tracking writes for the innermost arm.  Every storage location
// touched by the arm becomes unknown to the enclosing arm: the caller records
// merged values afterward if it can compute them.
func (g *Generator) popArm() *armTracker {
	at := g.arms[len(g.arms)-1]
	g.arms = g.arms[:len(g.arms)-1]

	if len(g.arms) > 0 {
		parent := g.arms[len(g.arms)-1]
		for _, sym := range at.touched {
			parent.invalidate(sym)
		}
	}

	return at
}

// recordWrite notes a store of a scalar value to a variable in the innermost
// arm.
func (g *Generator) recordWrite(sym *Symbol, val value.Value) {
	if len(g.arms) == 0 || !typing.IsScalar(sym.Type) {
		return
	}

	g.arms[len(g.arms)-1].record(sym, val)
}

// clobberGlobals forgets the values of all globals in every enclosing arm.
// Called functions may write to any global.
func (g *Generator) clobberGlobals() {
	for _, at := range g.arms {
		for _, w := range at.known() {
			if _, ok := w.sym.Storage.(*ir.Global); ok {
				at.invalidate(w.sym)
			}
		}
	}
}
