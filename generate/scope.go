package generate

import (
	"lowc/report"
	"lowc/typing"

	"github.com/llir/llvm/ir/value"
)

// Symbol is a named binding to a storage location.  A symbol is created once
// per declaration and never rebound: redeclaring the name creates a new symbol.
type Symbol struct {
	Name string

	// Storage is the address of the symbol's value: an alloca in the entry
	// block of the enclosing function or a global.
	Storage value.Value

	// Type is the type of the value held in Storage.
	Type typing.DataType
}

// ScopeID is the index of a scope in its chain's arena.
type ScopeID int

// noScope is the parent of the root scope.
const noScope ScopeID = -1

// scope is a single lexical scope.
type scope struct {
	parent  ScopeID
	symbols map[string]*Symbol
}

// ScopeChain is the chain of lexical scopes of a single function.  Scopes are
// stored in an arena and refer to their parent by index.  Since scopes nest
// strictly, the arena is also a stack: the current scope is always the last
// one allocated.
type ScopeChain struct {
	scopes  []scope
	current ScopeID
}

// NewScopeChain creates a new scope chain containing only a root scope.
func NewScopeChain() *ScopeChain {
	sc := &ScopeChain{current: noScope}
	sc.Push()
	return sc
}

// Push enters a new scope nested inside the current one.
func (sc *ScopeChain) Push() ScopeID {
	sc.scopes = append(sc.scopes, scope{
		parent:  sc.current,
		symbols: make(map[string]*Symbol),
	})

	sc.current = ScopeID(len(sc.scopes) - 1)
	return sc.current
}

// Pop exits the current scope.  Only the name table is discarded: the storage
// of the symbols it held remains valid for the rest of the function.  The root
// scope is never popped.
func (sc *ScopeChain) Pop() {
	if sc.current <= 0 {
		return
	}

	sc.current = sc.scopes[sc.current].parent
	sc.scopes = sc.scopes[:len(sc.scopes)-1]
}

// Depth returns the number of scopes in the chain including the root.
func (sc *ScopeChain) Depth() int {
	return len(sc.scopes)
}

// Declare binds a name in the current scope.  An existing binding of the same
// name in the current scope is replaced; bindings in enclosing scopes are
// shadowed.
func (sc *ScopeChain) Declare(name string, storage value.Value, typ typing.DataType) *Symbol {
	sym := &Symbol{Name: name, Storage: storage, Type: typ}
	sc.scopes[sc.current].symbols[name] = sym
	return sym
}

// Lookup finds the innermost binding of a name.
func (sc *ScopeChain) Lookup(name string) (*Symbol, bool) {
	for id := sc.current; id != noScope; id = sc.scopes[id].parent {
		if sym, ok := sc.scopes[id].symbols[name]; ok {
			return sym, true
		}
	}

	return nil, false
}

// Resolve is Lookup but fails with an UndefinedSymbol error on a miss.
func (sc *ScopeChain) Resolve(name string) (*Symbol, error) {
	if sym, ok := sc.Lookup(name); ok {
		return sym, nil
	}

	return nil, report.Raise(report.UndefinedSymbol, "reference to `"+name+"`", "`%s` is not defined in any enclosing scope", name)
}
