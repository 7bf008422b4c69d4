package generate

import (
	"lowc/ast"

	"github.com/llir/llvm/ir"
)

// genIf generates a conditional.  Three blocks are allocated: then, else and
// merge.  Variables assigned in both arms are joined with a phi at the start
// of the merge block, and the joined value is stored back so that later reads
// see it.  Without an else branch, the false edge goes straight to the merge
// block and the else block is never used.
func (g *Generator) genIf(ifStmt *ast.IfStmt) error {
	cond, err := g.genCondition(ifStmt.Condition, ifStmt.Describe())
	if err != nil {
		return err
	}

	fn := g.fs.fn.LL
	thenBlock := g.builder.CreateBlock(fn, "then")
	elseBlock := g.builder.CreateBlock(fn, "else")
	mergeBlock := g.builder.CreateBlock(fn, "merge")

	falseTarget := elseBlock
	if ifStmt.Else == nil {
		falseTarget = mergeBlock
	}

	if err := g.builder.TerminateWithConditional(cond, thenBlock, falseTarget); err != nil {
		return err
	}

	// then branch
	g.builder.PositionAt(thenBlock)
	thenArm, thenEnd, err := g.genArm(ifStmt.Then, mergeBlock)
	if err != nil {
		return err
	}

	// else branch
	var elseArm *armTracker
	var elseEnd *ir.Block
	if ifStmt.Else != nil {
		g.builder.PositionAt(elseBlock)
		elseArm, elseEnd, err = g.genArm(ifStmt.Else, mergeBlock)
		if err != nil {
			return err
		}
	}

	g.builder.PositionAt(mergeBlock)

	// values are only merged if both arms reach the merge block: an arm that
	// returns contributes nothing
	if thenEnd == nil || elseEnd == nil {
		return nil
	}

	return g.genMerges(thenArm, thenEnd, elseArm, elseEnd)
}

// genArm generates one arm of a conditional and branches to the merge block.
// It returns the writes tracked in the arm and the block the arm ends in, or
// nil if the arm does not reach the merge block.
func (g *Generator) genArm(body *ast.Block, mergeBlock *ir.Block) (*armTracker, *ir.Block, error) {
	g.pushArm()
	err := g.genBlock(body)
	arm := g.popArm()

	if err != nil {
		return nil, nil, err
	}

	if !g.builder.IsOpen() {
		return arm, nil, nil
	}

	end := g.builder.Current()
	if err := g.builder.TerminateWithBranch(mergeBlock); err != nil {
		return nil, nil, err
	}

	return arm, end, nil
}

// genMerges joins the variables written in both arms of a conditional.  All
// the phis are generated before any store since phis must lead their block.
func (g *Generator) genMerges(thenArm *armTracker, thenEnd *ir.Block, elseArm *armTracker, elseEnd *ir.Block) error {
	type merge struct {
		sym *Symbol
		val Value
	}

	var merges []merge
	for _, thenWrite := range thenArm.known() {
		elseWrite, ok := elseArm.writes[thenWrite.sym.Storage]
		if !ok {
			continue
		}

		pm := NewPendingMerge(thenWrite.sym.Type)
		pm.AddIncoming(thenWrite.val, thenEnd)
		pm.AddIncoming(elseWrite.val, elseEnd)

		val, err := pm.Resolve(g.builder)
		if err != nil {
			return err
		}

		merges = append(merges, merge{sym: thenWrite.sym, val: val})
	}

	if len(merges) == 0 {
		return nil
	}

	block, err := g.builder.Insert()
	if err != nil {
		return err
	}

	for _, m := range merges {
		block.NewStore(m.val.LL, m.sym.Storage)
		g.recordWrite(m.sym, m.val.LL)
	}

	return nil
}

// genWhile generates a while loop.  The condition is evaluated in its own
// block on every iteration; the body branches back to it.
func (g *Generator) genWhile(loop *ast.WhileLoop) error {
	fn := g.fs.fn.LL
	condBlock := g.builder.CreateBlock(fn, "cond")
	bodyBlock := g.builder.CreateBlock(fn, "body")
	endBlock := g.builder.CreateBlock(fn, "end")

	if err := g.builder.TerminateWithBranch(condBlock); err != nil {
		return err
	}

	g.builder.PositionAt(condBlock)
	cond, err := g.genCondition(loop.Condition, loop.Describe())
	if err != nil {
		return err
	}

	if err := g.builder.TerminateWithConditional(cond, bodyBlock, endBlock); err != nil {
		return err
	}

	// values written in the body are not known after the loop since the body
	// may run any number of times
	g.builder.PositionAt(bodyBlock)
	g.pushArm()
	err = g.genBlock(loop.Body)
	g.popArm()

	if err != nil {
		return err
	}

	if g.builder.IsOpen() {
		if err := g.builder.TerminateWithBranch(condBlock); err != nil {
			return err
		}
	}

	g.builder.PositionAt(endBlock)
	return nil
}
