package ir

// Block is a basic block: a straight-line instruction sequence ending
// in one terminator. Blocks are values so they can appear as branch
// targets and phi predecessor entries.
type Block struct {
	valueBase
	fn     *Function
	Instrs []*Instr
}

func (b *Block) Type() Type        { return Label }
func (b *Block) String() string    { return b.name }
func (b *Block) Parent() *Function { return b.fn }

// First returns the block's first instruction, nil when empty.
func (b *Block) First() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	return b.Instrs[0]
}

// Terminator returns the block's final instruction if it is a
// terminator, nil while the block is under construction.
func (b *Block) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !last.Op.IsTerminator() {
		return nil
	}
	return last
}

// Append adds in at the end of the block and returns it.
func (b *Block) Append(in *Instr) *Instr {
	in.blk = b
	b.Instrs = append(b.Instrs, in)
	return in
}

// InsertBefore places in immediately before pos, which must belong to
// the block.
func (b *Block) InsertBefore(in, pos *Instr) *Instr {
	k := b.indexOf(pos)
	if k < 0 {
		return nil
	}
	in.blk = b
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[k+1:], b.Instrs[k:])
	b.Instrs[k] = in
	return in
}

func (b *Block) indexOf(in *Instr) int {
	for k, cur := range b.Instrs {
		if cur == in {
			return k
		}
	}
	return -1
}

// Preds returns the blocks branching to b, deduplicated, in
// first-branch order. Phi references do not count as edges.
func (b *Block) Preds() []*Block {
	var out []*Block
	seen := make(map[*Block]bool)
	for _, u := range b.allUses() {
		if !u.user.Op.IsTerminator() || u.user.blk == nil {
			continue
		}
		if p := u.user.blk; !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Succs returns the blocks b's terminator can branch to,
// deduplicated.
func (b *Block) Succs() []*Block {
	t := b.Terminator()
	if t == nil {
		return nil
	}
	var out []*Block
	seen := make(map[*Block]bool)
	for _, o := range t.ops {
		if s, ok := o.(*Block); ok && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// SplitBefore moves the instructions from pos onward into a new block
// named name and ends b with an unconditional branch to it. Successor
// phis are retargeted to the new block. pos must belong to b and must
// not be its first instruction.
func (b *Block) SplitBefore(pos *Instr, name string) *Block {
	k := b.indexOf(pos)
	if k <= 0 {
		return nil
	}
	nb := b.fn.NewBlockAfter(name, b)
	tail := b.Instrs[k:]
	b.Instrs = b.Instrs[:k:k]
	for _, in := range tail {
		in.blk = nb
	}
	nb.Instrs = append(nb.Instrs, tail...)
	if t := nb.Terminator(); t != nil {
		for _, s := range nb.Succs() {
			s.replacePhiPred(b, nb)
		}
	}
	b.Append(NewBr(nb))
	return nb
}

// replacePhiPred rewrites phi predecessor entries from old to now.
// Phis lead a block; the scan stops at the first non-phi.
func (b *Block) replacePhiPred(old, now *Block) {
	for _, in := range b.Instrs {
		if in.Op != OpPhi {
			break
		}
		for k := 1; k < len(in.ops); k += 2 {
			if pb, ok := in.ops[k].(*Block); ok && pb == old {
				in.SetOperand(k, now)
			}
		}
	}
}
