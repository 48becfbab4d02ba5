package ir

// CloneBlocksInto copies blocks into dst, appending suffix to each
// block name. The clones' operands still reference the original
// values; the returned map carries original-to-clone entries for every
// cloned block and instruction. Callers extend the map with their own
// substitutions and then apply Remap.
func CloneBlocksInto(dst *Function, blocks []*Block, suffix string) ([]*Block, map[Value]Value) {
	vm := make(map[Value]Value)
	clones := make([]*Block, 0, len(blocks))
	for _, b := range blocks {
		nb := dst.NewBlock(b.name + suffix)
		vm[b] = nb
		clones = append(clones, nb)
		for _, in := range b.Instrs {
			c := in.clone()
			nb.Append(c)
			vm[in] = c
		}
	}
	return clones, vm
}

// Remap rewrites the operands of every instruction in blocks through
// vm. Phi predecessor entries are operands and are rewritten the same
// way.
func Remap(blocks []*Block, vm map[Value]Value) {
	for _, b := range blocks {
		for _, in := range b.Instrs {
			for k, o := range in.ops {
				if r, ok := vm[o]; ok {
					in.SetOperand(k, r)
				}
			}
		}
	}
}
