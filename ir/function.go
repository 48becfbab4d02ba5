package ir

import "fmt"

// Attr is a set of function attributes.
type Attr uint32

const (
	// AttrAsync marks a spawnable task entry. The extraction driver
	// seeds its walk from functions carrying it.
	AttrAsync Attr = 1 << iota
	// AttrUnbound marks a function whose behavior does not depend on
	// which node runs it.
	AttrUnbound
	// AttrReadNone marks a function that touches no memory.
	AttrReadNone
	// AttrInternal hides a function from the module's public surface.
	AttrInternal
)

var attrNames = []struct {
	bit  Attr
	name string
}{
	{AttrAsync, "async"},
	{AttrUnbound, "unbound"},
	{AttrReadNone, "readnone"},
	{AttrInternal, "internal"},
}

// Has reports whether all bits of f are set.
func (a Attr) Has(f Attr) bool { return a&f == f }

// Names returns the set attribute names in declaration order.
func (a Attr) Names() []string {
	var out []string
	for _, an := range attrNames {
		if a.Has(an.bit) {
			out = append(out, an.name)
		}
	}
	return out
}

// AttrByName returns the attribute bit with the given name.
func AttrByName(name string) (Attr, bool) {
	for _, an := range attrNames {
		if an.name == name {
			return an.bit, true
		}
	}
	return 0, false
}

// Function is a named function: a declaration when Blocks is empty, a
// definition otherwise. As a value it is a pointer to its signature.
type Function struct {
	valueBase
	Sig    *FuncType
	Params []*Argument
	Blocks []*Block
	Attrs  Attr
	mod    *Module
	typ    *PointerType
}

func (f *Function) Type() Type      { return f.typ }
func (f *Function) String() string  { return "@" + f.name }
func (f *Function) IsDecl() bool    { return len(f.Blocks) == 0 }
func (f *Function) Module() *Module { return f.mod }

// Entry returns the function's entry block, nil for declarations.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock appends a new empty block named name.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{fn: f}
	b.name = name
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewBlockBefore inserts a new empty block named name in front of
// ref. Block order affects printing only; control flow is explicit.
func (f *Function) NewBlockBefore(name string, ref *Block) *Block {
	b := &Block{fn: f}
	b.name = name
	for k, cur := range f.Blocks {
		if cur == ref {
			f.Blocks = append(f.Blocks, nil)
			copy(f.Blocks[k+1:], f.Blocks[k:])
			f.Blocks[k] = b
			return b
		}
	}
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewBlockAfter inserts a new empty block named name right behind
// ref.
func (f *Function) NewBlockAfter(name string, ref *Block) *Block {
	b := &Block{fn: f}
	b.name = name
	for k, cur := range f.Blocks {
		if cur == ref {
			f.Blocks = append(f.Blocks, nil)
			copy(f.Blocks[k+2:], f.Blocks[k+1:])
			f.Blocks[k+1] = b
			return b
		}
	}
	f.Blocks = append(f.Blocks, b)
	return b
}

// BlockByName returns the block named name, nil if absent.
func (f *Function) BlockByName(name string) *Block {
	for _, b := range f.Blocks {
		if b.name == name {
			return b
		}
	}
	return nil
}

// RemoveBlocks detaches the given blocks from f, dropping all operand
// edges of their instructions first so the use lists of surviving
// values stay consistent. Callers must have rerouted any references
// into the removed set beforehand.
func (f *Function) RemoveBlocks(del []*Block) {
	dying := make(map[*Block]bool, len(del))
	for _, b := range del {
		dying[b] = true
	}
	for _, b := range del {
		for _, in := range b.Instrs {
			in.dropOperands()
		}
	}
	kept := f.Blocks[:0]
	for _, b := range f.Blocks {
		if !dying[b] {
			kept = append(kept, b)
		} else {
			b.fn = nil
		}
	}
	f.Blocks = kept
}

// Instrs yields every instruction of the function in block layout
// order.
func (f *Function) Instrs(yield func(*Instr) bool) {
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if !yield(in) {
				return
			}
		}
	}
}

func (f *Function) defineParams(names []string) {
	f.Params = make([]*Argument, len(f.Sig.Params))
	for i, pt := range f.Sig.Params {
		a := &Argument{typ: pt, fn: f, idx: i}
		if i < len(names) && names[i] != "" {
			a.name = names[i]
		} else {
			a.name = fmt.Sprintf("p%d", i)
		}
		f.Params[i] = a
	}
}
