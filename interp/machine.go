package interp

import (
	"encoding/binary"
	"math"

	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/ir"
)

// Kind discriminates runtime value forms.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindPtr
	KindFunc
)

// Value is one runtime value. A pointer names its owning node and a
// byte offset into that node's memory; offset zero is never allocated
// and serves as null.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Node  int
	Off   int64
	Fn    *ir.Function
}

// IntValue returns an integer runtime value.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FloatValue returns a floating point runtime value.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// Config sizes the simulated cluster.
type Config struct {
	// Nodes is the number of simulated nodes. Defaults to 4.
	Nodes int
	// StepLimit bounds the total instructions one Run may execute.
	// Defaults to 1<<20.
	StepLimit int
	// LocateFn and InvokeFn name the runtime primitives intercepted as
	// builtins. They default to the names the extraction pass emits.
	LocateFn string
	InvokeFn string
}

// Machine executes a module over a simulated multi-node memory. It is
// a deterministic oracle for tests, not a production runtime: every
// node is a flat byte heap grown by a bump allocator, and the remote
// invoke primitive is an ordinary re-entry on the target node.
type Machine struct {
	mod       *ir.Module
	nodes     [][]byte
	globals   []map[*ir.Global]int64
	stepLimit int
	steps     int
	locateFn  string
	invokeFn  string
}

// New returns a machine for m.
func New(m *ir.Module, cfg Config) *Machine {
	if cfg.Nodes <= 0 {
		cfg.Nodes = 4
	}
	if cfg.StepLimit <= 0 {
		cfg.StepLimit = 1 << 20
	}
	if cfg.LocateFn == "" {
		cfg.LocateFn = "resolve_location"
	}
	if cfg.InvokeFn == "" {
		cfg.InvokeFn = "invoke_remote"
	}
	mc := &Machine{
		mod:       m,
		nodes:     make([][]byte, cfg.Nodes),
		globals:   make([]map[*ir.Global]int64, cfg.Nodes),
		stepLimit: cfg.StepLimit,
		locateFn:  cfg.LocateFn,
		invokeFn:  cfg.InvokeFn,
	}
	for i := range mc.nodes {
		// Offset zero stays unused so null pointers never alias a cell.
		mc.nodes[i] = make([]byte, 8)
		mc.globals[i] = make(map[*ir.Global]int64)
	}
	return mc
}

// NumNodes returns the simulated cluster size.
func (m *Machine) NumNodes() int { return len(m.nodes) }

// Alloc reserves one elem cell on node and returns a pointer to it.
// Tests use it to stage cross-node data; whether the pointer is seen
// as local or global is decided by the parameter type it is bound to.
func (m *Machine) Alloc(node int, elem ir.Type) Value {
	li := ir.Layout(elem)
	off := m.alloc(node, li.Size, li.Align)
	return Value{Kind: KindPtr, Node: node, Off: off}
}

func (m *Machine) alloc(node, size, align int) int64 {
	heap := m.nodes[node]
	off := ir.AlignTo(len(heap), align)
	grown := off + size
	for len(heap) < grown {
		heap = append(heap, 0)
	}
	m.nodes[node] = heap
	return int64(off)
}

// Snapshot returns a copy of one node's memory, for differential
// comparisons.
func (m *Machine) Snapshot(node int) []byte {
	return append([]byte(nil), m.nodes[node]...)
}

func (m *Machine) checkRange(fn string, node int, off, n int64) error {
	if node < 0 || node >= len(m.nodes) {
		return errors.BadAddress(fn, "node %d out of range (0..%d)", node, len(m.nodes)-1)
	}
	if off <= 0 || off+n > int64(len(m.nodes[node])) {
		return errors.BadAddress(fn, "access of %d bytes at node %d offset %d", n, node, off)
	}
	return nil
}

// Load reads one t cell through p.
func (m *Machine) Load(p Value, t ir.Type) (Value, error) {
	return m.loadMem("", p, t)
}

// Store writes one t cell through p.
func (m *Machine) Store(p, v Value, t ir.Type) error {
	return m.storeMem("", p, v, t)
}

func (m *Machine) loadMem(fn string, p Value, t ir.Type) (Value, error) {
	if p.Kind != KindPtr {
		return Value{}, errors.BadAddress(fn, "load through non-pointer value")
	}
	n := int64(ir.Sizeof(t))
	if err := m.checkRange(fn, p.Node, p.Off, n); err != nil {
		return Value{}, err
	}
	return m.decode(m.nodes[p.Node][p.Off:p.Off+n], t, p.Node), nil
}

func (m *Machine) storeMem(fn string, p, v Value, t ir.Type) error {
	if p.Kind != KindPtr {
		return errors.BadAddress(fn, "store through non-pointer value")
	}
	n := int64(ir.Sizeof(t))
	if err := m.checkRange(fn, p.Node, p.Off, n); err != nil {
		return err
	}
	copy(m.nodes[p.Node][p.Off:p.Off+n], m.encode(v, t))
	return nil
}

func (m *Machine) copyBytes(fn string, dst, src Value, n int64) error {
	if n == 0 {
		return nil
	}
	if err := m.checkRange(fn, src.Node, src.Off, n); err != nil {
		return err
	}
	if err := m.checkRange(fn, dst.Node, dst.Off, n); err != nil {
		return err
	}
	copy(m.nodes[dst.Node][dst.Off:dst.Off+n], m.nodes[src.Node][src.Off:src.Off+n])
	return nil
}

// encode lays v out as t occupies memory: little-endian integers,
// IEEE floats, local pointers as a bare offset, wide pointers as
// offset plus owning node.
func (m *Machine) encode(v Value, t ir.Type) []byte {
	b := make([]byte, ir.Sizeof(t))
	switch t := t.(type) {
	case *ir.IntType:
		u := uint64(v.Int)
		for i := range b {
			b[i] = byte(u >> (8 * i))
		}
	case *ir.FloatType:
		if t.Bits == 32 {
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v.Float)))
		} else {
			binary.LittleEndian.PutUint64(b, math.Float64bits(v.Float))
		}
	case *ir.PointerType:
		if _, fnp := t.Elem.(*ir.FuncType); fnp {
			binary.LittleEndian.PutUint64(b, uint64(m.funcIndex(v.Fn)))
			return b
		}
		binary.LittleEndian.PutUint64(b[:8], uint64(v.Off))
		if t.Space != ir.SpaceLocal {
			binary.LittleEndian.PutUint64(b[8:], uint64(v.Node))
		}
	}
	return b
}

// decode is the inverse of encode. node owns the memory being read; a
// local pointer reconstitutes against it.
func (m *Machine) decode(b []byte, t ir.Type, node int) Value {
	switch t := t.(type) {
	case *ir.IntType:
		var u uint64
		for i := range b {
			u |= uint64(b[i]) << (8 * i)
		}
		return IntValue(signExtend(u, t.Bits))
	case *ir.FloatType:
		if t.Bits == 32 {
			return FloatValue(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
		}
		return FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case *ir.PointerType:
		if _, fnp := t.Elem.(*ir.FuncType); fnp {
			return Value{Kind: KindFunc, Fn: m.funcAt(int64(binary.LittleEndian.Uint64(b)))}
		}
		v := Value{Kind: KindPtr, Off: int64(binary.LittleEndian.Uint64(b[:8])), Node: node}
		if t.Space != ir.SpaceLocal {
			v.Node = int(binary.LittleEndian.Uint64(b[8:]))
		}
		return v
	}
	return Value{}
}

func signExtend(u uint64, bits int) int64 {
	if bits >= 64 || bits <= 0 {
		return int64(u)
	}
	shift := 64 - bits
	return int64(u<<shift) >> shift
}

func truncate(v int64, bits int) int64 {
	if bits >= 64 || bits <= 0 {
		return v
	}
	return signExtend(uint64(v), bits)
}

// Function pointers travel through memory as a one-based index into
// the module's function list.
func (m *Machine) funcIndex(f *ir.Function) int64 {
	for i, cur := range m.mod.Funcs {
		if cur == f {
			return int64(i + 1)
		}
	}
	return 0
}

func (m *Machine) funcAt(idx int64) *ir.Function {
	if idx <= 0 || int(idx) > len(m.mod.Funcs) {
		return nil
	}
	return m.mod.Funcs[idx-1]
}

// globalAddr returns the address of g's replica on node, materializing
// and initializing the cell on first touch.
func (m *Machine) globalAddr(node int, g *ir.Global) Value {
	if off, ok := m.globals[node][g]; ok {
		return Value{Kind: KindPtr, Node: node, Off: off}
	}
	li := ir.Layout(g.Elem)
	off := m.alloc(node, li.Size, li.Align)
	m.globals[node][g] = off
	p := Value{Kind: KindPtr, Node: node, Off: off}
	if g.Init != nil {
		v, _ := m.constValue(node, g.Init)
		copy(m.nodes[node][off:off+int64(li.Size)], m.encode(v, g.Elem))
	}
	return p
}
