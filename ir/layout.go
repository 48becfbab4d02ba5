package ir

// Info describes the in-memory footprint of a type.
type Info struct {
	Size  int
	Align int
}

// Layout returns the size and alignment of t. Plain pointers are one
// machine word; global and symmetric pointers carry an owning-node
// word alongside the offset and take two. Aggregates use C-style
// layout with per-field alignment.
func Layout(t Type) Info {
	switch t := t.(type) {
	case *VoidType, *LabelType:
		return Info{Size: 0, Align: 1}
	case *IntType:
		n := t.Bits / 8
		if n == 0 {
			n = 1
		}
		return Info{Size: n, Align: n}
	case *FloatType:
		n := t.Bits / 8
		return Info{Size: n, Align: n}
	case *PointerType:
		if t.Space == SpaceLocal {
			return Info{Size: 8, Align: 8}
		}
		return Info{Size: 16, Align: 8}
	case *FuncType:
		return Info{Size: 8, Align: 8}
	case *ArrayType:
		elem := Layout(t.Elem)
		return Info{Size: elem.Size * t.Len, Align: elem.Align}
	case *StructType:
		info := Info{Align: 1}
		for _, f := range t.Fields {
			fl := Layout(f)
			info.Size = AlignTo(info.Size, fl.Align) + fl.Size
			if fl.Align > info.Align {
				info.Align = fl.Align
			}
		}
		info.Size = AlignTo(info.Size, info.Align)
		return info
	default:
		return Info{Size: 0, Align: 1}
	}
}

// Sizeof returns the size of t in bytes.
func Sizeof(t Type) int { return Layout(t).Size }

// Offsetof returns the byte offset of field idx within s.
func Offsetof(s *StructType, idx int) int {
	offset := 0
	for i := 0; i < idx; i++ {
		fl := Layout(s.Fields[i])
		offset = AlignTo(offset, fl.Align) + fl.Size
	}
	return AlignTo(offset, Layout(s.Fields[idx]).Align)
}

// AlignTo rounds value up to the next multiple of align, which must be
// a power of two.
func AlignTo(value, align int) int {
	return (value + align - 1) &^ (align - 1)
}
