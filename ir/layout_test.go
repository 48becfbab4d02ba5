package ir

import "testing"

func TestLayout(t *testing.T) {
	rec := &StructType{Fields: []Type{I8, I64, I16}}
	tests := []struct {
		name string
		typ  Type
		want Info
	}{
		{"i1", I1, Info{Size: 1, Align: 1}},
		{"i16", I16, Info{Size: 2, Align: 2}},
		{"i64", I64, Info{Size: 8, Align: 8}},
		{"f64", F64, Info{Size: 8, Align: 8}},
		{"local pointer", PtrTo(I64), Info{Size: 8, Align: 8}},
		{"global pointer", PtrIn(I64, SpaceGlobal), Info{Size: 16, Align: 8}},
		{"symmetric pointer", PtrIn(I64, SpaceSymmetric), Info{Size: 16, Align: 8}},
		{"function pointer", PtrTo(&FuncType{Ret: Void}), Info{Size: 8, Align: 8}},
		{"array", &ArrayType{Elem: I32, Len: 4}, Info{Size: 16, Align: 4}},
		{"padded struct", rec, Info{Size: 24, Align: 8}},
		{"struct with wide pointer", &StructType{Fields: []Type{I64, PtrIn(I8, SpaceGlobal)}}, Info{Size: 24, Align: 8}},
		{"void", Void, Info{Size: 0, Align: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Layout(tt.typ); got != tt.want {
				t.Errorf("Layout(%s) = %+v, want %+v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestOffsetof(t *testing.T) {
	rec := &StructType{Fields: []Type{I8, I64, I16}}
	for i, want := range []int{0, 8, 16} {
		if got := Offsetof(rec, i); got != want {
			t.Errorf("Offsetof(%s, %d) = %d, want %d", rec, i, got, want)
		}
	}
}

func TestAlignTo(t *testing.T) {
	tests := []struct {
		value, align, want int
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 4, 12},
		{5, 1, 5},
	}
	for _, tt := range tests {
		if got := AlignTo(tt.value, tt.align); got != tt.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", tt.value, tt.align, got, tt.want)
		}
	}
}
