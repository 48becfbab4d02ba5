package ir

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes m's canonical text form to w. The output parses back
// through the irtext package.
func Fprint(w io.Writer, m *Module) error {
	_, err := io.WriteString(w, m.String())
	return err
}

// String returns the module in canonical text form.
func (m *Module) String() string {
	var sb strings.Builder
	name := m.Name
	if name == "" {
		name = "module"
	}
	format := m.Format
	if format == "" {
		format = CurrentFormat
	}
	fmt.Fprintf(&sb, "module %q format %q\n", name, format)

	if len(m.Globals) > 0 {
		sb.WriteByte('\n')
	}
	for _, g := range m.Globals {
		fmt.Fprintf(&sb, "global @%s %s", g.name, g.Elem)
		if g.Init != nil {
			fmt.Fprintf(&sb, " = %s", g.Init)
		}
		sb.WriteByte('\n')
	}

	for _, f := range m.Funcs {
		sb.WriteByte('\n')
		printFunc(&sb, f)
	}
	return sb.String()
}

func printFunc(sb *strings.Builder, f *Function) {
	if f.IsDecl() {
		fmt.Fprintf(sb, "declare @%s(", f.name)
		for i, p := range f.Sig.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		fmt.Fprintf(sb, ") -> %s", f.Sig.Ret)
		printAttrs(sb, f.Attrs)
		sb.WriteByte('\n')
		return
	}

	fmt.Fprintf(sb, "func @%s(", f.name)
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%%%s: %s", p.name, p.typ)
	}
	fmt.Fprintf(sb, ") -> %s", f.Sig.Ret)
	printAttrs(sb, f.Attrs)
	sb.WriteString(" {\n")
	for _, b := range f.Blocks {
		fmt.Fprintf(sb, "%s:\n", b.name)
		for _, in := range b.Instrs {
			sb.WriteString("  ")
			sb.WriteString(in.String())
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
}

func printAttrs(sb *strings.Builder, a Attr) {
	names := a.Names()
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(sb, " [%s]", strings.Join(names, " "))
}
