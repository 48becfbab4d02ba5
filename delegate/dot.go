package delegate

import (
	"fmt"
	"io"
	"strings"

	"github.com/maqayum/grappa/ir"
)

// colorNames mark region membership in dot output, one color per
// region id, cycling past twenty.
var colorNames = [...]string{
	"red", "blue", "green", "gold", "cyan", "purple", "orange",
	"darkgreen", "coral", "deeppink", "deepskyblue", "orchid", "brown", "yellowgreen",
	"midnightblue", "firebrick", "peachpuff", "yellow", "limegreen", "khaki",
}

func colorString(id int) string {
	return colorNames[id%len(colorNames)]
}

// WriteDot renders fn's control-flow graph in graphviz dot form, each
// instruction line colorized by the region that owns it according to
// the report's ownership map.
func WriteDot(w io.Writer, fn *ir.Function, r *Report) {
	fmt.Fprintf(w, "digraph %q {\n", fn.Name())
	fmt.Fprintf(w, "  label=%q;\n", "@"+fn.Name())
	fmt.Fprintln(w, "  node [shape=record];")

	for _, bb := range fn.Blocks {
		fmt.Fprintf(w, "  %q [label=<\n", bb.Name())
		fmt.Fprintln(w, "  <table cellborder='0' border='0'>")
		fmt.Fprintf(w, "    <tr><td align='left'><b>%s</b></td></tr>\n", escape(bb.Name()))
		for _, in := range bb.Instrs {
			s := escape(in.String())
			if id, ok := r.Ownership[in]; ok {
				s = fmt.Sprintf("<font color='%s'>%s</font>", colorString(id), s)
			}
			fmt.Fprintf(w, "    <tr><td align='left'>%s</td></tr>\n", s)
		}
		fmt.Fprintln(w, "  </table>")
		fmt.Fprintln(w, "  >];")
		for _, sb := range bb.Succs() {
			fmt.Fprintf(w, "  %q -> %q\n", bb.Name(), sb.Name())
		}
	}
	fmt.Fprintln(w, "}")
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
