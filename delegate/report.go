package delegate

import (
	"fmt"
	"io"
)

// WriteReport renders a human-readable summary of a transform run.
func WriteReport(w io.Writer, r *Report) {
	totalRegions, totalExtracted := 0, 0
	for _, fs := range r.Funcs {
		fmt.Fprintf(w, "@%s: %d anchors", fs.Func, fs.Anchors)
		if fs.StackAnchors > 0 {
			fmt.Fprintf(w, " (%d stack, reserved)", fs.StackAnchors)
		}
		fmt.Fprintln(w)
		for _, rs := range fs.Regions {
			totalRegions++
			fmt.Fprintf(w, "  d%d target=%s blocks=%d instrs=%d exits=%d",
				rs.ID, rs.Target, rs.Blocks, rs.Instrs, rs.Exits)
			if rs.Extracted {
				totalExtracted++
				fmt.Fprintf(w, " -> %s (in=%d out=%d)", rs.Unit, rs.Inputs, rs.Outputs)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintf(w, "%d functions, %d regions, %d extracted\n",
		len(r.Funcs), totalRegions, totalExtracted)
}
