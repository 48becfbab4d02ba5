package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/maqayum/grappa/delegate"
	"github.com/maqayum/grappa/ir"
	"github.com/maqayum/grappa/irtext"
)

func main() {
	var (
		inFile      = flag.String("in", "", "Path to input .gir module")
		outFile     = flag.String("o", "", "Write transformed module to file (default stdout)")
		analyze     = flag.Bool("analyze", false, "Analyze and report regions without rewriting")
		report      = flag.Bool("report", false, "Print per-function region summary")
		dotDir      = flag.String("dot", "", "Write per-function region graphs (dot format) into directory")
		metricsFile = flag.String("metrics", "", "Write pass counters (Prometheus text format) to file")
		locateFn    = flag.String("locate", "", "Name of the location-resolution primitive")
		invokeFn    = flag.String("invoke", "", "Name of the remote-invocation primitive")
		seeds       = flag.String("seed", "", "Extra task entry points (comma-separated, trailing * for prefix)")
		skips       = flag.String("skip", "", "Functions to exclude from the walk (comma-separated, trailing * for prefix)")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *inFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: girc -in <file.gir> [-o out.gir] [-analyze] [-report] [-dot dir]")
		fmt.Fprintln(os.Stderr, "       girc -in <file.gir> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		delegate.SetLogger(logger)
	}

	cfg := delegate.Config{
		LocateFn:    *locateFn,
		InvokeFn:    *invokeFn,
		Seeds:       parseMatcher(*seeds),
		Skip:        parseMatcher(*skips),
		AnalyzeOnly: *analyze,
	}

	if *interactive {
		if err := runInteractive(*inFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*inFile, *outFile, *dotDir, *metricsFile, cfg, *report, *analyze); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inFile, outFile, dotDir, metricsFile string, cfg delegate.Config, printReport, analyze bool) error {
	mod, err := irtext.ParseFile(inFile)
	if err != nil {
		return err
	}
	if err := mod.Verify(); err != nil {
		return fmt.Errorf("input module: %w", err)
	}

	rep, err := delegate.Transform(mod, cfg)
	if err != nil {
		return err
	}

	if printReport || analyze {
		delegate.WriteReport(os.Stderr, rep)
	}

	if dotDir != "" {
		if err := writeDotFiles(dotDir, mod, rep); err != nil {
			return err
		}
	}

	if metricsFile != "" {
		f, err := os.Create(metricsFile)
		if err != nil {
			return err
		}
		delegate.WriteMetrics(f)
		if err := f.Close(); err != nil {
			return err
		}
	}

	if analyze {
		return nil
	}
	if outFile != "" {
		return os.WriteFile(outFile, []byte(mod.String()), 0o644)
	}
	fmt.Print(mod.String())
	return nil
}

// writeDotFiles emits one graph per analyzed function that grew at
// least one region.
func writeDotFiles(dir string, mod *ir.Module, rep *delegate.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, fs := range rep.Funcs {
		if len(fs.Regions) == 0 {
			continue
		}
		fn := mod.FuncByName(fs.Func)
		if fn == nil {
			continue
		}
		f, err := os.Create(filepath.Join(dir, fs.Func+".dot"))
		if err != nil {
			return err
		}
		delegate.WriteDot(f, fn, rep)
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// parseMatcher builds a matcher from a comma-separated list of names;
// a trailing * matches by prefix.
func parseMatcher(spec string) delegate.FunctionMatcher {
	if spec == "" {
		return nil
	}
	var names, prefixes []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasSuffix(part, "*") {
			prefixes = append(prefixes, strings.TrimSuffix(part, "*"))
		} else {
			names = append(names, part)
		}
	}
	switch {
	case len(names) > 0 && len(prefixes) > 0:
		return delegate.NewCompositeFunctionMatcher(
			delegate.NewFunctionNameMatcher(names),
			delegate.NewFunctionPrefixMatcher(prefixes),
		)
	case len(prefixes) > 0:
		return delegate.NewFunctionPrefixMatcher(prefixes)
	default:
		return delegate.NewFunctionNameMatcher(names)
	}
}
