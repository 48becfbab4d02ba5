package irtext

import (
	"os"

	"github.com/coreos/go-semver/semver"

	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/ir"
	"github.com/maqayum/grappa/irtext/internal/parser"
	"github.com/maqayum/grappa/irtext/internal/token"
)

// Parse reads a module from .gir source text. The module's format
// version must be compatible with ir.CurrentFormat: same major
// version, minor no newer than the supported one.
func Parse(source string) (*ir.Module, error) {
	tokens := token.Tokenize(source)
	p := parser.New(tokens)
	mod, err := p.Parse()
	if err != nil {
		return nil, err
	}
	if err := checkFormat(mod.Format); err != nil {
		return nil, err
	}
	return mod, nil
}

// ParseFile reads a module from the .gir file at path.
func ParseFile(path string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

func checkFormat(format string) error {
	got, err := semver.NewVersion(format)
	if err != nil {
		return errors.Syntax(1, "bad format version %q: %v", format, err)
	}
	supported := semver.New(ir.CurrentFormat)
	if got.Major != supported.Major || got.Minor > supported.Minor {
		return errors.VersionMismatch(format, ir.CurrentFormat)
	}
	return nil
}
