package grappa

import (
	"github.com/maqayum/grappa/delegate"
	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/irtext"
)

// Config configures a transform. See delegate.Config.
type Config = delegate.Config

// Report summarizes a transform run. See delegate.Report.
type Report = delegate.Report

// TransformSource parses .gir source text, verifies it, runs the
// delegate extraction transform, and returns the rewritten module as
// source text alongside the analysis report.
//
// The input must be a well-formed module; verification failures are
// returned as *errors.Error with KindInvalidIR.
func TransformSource(src string, cfg Config) (string, *Report, error) {
	mod, err := irtext.Parse(src)
	if err != nil {
		return "", nil, err
	}
	if err := mod.Verify(); err != nil {
		return "", nil, errors.InvalidIR(err)
	}
	report, err := delegate.Transform(mod, cfg)
	if err != nil {
		return "", nil, err
	}
	return mod.String(), report, nil
}

// TransformFile is TransformSource over the .gir file at path.
func TransformFile(path string, cfg Config) (string, *Report, error) {
	mod, err := irtext.ParseFile(path)
	if err != nil {
		return "", nil, err
	}
	if err := mod.Verify(); err != nil {
		return "", nil, errors.InvalidIR(err)
	}
	report, err := delegate.Transform(mod, cfg)
	if err != nil {
		return "", nil, err
	}
	return mod.String(), report, nil
}
