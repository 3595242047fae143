// Package verify re-probes every capability the pipeline attempted to
// satisfy and produces the end-of-run report. It never mutates state.
package verify

import (
	"context"

	"github.com/masmide/setup/pkg/capability"
	"github.com/masmide/setup/pkg/command"
	"github.com/masmide/setup/pkg/logging"
)

// Entry is the audited state of one capability.
type Entry struct {
	Name      string
	Mandatory bool
	Present   bool
	Detail    string
}

// Report maps every attempted capability to its final state.
type Report struct {
	Entries      []Entry
	AllSatisfied bool
}

// Unresolved returns the names of absent capabilities.
func (r Report) Unresolved() []string {
	var names []string
	for _, e := range r.Entries {
		if !e.Present {
			names = append(names, e.Name)
		}
	}
	return names
}

// Audit probes every capability, not only the ones the pipeline
// changed, and reports each as present or absent with detail.
func Audit(ctx context.Context, runner command.Runner, caps []capability.Capability) Report {
	logger := logging.GetLogger("verify")

	report := Report{AllSatisfied: true}
	for _, c := range caps {
		result := c.Probe(ctx, runner)
		report.Entries = append(report.Entries, Entry{
			Name:      c.Name,
			Mandatory: c.Mandatory,
			Present:   result.Present,
			Detail:    result.Detail,
		})
		if !result.Present {
			report.AllSatisfied = false
		}
	}

	logger.Info().
		Int("capabilities", len(report.Entries)).
		Bool("allSatisfied", report.AllSatisfied).
		Msg("Verification audit complete")
	return report
}
