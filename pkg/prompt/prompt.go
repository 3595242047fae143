// Package prompt separates the decision to ask for confirmation from
// the mechanism that asks. The pipeline builds Requests; a Confirmer
// answers them. Non-interactive sessions and --yes runs swap in
// policy-only confirmers without touching pipeline code.
package prompt

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"

	"github.com/masmide/setup/pkg/logging"
)

// Request is one confirmation checkpoint presented to the user.
type Request struct {
	// Title is the question, phrased so "yes" means proceed
	Title string

	// Items are the concrete actions the answer covers, one per line
	Items []string

	// Default is the answer taken when the user just presses enter,
	// and the answer non-interactive sessions fall back to
	Default bool
}

// Confirmer answers confirmation requests.
type Confirmer interface {
	Confirm(req Request) (bool, error)
}

// AssumeYes answers every request affirmatively. Used for --yes.
type AssumeYes struct{}

func (AssumeYes) Confirm(req Request) (bool, error) {
	logger := logging.GetLogger("prompt")
	logger.Debug().Str("title", req.Title).Msg("Auto-confirmed")
	return true, nil
}

// Interactive prompts on the terminal. When stdin is not a TTY it
// answers with the request's default instead of blocking.
type Interactive struct{}

func (Interactive) Confirm(req Request) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		logger := logging.GetLogger("prompt")
		logger.Info().
			Str("title", req.Title).
			Bool("default", req.Default).
			Msg("No terminal attached, using default answer")
		return req.Default, nil
	}

	if len(req.Items) > 0 {
		pterm.Println()
		for _, item := range req.Items {
			pterm.Printf("  %s %s\n", pterm.Gray("-"), item)
		}
	}

	return pterm.DefaultInteractiveConfirm.
		WithDefaultValue(req.Default).
		Show(req.Title)
}

// Scripted answers from a fixed queue of responses and records every
// request it sees. Test double.
type Scripted struct {
	Answers  []bool
	Requests []Request
}

func (s *Scripted) Confirm(req Request) (bool, error) {
	s.Requests = append(s.Requests, req)
	if len(s.Answers) == 0 {
		return req.Default, nil
	}
	answer := s.Answers[0]
	s.Answers = s.Answers[1:]
	return answer, nil
}
