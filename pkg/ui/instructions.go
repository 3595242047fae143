package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/masmide/setup/pkg/resolve"
)

// manualGuidance maps capability names to hand-written installation
// guidance shown when no remediation applied on this host.
var manualGuidance = map[string]string{
	"assembler": "Install **JWasm** from your distribution's repositories, or build it from " +
		"[the JWasm sources](https://github.com/Baron-von-Riedesel/JWasm) with `make -f GccUnix.mak` " +
		"and place the resulting `jwasm` binary on your `PATH`. Re-running with `--build-fallback` " +
		"does this automatically.",
	"pe-linker": "Install the **MinGW-w64** cross toolchain (package names vary: `mingw-w64-gcc`, " +
		"`gcc-mingw-w64-i686`, `mingw32-gcc`). Any of `i686-w64-mingw32-ld` or " +
		"`x86_64-w64-mingw32-ld` on `PATH` satisfies this.",
	"binary-runner": "Install **wine** so assembled Windows PE binaries can run. The editor works " +
		"without it, but the Run action will be unavailable.",
	"source-toolchain": "Install a C compiler, `make`, and `git` (e.g. `build-essential` or " +
		"`base-devel`). Only needed for source builds.",
}

// ManualInstructions renders markdown guidance for every unresolved
// capability. Rich rendering on a terminal, raw markdown otherwise.
func ManualInstructions(unresolved []resolve.Unresolved) {
	if len(unresolved) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("# Manual installation required\n\n")
	for _, u := range unresolved {
		fmt.Fprintf(&b, "## %s\n\n", u.Capability)
		fmt.Fprintf(&b, "_%s_\n\n", u.Reason)
		if guidance, ok := manualGuidance[u.Capability]; ok {
			b.WriteString(guidance)
			b.WriteString("\n\n")
		}
	}

	fmt.Print(renderMarkdown(b.String()))
}

func renderMarkdown(content string) string {
	if !terminal() {
		return content
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
