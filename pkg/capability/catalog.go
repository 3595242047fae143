package capability

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/masmide/setup/pkg/platform"
)

// The remediation catalog is data, not code: each distro family's
// specifics live here so a single resolver algorithm can consume them.

//go:embed catalog.yaml
var catalogYAML []byte

type catalogDoc struct {
	Capabilities []capabilityDoc `yaml:"capabilities"`
}

type capabilityDoc struct {
	Name         string           `yaml:"name"`
	Mandatory    bool             `yaml:"mandatory"`
	Command      string           `yaml:"command"`
	Alternates   []string         `yaml:"alternates"`
	VersionArgs  []string         `yaml:"version_args"`
	Remediations []remediationDoc `yaml:"remediations"`
}

type remediationDoc struct {
	Native map[string][]string `yaml:"native"`
	Helper *helperDoc          `yaml:"helper"`
	Source *sourceDoc          `yaml:"source"`
}

type helperDoc struct {
	Helpers []string `yaml:"helpers"`
	Package string   `yaml:"package"`
}

type sourceDoc struct {
	Repo      string   `yaml:"repo"`
	Ref       string   `yaml:"ref"`
	Build     []string `yaml:"build"`
	Artifact  string   `yaml:"artifact"`
	InstallAs string   `yaml:"install_as"`
}

// Catalog returns the declared toolchain capabilities in declaration
// order.
func Catalog() ([]Capability, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(data []byte) ([]Capability, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse capability catalog: %w", err)
	}

	caps := make([]Capability, 0, len(doc.Capabilities))
	for _, cd := range doc.Capabilities {
		c := Capability{
			Name:        cd.Name,
			Mandatory:   cd.Mandatory,
			Command:     cd.Command,
			Alternates:  cd.Alternates,
			VersionArgs: cd.VersionArgs,
		}
		for _, rd := range cd.Remediations {
			rem, err := parseRemediation(cd.Name, rd)
			if err != nil {
				return nil, err
			}
			c.Remediations = append(c.Remediations, rem)
		}
		caps = append(caps, c)
	}
	return caps, nil
}

func parseRemediation(capName string, rd remediationDoc) (Remediation, error) {
	set := 0
	var rem Remediation

	if len(rd.Native) > 0 {
		set++
		rem.Native = make(map[platform.Family][]string, len(rd.Native))
		for family, pkgs := range rd.Native {
			f, err := parseFamily(family)
			if err != nil {
				return Remediation{}, fmt.Errorf("capability %q: %w", capName, err)
			}
			rem.Native[f] = pkgs
		}
	}
	if rd.Helper != nil {
		set++
		rem.Helper = &ThirdPartyHelper{
			Helpers: rd.Helper.Helpers,
			Package: rd.Helper.Package,
		}
	}
	if rd.Source != nil {
		set++
		rem.Source = &BuildFromSource{
			RepoURL:      rd.Source.Repo,
			Ref:          rd.Source.Ref,
			BuildCommand: rd.Source.Build,
			ArtifactPath: rd.Source.Artifact,
			InstallAs:    rd.Source.InstallAs,
		}
	}

	if set != 1 {
		return Remediation{}, fmt.Errorf("capability %q: remediation must declare exactly one variant, got %d", capName, set)
	}
	return rem, nil
}

func parseFamily(s string) (platform.Family, error) {
	switch s {
	case "arch":
		return platform.FamilyArch, nil
	case "debian":
		return platform.FamilyDebian, nil
	case "fedora":
		return platform.FamilyFedora, nil
	case "suse":
		return platform.FamilySuse, nil
	default:
		return "", fmt.Errorf("unknown distro family %q in catalog", s)
	}
}
