// Package testlist holds the fwts test catalogues and loads test plans that
// replace them.
package testlist

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// MinACPITestsVersion is the first fwts release that runs the ACPI test
// group through --acpitests.
const MinACPITestsVersion = "v15.7.0"

var (
	// qaTests is the full firmware qualification run.
	qaTests = []string{
		"acpitests", "apicedge", "aspm", "cpufreq", "dmicheck", "esrt", "klog",
		"maxfreq", "msr", "mtrr", "nx", "oops", "uefibootpath", "uefirtmisc",
		"uefirttime", "uefirtvariable", "version", "virt",
	}

	// hweTests is the smaller hardware enablement run.
	hweTests = []string{"version", "mtrr", "virt", "apicedge", "klog", "oops"}

	// interactiveTests need someone at the machine.
	interactiveTests = []string{"ac_adapter", "battery", "hotkey", "power_button", "brightness", "lid"}
)

// Catalogue groups the named test lists.
type Catalogue struct {
	QA          []string `yaml:"qa" toml:"qa" json:"qa"`
	HWE         []string `yaml:"hwe" toml:"hwe" json:"hwe"`
	Interactive []string `yaml:"interactive" toml:"interactive" json:"interactive"`
}

// Default returns the built-in catalogue.
func Default() Catalogue {
	return Catalogue{
		QA:          slices.Clone(qaTests),
		HWE:         slices.Clone(hweTests),
		Interactive: slices.Clone(interactiveTests),
	}
}

// All returns the sorted union of the QA and HWE tests.
func (c Catalogue) All() []string {
	all := append(slices.Clone(c.QA), c.HWE...)
	slices.Sort(all)
	return slices.Compact(all)
}

// IsInteractive reports whether test needs user interaction.
func (c Catalogue) IsInteractive(test string) bool {
	return slices.Contains(c.Interactive, test)
}

// Override replaces every list that is set in plan.
func (c Catalogue) Override(plan Catalogue) Catalogue {
	if len(plan.QA) > 0 {
		c.QA = slices.Clone(plan.QA)
	}
	if len(plan.HWE) > 0 {
		c.HWE = slices.Clone(plan.HWE)
	}
	if len(plan.Interactive) > 0 {
		c.Interactive = slices.Clone(plan.Interactive)
	}
	return c
}

// LoadPlan reads a test plan file. The format follows the extension:
// .yaml/.yml or .toml.
func LoadPlan(path string) (Catalogue, error) {
	log.Debug("Reading test plan", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("reading test plan: %w", err)
	}

	var plan Catalogue
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &plan); err != nil {
			return Catalogue{}, fmt.Errorf("parsing test plan: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &plan); err != nil {
			return Catalogue{}, fmt.Errorf("parsing test plan: %w", err)
		}
	default:
		return Catalogue{}, fmt.Errorf("unsupported test plan format %q, use .yaml, .yml or .toml", ext)
	}

	for name, list := range map[string][]string{"qa": plan.QA, "hwe": plan.HWE, "interactive": plan.Interactive} {
		for _, test := range list {
			if strings.TrimSpace(test) == "" || strings.ContainsAny(test, " \t") {
				return Catalogue{}, fmt.Errorf("invalid test name %q in %s list", test, name)
			}
		}
	}
	return plan, nil
}

// SupportsACPITestsFlag reports whether an fwts release, as printed by
// fwts --version (e.g. "15.07.00" or "V15.07.00"), runs the ACPI test group
// through --acpitests.
func SupportsACPITestsFlag(version string) bool {
	v, ok := canonicalVersion(version)
	if !ok {
		return false
	}
	return semver.Compare(v, MinACPITestsVersion) >= 0
}

// canonicalVersion turns an fwts version, whose fields are zero padded,
// into a semantic version.
func canonicalVersion(version string) (string, bool) {
	version = strings.TrimLeft(strings.TrimSpace(version), "vV")
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "", false
	}
	nums := make([]string, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", false
		}
		nums[i] = strconv.Itoa(n)
	}
	v := "v" + strings.Join(nums, ".")
	return v, semver.IsValid(v)
}
