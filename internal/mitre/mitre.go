// Package mitre maps MITRE ATT&CK tactics and technique identifiers to base
// query fragments over the Sysmon log source.
package mitre

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// LogSource is the log source carrying technique annotations.
	LogSource = "Windows Sysmon Events"
	// TechniqueField is the field holding the technique identifier.
	TechniqueField = "Technique_id"
)

// Category is an ATT&CK tactic with its known technique identifiers.
type Category struct {
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Techniques []string `json:"techniques"`
}

var techniquesByCategory = map[string][]string{
	"reconnaissance":       {"T1595", "T1592", "T1589", "T1590", "T1591", "T1598"},
	"resource_development": {"T1583", "T1584", "T1587", "T1588", "T1608"},
	"initial_access":       {"T1190", "T1133", "T1566", "T1078", "T1195", "T1199"},
	"execution":            {"T1059", "T1047", "T1053", "T1106", "T1203", "T1569", "T1204"},
	"persistence":          {"T1547", "T1543", "T1053", "T1136", "T1546", "T1574", "T1505"},
	"privilege_escalation": {"T1548", "T1134", "T1068", "T1055", "T1574", "T1547"},
	"defense_evasion":      {"T1070", "T1027", "T1036", "T1112", "T1218", "T1562", "T1140"},
	"credential_access":    {"T1003", "T1110", "T1555", "T1558", "T1552", "T1056", "T1212"},
	"discovery":            {"T1087", "T1082", "T1083", "T1057", "T1018", "T1016", "T1049", "T1069"},
	"lateral_movement":     {"T1021", "T1570", "T1210", "T1534", "T1550"},
	"collection":           {"T1005", "T1039", "T1113", "T1115", "T1119", "T1560"},
	"command_and_control":  {"T1071", "T1105", "T1090", "T1572", "T1219", "T1095"},
	"exfiltration":         {"T1041", "T1048", "T1567", "T1020", "T1030"},
	"impact":               {"T1486", "T1490", "T1489", "T1485", "T1491", "T1496"},
}

var techniquePattern = regexp.MustCompile(`^T\d{4}(\.\d{3})?$`)

// LookupCategory returns the base fragment for a tactic. The boolean is false
// for unknown categories; callers then fall back to AllTechniques.
func LookupCategory(category string) (string, bool) {
	techniques, ok := techniquesByCategory[NormalizeCategory(category)]
	if !ok {
		return "", false
	}
	quoted := make([]string, len(techniques))
	for i, id := range techniques {
		quoted[i] = quote(id)
	}
	return fmt.Sprintf("%s and %s in (%s)", sourceFilter(), TechniqueField, strings.Join(quoted, ", ")), true
}

// LookupTechnique returns the base fragment for one technique identifier.
func LookupTechnique(id string) string {
	return fmt.Sprintf("%s and %s = %s", sourceFilter(), TechniqueField, quote(strings.ToUpper(strings.TrimSpace(id))))
}

// AllTechniques matches every event annotated with any technique.
func AllTechniques() string {
	return fmt.Sprintf("%s and %s is not null", sourceFilter(), TechniqueField)
}

// IsTechniqueID reports whether id looks like an ATT&CK technique or sub-technique.
func IsTechniqueID(id string) bool {
	return techniquePattern.MatchString(strings.ToUpper(strings.TrimSpace(id)))
}

// NormalizeCategory folds "Credential Access" and "credential-access" to "credential_access".
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	c = strings.NewReplacer(" ", "_", "-", "_").Replace(c)
	return c
}

// CategoryNames returns the tactic names in alphabetical order.
func CategoryNames() []string {
	names := make([]string, 0, len(techniquesByCategory))
	for name := range techniquesByCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Categories returns the full catalog in alphabetical order.
func Categories() []Category {
	names := CategoryNames()
	out := make([]Category, 0, len(names))
	for _, name := range names {
		techniques := make([]string, len(techniquesByCategory[name]))
		copy(techniques, techniquesByCategory[name])
		out = append(out, Category{
			Name:       name,
			Title:      Title(name),
			Techniques: techniques,
		})
	}
	return out
}

// Title renders a category name for display, e.g. "Command And Control".
func Title(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(NormalizeCategory(name), "_", " "))
}

func sourceFilter() string {
	return "'Log Source' = " + quote(LogSource)
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
