package query

import (
	"strings"

	"golang.org/x/text/cases"
)

// SearchCategory maps natural-language keywords to a base filter.
type SearchCategory struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Filter   string   `json:"filter"`
}

// SearchCatalog is consulted in order; the first category with a keyword
// contained in the search term wins.
var SearchCatalog = []SearchCategory{
	{
		Name:     "failed_logins",
		Keywords: []string{"failed login", "login failure", "failed logon", "failed password", "brute force", "failed auth"},
		Filter:   "'Event Name' in ('AuthenticationFailure', 'LoginFailure', 'SigninFailure')",
	},
	{
		Name:     "privilege_escalation",
		Keywords: []string{"privilege", "escalat", "sudo", "assume role"},
		Filter:   "('Event Name' like '%AssumeRole%' or 'Event Name' like '%AddUserToGroup%' or 'Log Entry' like '%sudo%')",
	},
	{
		Name:     "user_management",
		Keywords: []string{"user created", "user deleted", "new user", "user management", "group membership"},
		Filter:   "'Log Source' = 'OCI Audit Logs' and ('Event Name' like '%CreateUser%' or 'Event Name' like '%DeleteUser%' or 'Event Name' like '%AddUserToGroup%')",
	},
	{
		Name:     "port_scan",
		Keywords: []string{"port scan", "portscan", "scanning"},
		Filter:   "'Log Source' = 'OCI VCN Flow Unified Schema Logs' and Action in ('drop', 'reject')",
	},
	{
		Name:     "malware",
		Keywords: []string{"malware", "ransomware", "virus", "intrusion", "threat"},
		Filter:   "('Log Entry' like '%malware%' or 'Log Entry' like '%ransomware%' or 'Log Entry' like '%threat%')",
	},
	{
		Name:     "cloud_guard",
		Keywords: []string{"cloud guard", "cloudguard", "detector", "security problem"},
		Filter:   "'Log Source' = 'OCI Cloud Guard Problems'",
	},
	{
		Name:     "authentication",
		Keywords: []string{"authentication", "login", "logon", "sign in", "signin"},
		Filter:   "'Log Source' = 'OCI Audit Logs' and ('Event Name' like '%Login%' or 'Event Name' like '%Signin%')",
	},
	{
		Name:     "network",
		Keywords: []string{"network", "firewall", "vcn", "flow log", "traffic", "connection"},
		Filter:   "'Log Source' = 'OCI VCN Flow Unified Schema Logs'",
	},
	{
		Name:     "audit",
		Keywords: []string{"audit", "configuration change", "config change", "policy change"},
		Filter:   "'Log Source' = 'OCI Audit Logs'",
	},
	{
		Name:     "errors",
		Keywords: []string{"error", "exception", "critical", "fatal"},
		Filter:   "Severity in ('error', 'critical', 'fatal')",
	},
}

// EventTypes returns the catalog names accepted as event types.
func EventTypes() []string {
	names := make([]string, len(SearchCatalog))
	for i, c := range SearchCatalog {
		names[i] = c.Name
	}
	return names
}

// searchMatch is the outcome of resolving a search intent.
type searchMatch struct {
	filter   string
	category string
	fallback bool
	reason   string
}

// matchSearch resolves an event type and free-text term to a base filter.
// An event type naming a catalog entry wins; otherwise keywords in the term
// (and a free-form event type) are matched; otherwise a permissive
// contains-filter over the text fields is returned.
func matchSearch(term, eventType string) (searchMatch, error) {
	fold := cases.Fold()

	et := strings.TrimSpace(eventType)
	if et != "" && !strings.EqualFold(et, "all") {
		key := fold.String(strings.NewReplacer(" ", "_", "-", "_").Replace(et))
		for _, c := range SearchCatalog {
			if c.Name == key {
				return searchMatch{filter: c.Filter, category: c.Name}, nil
			}
		}
		term = strings.TrimSpace(term + " " + et)
	}

	term = strings.TrimSpace(term)
	if term == "" {
		return searchMatch{filter: "*", fallback: true, reason: "no search term; matching all logs"}, nil
	}

	folded := fold.String(term)
	for _, c := range SearchCatalog {
		for _, kw := range c.Keywords {
			if strings.Contains(folded, fold.String(kw)) {
				return searchMatch{filter: c.Filter, category: c.Name}, nil
			}
		}
	}

	filter, err := CompilePatternFilter(PatternSpec{Pattern: term, Mode: MatchContains})
	if err != nil {
		return searchMatch{}, err
	}
	return searchMatch{
		filter:   filter,
		fallback: true,
		reason:   "no known keyword matched; using a full-text contains filter",
	}, nil
}
