package query

// Example is a known-good query with a short description.
type Example struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Query       string `json:"query"`
	Description string `json:"description,omitempty"`
}

// Examples are queries accepted by the backend as written. Every entry
// passes Validate.
var Examples = []Example{
	{"basic", "Latest records", "* | head 10", "any source, newest first"},
	{"basic", "VCN flow logs", "'Log Source' in ('OCI VCN Flow Unified Schema Logs') | head 10", ""},
	{"basic", "Audit logs", "'Log Source' in ('OCI Audit Logs') | head 10", ""},
	{"filtered", "Dropped network flows",
		"'Log Source' in ('OCI VCN Flow Unified Schema Logs') and Action in ('drop', 'reject') | head 10", ""},
	{"filtered", "Audit events with a type",
		"'Log Source' in ('OCI Audit Logs') and 'Event Type' is not null | head 10", ""},
	{"filtered", "Errors", "Severity = 'error' | head 50", ""},
	{"stats", "Records per log source",
		"* | stats count as log_count by 'Log Source' | sort -log_count",
		"send with a separate time filter, as the console does"},
	{"stats", "Flows per action",
		"'Log Source' in ('OCI VCN Flow Unified Schema Logs') | stats count by Action | head 10", ""},
	{"stats", "Top talkers",
		"'Log Source' in ('OCI VCN Flow Unified Schema Logs') | stats count by 'Source IP' | sort -count | head 10", ""},
	{"stats", "Most frequent error messages",
		"Severity = 'error' | stats count by Message | sort -count | head 10",
		"replaces the unsupported 'top 10 count'"},
	{"stats", "Hourly volume per source", "* | timestats count by 'Log Source' span = 1h", ""},
	{"security", "Sysmon technique hits",
		"'Log Source' = 'Windows Sysmon Events' and Technique_id is not null | stats count by Technique_id | sort -count", ""},
	{"security", "Failed logins by user",
		"'Event Name' in ('AuthenticationFailure', 'LoginFailure', 'SigninFailure') | stats count by 'User Name' | sort -count | head 20", ""},
	{"analytics", "Cluster similar messages", "Severity = 'error' | cluster t = 0.8", ""},
	{"analytics", "Link related records", "* | link 'Host Name', 'User Name'", ""},
}

// Tips are short syntax reminders shown with Examples.
var Tips = []string{
	"Single-quote field names with spaces: 'Log Source'",
	"The time field is Time; prefer the time_range argument over writing Time predicates",
	"Use 'is null' / 'is not null' rather than '== null' / '!= null'",
	"Rank with sort -count | head N; top N cannot lead a query",
	"Aggregate with stats count by Field; count(*) is not accepted",
}

// ExamplesByCategory groups Examples by their Category, preserving order.
func ExamplesByCategory() map[string][]Example {
	out := make(map[string][]Example)
	for _, e := range Examples {
		out[e.Category] = append(out[e.Category], e)
	}
	return out
}
