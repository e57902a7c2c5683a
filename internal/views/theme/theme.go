package theme

import "strings"

// Option represents a selectable cost sheet theme.
type Option struct {
	Value string
	Label string
}

// SheetTheme holds the CSS classes applied to a rendered cost sheet.
type SheetTheme struct {
	Key            string
	SheetClass     string
	TableClass     string
	HeaderClass    string
	RowClass       string
	WarningClass   string
	InvalidClass   string
	TotalsClass    string
	MutedTextClass string
}

const (
	// DefaultKey is used when no theme or an unknown theme is requested.
	DefaultKey = "pass"
)

var catalogue = map[string]SheetTheme{
	"pass": {
		Key:            "pass",
		SheetClass:     "costsheet light",
		TableClass:     "costsheet-table",
		HeaderClass:    "costsheet-header",
		RowClass:       "costsheet-row",
		WarningClass:   "costsheet-warning",
		InvalidClass:   "costsheet-invalid",
		TotalsClass:    "costsheet-totals",
		MutedTextClass: "costsheet-muted",
	},
	"service": {
		Key:            "service",
		SheetClass:     "costsheet dark",
		TableClass:     "costsheet-table",
		HeaderClass:    "costsheet-header",
		RowClass:       "costsheet-row",
		WarningClass:   "costsheet-warning",
		InvalidClass:   "costsheet-invalid",
		TotalsClass:    "costsheet-totals",
		MutedTextClass: "costsheet-muted",
	},
	"print": {
		Key:            "print",
		SheetClass:     "costsheet print",
		TableClass:     "costsheet-table bordered",
		HeaderClass:    "costsheet-header",
		RowClass:       "costsheet-row",
		WarningClass:   "costsheet-warning",
		InvalidClass:   "costsheet-invalid",
		TotalsClass:    "costsheet-totals",
		MutedTextClass: "costsheet-muted",
	},
}

var options = []Option{
	{Value: "pass", Label: "Pass (Light)"},
	{Value: "service", Label: "Service (Dark)"},
	{Value: "print", Label: "Print"},
}

// Resolve returns the theme registered under key, or the default theme.
func Resolve(key string) SheetTheme {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if value, ok := catalogue[normalized]; ok {
		return value
	}
	return catalogue[DefaultKey]
}

// Options lists the available themes.
func Options() []Option {
	return options
}
