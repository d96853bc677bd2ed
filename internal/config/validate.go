package config

import (
	"fmt"
	"strings"
)

// Severity of a validation Issue.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one configuration problem, addressed by its dotted key path.
type Issue struct {
	Severity string
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// IssuesError joins the error-level issues into one error (nil if none).
func IssuesError(issues []Issue) error {
	var msgs []string
	for _, i := range issues {
		if i.Severity == SeverityError {
			msgs = append(msgs, i.Path+": "+i.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ValidateMerge checks the fields the merge stage reads.
func ValidateMerge(cfg Merge) []Issue {
	var out []Issue
	add := func(sev, path, msg string) { out = append(out, Issue{Severity: sev, Path: path, Message: msg}) }

	if len(cfg.Quotes.Files) == 0 {
		add(SeverityError, "quotes.files", "at least one source file is required")
	}
	for i, f := range cfg.Quotes.Files {
		if strings.TrimSpace(f) == "" {
			add(SeverityError, fmt.Sprintf("quotes.files[%d]", i), "empty path")
		}
	}
	out = append(out, validateFormat("quotes.format", cfg.Quotes.Format)...)
	out = append(out, validateOutput("quotes.output", cfg.Quotes.Output)...)

	if v := cfg.Vehicle; v != nil {
		if strings.TrimSpace(v.File) == "" {
			add(SeverityError, "vehicle.file", "reference file is required")
		}
		if strings.TrimSpace(v.ABIQuoteCol) == "" {
			add(SeverityError, "vehicle.abi_quote_col", "key column of the combined table is required")
		}
		if strings.TrimSpace(v.ABIVehicleCol) == "" {
			add(SeverityError, "vehicle.abi_vehicle_col", "key column of the reference table is required")
		}
		if len(v.Suffixes) > 0 {
			switch {
			case len(v.Suffixes) != 2:
				add(SeverityError, "vehicle.suffixes", "exactly two suffixes are required")
			case v.Suffixes[0] == v.Suffixes[1]:
				add(SeverityError, "vehicle.suffixes", "suffixes must differ")
			}
		}
		out = append(out, validateFormat("vehicle.format", v.Format)...)
		out = append(out, validateOutput("vehicle.output", v.Output)...)
		if v.Output.IsZero() {
			add(SeverityWarning, "vehicle.output", "no output configured; joined table is not written")
		}
	} else if cfg.Quotes.Output.IsZero() {
		add(SeverityWarning, "quotes.output", "no output configured and no vehicle join; nothing is written")
	}

	if cfg.Runtime.ReaderWorkers < 0 {
		add(SeverityError, "runtime.reader_workers", "must be >= 0")
	}
	return out
}

// ValidateProfile checks the fields the profile stage reads.
func ValidateProfile(cfg Profile) []Issue {
	var out []Issue
	if strings.TrimSpace(cfg.Input) == "" {
		out = append(out, Issue{Severity: SeverityError, Path: "input", Message: "input dataset is required"})
	}
	out = append(out, validateFormat("format", cfg.Format)...)
	out = append(out, validateOutput("numeric_output", cfg.NumericOutput)...)
	out = append(out, validateOutput("categorical_output", cfg.CategoricalOutput)...)
	for i, c := range cfg.Columns {
		if strings.TrimSpace(c) == "" {
			out = append(out, Issue{Severity: SeverityError, Path: fmt.Sprintf("columns[%d]", i), Message: "empty column name"})
		}
	}
	return out
}

func validateFormat(path, format string) []Issue {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv", "tsv", "json", "jsonl", "ndjson", "html", "htm":
		return nil
	default:
		return []Issue{{Severity: SeverityError, Path: path, Message: fmt.Sprintf("unsupported format %q (want csv|json|html)", format)}}
	}
}

func validateOutput(path string, o Output) []Issue {
	if o.IsZero() {
		return nil
	}
	if o.isFile() {
		if strings.TrimSpace(o.Path) == "" {
			return []Issue{{Severity: SeverityError, Path: path + ".path", Message: "csv output needs a path"}}
		}
		return nil
	}
	var out []Issue
	if strings.TrimSpace(o.Table) == "" {
		out = append(out, Issue{Severity: SeverityError, Path: path + ".table", Message: o.Kind + " output needs a table"})
	}
	if strings.TrimSpace(o.DSN) == "" && strings.TrimSpace(o.Path) == "" {
		out = append(out, Issue{Severity: SeverityError, Path: path + ".dsn", Message: o.Kind + " output needs a dsn"})
	}
	return out
}
