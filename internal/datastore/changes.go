package datastore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/auditlog-go/internal/errors"
)

// ErrNoChanges is returned when a log entry carries neither structured
// changes nor usable legacy text.
var ErrNoChanges = errors.NewStd("log entry has no changes")

// maxSummaryFieldChars bounds the field list in a changes summary.
const maxSummaryFieldChars = 75

// ResolvedChanges parses and returns the entry's changes object. The
// structured changes column wins when populated; when it is empty and
// useTextFallback is enabled, the legacy changes_text column is parsed
// instead. Readers should pass conf.Setting().Auditlog.UseTextChangesFallback.
func (le *LogEntry) ResolvedChanges(useTextFallback bool) (*jason.Object, error) {
	raw := ""
	source := "changes"
	switch {
	case le.HasStructuredChanges():
		raw = *le.Changes
	case useTextFallback && le.ChangesText != "":
		raw = le.ChangesText
		source = "changes_text"
	default:
		return nil, ErrNoChanges
	}

	obj, err := jason.NewObjectFromBytes([]byte(raw))
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryJSONParsing).
			Context("record_id", le.ID).
			Context("source", source).
			Build()
	}
	return obj, nil
}

// ChangesSummary returns a short human-readable description of the entry's
// changes, like "2 changes: name, owner". The field list is truncated at a
// word boundary once it exceeds maxSummaryFieldChars.
func (le *LogEntry) ChangesSummary(useTextFallback bool) (string, error) {
	obj, err := le.ResolvedChanges(useTextFallback)
	if err != nil {
		return "", err
	}

	changed := obj.Map()
	names := make([]string, 0, len(changed))
	for name := range changed {
		names = append(names, name)
	}
	sort.Strings(names)

	plural := "s"
	if len(names) == 1 {
		plural = ""
	}

	fields := strings.Join(names, ", ")
	if len(fields) > maxSummaryFieldChars {
		if i := strings.LastIndex(fields[:maxSummaryFieldChars], " "); i > 0 {
			fields = fields[:i] + " .."
		} else {
			fields = fields[:maxSummaryFieldChars] + " .."
		}
	}

	return fmt.Sprintf("%d change%s: %s", len(names), plural, fields), nil
}
