// Package migration converts legacy changes_text records to the structured
// JSON changes column, either through batched application-level updates or
// a single native database statement.
package migration

import (
	"encoding/json"

	"github.com/tphakala/auditlog-go/internal/errors"
)

// m2m rewrite keys written by old patched deployments
const (
	legacyAddedKey   = "Added"
	legacyRemovedKey = "Removed"
)

// ConvertChanges parses one record's legacy changes text and returns the
// value to store in the structured changes column.
//
// When migrateM2M is enabled and the payload is an object with exactly one
// field whose value carries an Added or Removed marker, the whole payload
// is rewritten to the tagged m2m operation shape:
//
//	{"tags": {"Added": ["x"]}}  ->  {"tags": {"type": "m2m", "operation": "add", "objects": ["x"]}}
//
// Anything else passes through unchanged. The function is pure; a parse
// failure is a per-record error for the caller to collect, not a batch abort.
func ConvertChanges(legacyText string, migrateM2M bool) (string, error) {
	var changes any
	if err := json.Unmarshal([]byte(legacyText), &changes); err != nil {
		return "", errors.New(err).
			Component("migration").
			Category(errors.CategoryJSONParsing).
			Context("operation", "convert_changes").
			Build()
	}

	if migrateM2M {
		changes = rewriteM2MShape(changes)
	}

	converted, err := json.Marshal(changes)
	if err != nil {
		return "", errors.New(err).
			Component("migration").
			Category(errors.CategoryJSONParsing).
			Context("operation", "encode_changes").
			Build()
	}

	return string(converted), nil
}

// rewriteM2MShape normalizes the old patched m2m change representation.
// Only single-field objects whose field value is an object keyed by Added
// or Removed are rewritten; every other shape is returned as-is.
func rewriteM2MShape(changes any) any {
	obj, ok := changes.(map[string]any)
	if !ok || len(obj) != 1 {
		return changes
	}

	var fieldName string
	var fieldValue any
	for name, value := range obj {
		fieldName, fieldValue = name, value
	}

	change, ok := fieldValue.(map[string]any)
	if !ok {
		return changes
	}

	if added, ok := change[legacyAddedKey]; ok {
		return map[string]any{
			fieldName: map[string]any{
				"type":      "m2m",
				"operation": "add",
				"objects":   added,
			},
		}
	}
	if removed, ok := change[legacyRemovedKey]; ok {
		return map[string]any{
			fieldName: map[string]any{
				"type":      "m2m",
				"operation": "delete",
				"objects":   removed,
			},
		}
	}

	return changes
}
