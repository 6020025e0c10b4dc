package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/auditlog-go/internal/errors"
)

func TestConvertChanges_PlainChangesPassThrough(t *testing.T) {
	converted, err := ConvertChanges(`{"name": ["old", "new"]}`, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": ["old", "new"]}`, converted)
}

func TestConvertChanges_M2MAdded(t *testing.T) {
	converted, err := ConvertChanges(`{"tags": {"Added": ["x", "y"]}}`, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags": {"type": "m2m", "operation": "add", "objects": ["x", "y"]}}`, converted)
}

func TestConvertChanges_M2MRemoved(t *testing.T) {
	converted, err := ConvertChanges(`{"tags": {"Removed": ["x"]}}`, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags": {"type": "m2m", "operation": "delete", "objects": ["x"]}}`, converted)
}

func TestConvertChanges_M2MDisabledKeepsShape(t *testing.T) {
	converted, err := ConvertChanges(`{"tags": {"Added": ["x", "y"]}}`, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags": {"Added": ["x", "y"]}}`, converted)
}

func TestConvertChanges_MultiFieldNeverRewritten(t *testing.T) {
	legacy := `{"tags": {"Added": ["x"]}, "name": ["old", "new"]}`

	converted, err := ConvertChanges(legacy, true)
	require.NoError(t, err)
	assert.JSONEq(t, legacy, converted)
}

func TestConvertChanges_NeitherMarkerPassesThrough(t *testing.T) {
	legacy := `{"tags": {"Replaced": ["x"]}}`

	converted, err := ConvertChanges(legacy, true)
	require.NoError(t, err)
	assert.JSONEq(t, legacy, converted)
}

func TestConvertChanges_NonObjectFieldValue(t *testing.T) {
	legacy := `{"name": ["old", "new"]}`

	converted, err := ConvertChanges(legacy, true)
	require.NoError(t, err)
	assert.JSONEq(t, legacy, converted)
}

func TestConvertChanges_NonObjectPayload(t *testing.T) {
	converted, err := ConvertChanges(`["just", "a", "list"]`, true)
	require.NoError(t, err)
	assert.JSONEq(t, `["just", "a", "list"]`, converted)
}

func TestConvertChanges_InvalidJSON(t *testing.T) {
	_, err := ConvertChanges(`{not valid}`, false)
	require.Error(t, err)
	assert.True(t, errors.IsParseError(err))
}
