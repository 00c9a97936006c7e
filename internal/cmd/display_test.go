package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"orgsync/pkg/model"
)

func TestIsDestructiveChange(t *testing.T) {
	goingPublic := model.Change{From: model.RawOf(true), To: model.RawOf(false)}
	goingPrivate := model.Change{From: model.RawOf(false), To: model.RawOf(true)}

	assert.True(t, isDestructiveChange(model.KindRepository, "private", goingPublic))
	assert.False(t, isDestructiveChange(model.KindRepository, "private", goingPrivate))
	assert.False(t, isDestructiveChange(model.KindRepository, "has_wiki", goingPublic))
	assert.False(t, isDestructiveChange(model.KindOrgWebhook, "private", goingPublic))

	// An unset side never counts as going public.
	partial := model.Change{From: model.RawUnset(), To: model.RawOf(false)}
	assert.False(t, isDestructiveChange(model.KindRepository, "private", partial))
}

func TestFormatFieldValue(t *testing.T) {
	assert.Equal(t, "(unset)", formatFieldValue("description", model.RawUnset()))
	assert.Equal(t, "null", formatFieldValue("description", model.RawNull()))
	assert.Equal(t, `"api"`, formatFieldValue("name", model.RawOf("api")))
	assert.Equal(t, "true", formatFieldValue("private", model.RawOf(true)))
	assert.Equal(t, "42", formatFieldValue("wait_timer", model.RawOf(42)))
	assert.Equal(t, "[go, service]", formatFieldValue("topics", model.RawOf([]string{"go", "service"})))
}

func TestFormatFieldValueRedactsSecrets(t *testing.T) {
	assert.Equal(t, `"********"`, formatFieldValue("value", model.RawOf("hunter2")))
	assert.Equal(t, `"********"`, formatFieldValue("secret", model.RawOf("hook-token")))
	assert.Equal(t, `""`, formatFieldValue("value", model.RawOf("")))
	assert.Equal(t, "null", formatFieldValue("value", model.RawNull()))
}

func TestSortedFieldNames(t *testing.T) {
	diff := model.FieldDiff{
		"private":     {},
		"description": {},
		"has_wiki":    {},
	}
	assert.Equal(t, []string{"description", "has_wiki", "private"}, sortedFieldNames(diff))
}
