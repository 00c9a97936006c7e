package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptor(t *testing.T, o ModelObject, name string) FieldDescriptor {
	t.Helper()
	d, ok := fieldByName(o.Fields(), name)
	require.True(t, ok, "no field %q on %s", name, o.Kind())
	return d
}

func TestSetRawCoercesIntegers(t *testing.T) {
	env := &Environment{}
	d := descriptor(t, env, "wait_timer")

	require.NoError(t, d.SetRaw(env, RawOf(30)))
	assert.Equal(t, 30, env.WaitTimer.Or(0))

	// YAML decoders hand over int64 and json float64 values.
	require.NoError(t, d.SetRaw(env, RawOf(int64(45))))
	assert.Equal(t, 45, env.WaitTimer.Or(0))

	require.NoError(t, d.SetRaw(env, RawOf(float64(60))))
	assert.Equal(t, 60, env.WaitTimer.Or(0))

	err := d.SetRaw(env, RawOf(1.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "wait_timer" expects a int value`)
}

func TestSetRawRejectsTypeMismatch(t *testing.T) {
	repo := &Repository{}
	d := descriptor(t, repo, "private")

	err := d.SetRaw(repo, RawOf("yes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "private" expects a bool value, got string`)
}

func TestSetRawSortsStringLists(t *testing.T) {
	repo := &Repository{}
	d := descriptor(t, repo, "topics")

	require.NoError(t, d.SetRaw(repo, RawOf([]string{"service", "go", "api"})))
	topics, ok := repo.Topics.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"api", "go", "service"}, topics)

	// Mixed []any input from YAML decodes the same way.
	require.NoError(t, d.SetRaw(repo, RawOf([]any{"zeta", "alpha"})))
	topics, _ = repo.Topics.Get()
	assert.Equal(t, []string{"alpha", "zeta"}, topics)

	err := d.SetRaw(repo, RawOf([]any{"ok", 7}))
	require.Error(t, err)
}

func TestSetRawListDoesNotAliasInput(t *testing.T) {
	repo := &Repository{}
	d := descriptor(t, repo, "topics")

	input := []string{"b", "a"}
	require.NoError(t, d.SetRaw(repo, RawOf(input)))
	assert.Equal(t, []string{"b", "a"}, input)
}

func TestSetRawStates(t *testing.T) {
	repo := &Repository{}
	d := descriptor(t, repo, "description")

	require.NoError(t, d.SetRaw(repo, RawOf("hi")))
	assert.True(t, repo.Description.IsSet())

	require.NoError(t, d.SetRaw(repo, RawNull()))
	assert.True(t, repo.Description.IsNull())

	require.NoError(t, d.SetRaw(repo, RawUnset()))
	assert.True(t, repo.Description.IsUnset())
}

func TestGetRawReadsThroughBinding(t *testing.T) {
	repo := &Repository{}
	repo.Private = Of(true)
	repo.Topics = Of([]string{"go"})

	assert.Equal(t, RawOf(true), descriptor(t, repo, "private").GetRaw(repo))
	assert.Equal(t, RawOf([]string{"go"}), descriptor(t, repo, "topics").GetRaw(repo))
	assert.Equal(t, RawUnset(), descriptor(t, repo, "description").GetRaw(repo))
}

func TestFieldTypeString(t *testing.T) {
	assert.Equal(t, "string", TypeString.String())
	assert.Equal(t, "bool", TypeBool.String())
	assert.Equal(t, "int", TypeInt.String())
	assert.Equal(t, "string list", TypeStringList.String())
}
