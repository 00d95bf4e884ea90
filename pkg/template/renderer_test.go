package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_LiteralBooleanCoercion(t *testing.T) {
	r := NewRenderer()

	got, err := r.Render("true", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = r.Render("False", nil)
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = r.Render([]interface{}{"True", "x", "false"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, "x", false}, got)
}

func TestRender_PlainLiteralPassthrough(t *testing.T) {
	r := NewRenderer()

	got, err := r.Render("hello world", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestRender_VariableSubstitution(t *testing.T) {
	r := NewRenderer()

	got, err := r.Render(map[string]interface{}{"a": "{{x}}"}, map[string]interface{}{"x": "hello"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": "hello"}, got)
}

func TestRender_StringTemplate(t *testing.T) {
	r := NewRenderer()

	got, err := r.Render("Hello {{name}}!", map[string]interface{}{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada!", got)
}

func TestRender_DottedPath(t *testing.T) {
	r := NewRenderer()

	vars := map[string]interface{}{
		"user": map[string]interface{}{"name": "Ada"},
	}
	got, err := r.Render("{{user.name}}", vars)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got)
}

func TestRender_MissingVariableDoesNotPanic(t *testing.T) {
	r := NewRenderer()

	// The empty-context retry cannot satisfy the reference either, so the
	// caller gets no value, never a panic.
	got, err := r.Render(map[string]interface{}{"a": "{{x}}"}, map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndefinedVariable))
	assert.Nil(t, got)
}

func TestRender_EmptyContextRetrySucceedsWithoutReferences(t *testing.T) {
	r := NewRenderer()

	// No variable references: the template renders even with nil context.
	got, err := r.Render(map[string]interface{}{"a": "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": "b"}, got)
}

func TestRender_InvalidJSONOutputReturnsScalar(t *testing.T) {
	r := NewRenderer()

	got, err := r.Render("{{greeting}} there", map[string]interface{}{"greeting": "hey"})
	require.NoError(t, err)
	assert.Equal(t, "hey there", got)
}

func TestRender_NumbersSurviveRoundTrip(t *testing.T) {
	r := NewRenderer()

	got, err := r.Render(map[string]interface{}{"n": 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"n": float64(5)}, got)
}

func TestRender_EmbeddedStructuredValue(t *testing.T) {
	r := NewRenderer()

	vars := map[string]interface{}{
		"payload": map[string]interface{}{"k": "v"},
	}
	got, err := r.Render(`{"body": {{payload}}}`, vars)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"body": map[string]interface{}{"k": "v"}}, got)
}

func TestRender_UnclosedBracesIsInvalid(t *testing.T) {
	r := NewRenderer()

	_, err := r.Render("{{oops", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTemplate))
}

func TestCoerceBooleans_Recursive(t *testing.T) {
	in := map[string]interface{}{
		"a": "True",
		"b": []interface{}{"false", "keep"},
		"c": map[string]interface{}{"d": "true"},
		"n": float64(3),
	}
	out := CoerceBooleans(in).(map[string]interface{})
	assert.Equal(t, true, out["a"])
	assert.Equal(t, []interface{}{false, "keep"}, out["b"])
	assert.Equal(t, map[string]interface{}{"d": true}, out["c"])
	assert.Equal(t, float64(3), out["n"])
}

func TestMergeVariables_LocalsWin(t *testing.T) {
	base := map[string]interface{}{"a": 1, "b": 2}
	locals := map[string]interface{}{"b": 3, "c": 4}

	merged := MergeVariables(base, locals)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 3, "c": 4}, merged)

	// Inputs are untouched.
	assert.Equal(t, 2, base["b"])
}
