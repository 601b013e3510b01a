package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstJSONObject(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		obj, ok := FirstJSONObject(`{"a":1}`)
		require.True(t, ok)
		require.Equal(t, `{"a":1}`, obj)
	})

	t.Run("wrapped in prose", func(t *testing.T) {
		obj, ok := FirstJSONObject(`Sure! Here you go: {"a":{"b":2}} hope it helps`)
		require.True(t, ok)
		require.Equal(t, `{"a":{"b":2}}`, obj)
	})

	t.Run("braces inside strings do not unbalance", func(t *testing.T) {
		obj, ok := FirstJSONObject(`{"msg":"use } carefully"} trailing`)
		require.True(t, ok)
		require.Equal(t, `{"msg":"use } carefully"}`, obj)
	})

	t.Run("escaped quote inside string", func(t *testing.T) {
		obj, ok := FirstJSONObject(`{"msg":"say \"}\" now"}`)
		require.True(t, ok)
		require.Equal(t, `{"msg":"say \"}\" now"}`, obj)
	})

	t.Run("no object", func(t *testing.T) {
		_, ok := FirstJSONObject("nothing here")
		require.False(t, ok)
	})

	t.Run("unbalanced", func(t *testing.T) {
		_, ok := FirstJSONObject(`{"a": 1`)
		require.False(t, ok)
	})
}

func TestSanitizeOutput(t *testing.T) {
	t.Run("markdown fence", func(t *testing.T) {
		in := "```json\n{\"x\": \"y\"}\n```"
		require.Equal(t, `{"x": "y"}`, SanitizeOutput(in))
	})

	t.Run("curly quotes", func(t *testing.T) {
		in := `{“x”: “y”}`
		require.Equal(t, `{"x": "y"}`, SanitizeOutput(in))
	})

	t.Run("no json passes through trimmed", func(t *testing.T) {
		require.Equal(t, "hola", SanitizeOutput("  hola \n"))
	})
}
