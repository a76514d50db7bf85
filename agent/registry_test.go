package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopTool(context.Context, json.RawMessage) (string, error) { return "", nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(RegisteredTool{Name: "alpha", Run: noopTool})
	r.Register(RegisteredTool{Name: "beta", Run: noopTool, RequiresConfirmation: true})

	assert.Equal(t, 2, r.Count())
	assert.NotNil(t, r.Get("alpha"))
	assert.Nil(t, r.Get("missing"))
	assert.Equal(t, []string{"alpha", "beta"}, r.Names())

	r.Unregister("alpha")
	assert.Nil(t, r.Get("alpha"))
}

func TestRegistryRequiresConfirmation(t *testing.T) {
	r := NewRegistry()
	r.Register(RegisteredTool{Name: "safe", Run: noopTool})
	r.Register(RegisteredTool{Name: "dangerous", Run: noopTool, RequiresConfirmation: true})

	assert.False(t, r.RequiresConfirmation("safe"))
	assert.True(t, r.RequiresConfirmation("dangerous"))
	assert.False(t, r.RequiresConfirmation("unknown"))
}

func TestRegistrySchemasSortedAndShaped(t *testing.T) {
	r := NewRegistry()
	r.Register(RegisteredTool{
		Name:        "zebra",
		Description: "last alphabetically",
		Parameters:  map[string]any{"type": "object"},
		Run:         noopTool,
	})
	r.Register(RegisteredTool{
		Name:        "aardvark",
		Description: "first alphabetically",
		Parameters:  map[string]any{"type": "object"},
		Run:         noopTool,
	})

	schemas := r.Schemas()
	require.Len(t, schemas, 2)
	assert.Equal(t, "aardvark", schemas[0].Function.Name)
	assert.Equal(t, "zebra", schemas[1].Function.Name)
	assert.Equal(t, "function", schemas[0].Type)
}

func TestSchemaFor(t *testing.T) {
	schema := SchemaFor(&createFileArgs{})

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "FilePath")
	assert.Contains(t, props, "Content")

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.Contains(t, required, "FilePath")
}

func TestDecodeArguments(t *testing.T) {
	var args createFileArgs
	err := DecodeArguments(json.RawMessage(`{"FilePath":"a.go","Content":"package a"}`), &args)
	require.NoError(t, err)
	assert.Equal(t, "a.go", args.FilePath)
	assert.Equal(t, "package a", args.Content)

	assert.Error(t, DecodeArguments(nil, &args))
	assert.Error(t, DecodeArguments(json.RawMessage(`{broken`), &args))
}
