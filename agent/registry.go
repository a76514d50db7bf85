package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/pairuplabs/pairup/chatwire"
)

// ToolFunc executes a tool with raw JSON arguments and returns plain text
// output for the model.
type ToolFunc func(ctx context.Context, arguments json.RawMessage) (string, error)

// RegisteredTool pairs a tool's schema declaration with its executor and
// confirmation requirement. RequiresConfirmation is the single source of
// truth for which tools need a human approval before running.
type RegisteredTool struct {
	Name                 string
	Description          string
	Parameters           map[string]any
	RequiresConfirmation bool
	Run                  ToolFunc
}

// Registry is the catalog of tools exposed to the model.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*RegisteredTool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*RegisteredTool)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool RegisteredTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = &tool
}

// Unregister removes a tool.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a registered tool by name, or nil.
func (r *Registry) Get(name string) *RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// RequiresConfirmation reports whether the named tool mutates state and
// needs user approval. Unknown names require no confirmation; they fail at
// dispatch instead.
func (r *Registry) RequiresConfirmation(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return ok && t.RequiresConfirmation
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Schemas returns the wire-format tool declarations, sorted by name so the
// request payload is deterministic.
func (r *Registry) Schemas() []chatwire.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]chatwire.Tool, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		out = append(out, chatwire.FunctionTool(chatwire.ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}))
	}
	return out
}

// SchemaFor reflects a JSON schema from a typed argument struct. Field
// names follow the struct's json tags; descriptions and constraints come
// from jsonschema tags.
func SchemaFor(v any) map[string]any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// DecodeArguments unmarshals tool-call argument text into a typed struct.
// The argument text is required to be well-formed JSON; a failure here is a
// tool-level error, never a panic.
func DecodeArguments(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return fmt.Errorf("tool arguments are empty")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}
