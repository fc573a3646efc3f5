// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package toolserver

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Handler executes a tool call. Arguments arrive as decoded JSON; the
// returned value is rendered into the response envelope.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Tool is a callable exposed by a tool server. Tools are reachable both
// through POST /mcp/call and through their own REST route.
type Tool struct {
	Name        string
	Description string

	// Method and Path mount the tool as a REST route. Path may contain
	// mux variables ({currency_pair}); variables and query parameters are
	// merged into the argument map.
	Method string
	Path   string

	Handler Handler
}

// Registry holds the tools of one server.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name panics: tool sets
// are static and assembled at startup, so a collision is a programming
// error.
func (r *Registry) Register(t Tool) {
	if t.Name == "" || t.Handler == nil {
		panic("toolserver: tool must have a name and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		panic(fmt.Sprintf("toolserver: duplicate tool %q", t.Name))
	}
	r.tools[t.Name] = t
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToolError is a structured failure from a tool handler. Status maps to
// the HTTP status of the REST route; the /mcp/call envelope always
// answers 200 with Success=false, matching the tool-calling convention.
type ToolError struct {
	Status  int
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// Errorf builds a ToolError.
func Errorf(status int, format string, args ...interface{}) *ToolError {
	return &ToolError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// String reads a string argument.
func String(args map[string]interface{}, name string) string {
	v, _ := args[name].(string)
	return v
}

// Float reads a numeric argument with a default, tolerating the types
// JSON decoding produces.
func Float(args map[string]interface{}, name string, def float64) float64 {
	v, ok := args[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		// Query parameters arrive as strings.
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return def
}

// Int reads an integer argument with a default.
func Int(args map[string]interface{}, name string, def int) int {
	v, ok := args[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// Bool reads a boolean argument with a default.
func Bool(args map[string]interface{}, name string, def bool) bool {
	switch v := args[name].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
