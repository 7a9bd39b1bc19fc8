package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Tool is one externally invocable workspace capability.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params json.RawMessage) (string, error)
}

// Info describes a registered tool for listings.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Registry struct {
	tools map[string]Tool
}

func NewRegistry(ts ...Tool) *Registry {
	m := make(map[string]Tool, len(ts))
	for _, t := range ts {
		m[t.Name()] = t
	}
	return &Registry{tools: m}
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, Info{Name: name, Description: r.tools[name].Description()})
	}
	return out
}

func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return t.Execute(ctx, params)
}
