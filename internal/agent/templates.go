package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Template bundles the per-adapter-type configuration a SessionAgent is
// constructed from: its system prompt, the memory categories it should
// retrieve against, an optional model override, and its context-pressure
// strategy.
type Template struct {
	AdapterType      string          `json:"adapter_type" yaml:"adapter_type"`
	SystemPrompt     string          `json:"system_prompt" yaml:"system_prompt"`
	MemoryCategories []string        `json:"memory_categories,omitempty" yaml:"memory_categories,omitempty"`
	ModelOverride    string          `json:"model_override,omitempty" yaml:"model_override,omitempty"`
	Strategy         ContextStrategy `json:"strategy" yaml:"strategy"`
}

// builtinTemplates are the three templates spec.md §4.9 names: an
// assistant-style coding adapter, an orchestrator-style multi-agent
// adapter, and a generic shell adapter.
var builtinTemplates = map[string]Template{
	"claude-code": {
		AdapterType:      "claude-code",
		SystemPrompt:     "You are a session agent supervising a Claude Code coding assistant running in a terminal. Summarize its progress, flag when it needs input, and keep the user informed without micromanaging it.",
		MemoryCategories: []string{"coding-conventions", "project-context"},
		Strategy:         ContextStrategy{Kind: StrategyCompaction},
	},
	"mpm": {
		AdapterType:      "mpm",
		SystemPrompt:     "You are a session agent supervising a multi-agent orchestrator running in a terminal. Track which sub-agent is active, surface coordination blockers, and summarize overall progress for the user.",
		MemoryCategories: []string{"orchestration-state", "project-context"},
		Strategy:         ContextStrategy{Kind: StrategyPauseResume, PauseCmd: "/pause", ResumeCmd: "/resume"},
	},
	"shell": {
		AdapterType:      "shell",
		SystemPrompt:     "You are a session agent supervising a plain shell. Summarize command output, flag errors, and ask the user before anything destructive.",
		MemoryCategories: []string{"project-context"},
		Strategy:         ContextStrategy{Kind: StrategyWarnContinue},
	},
}

// TemplateRegistry resolves a Template by adapter type, falling back to
// the built-ins and allowing additional templates loaded from a directory
// of YAML or JSON files to override them by AdapterType.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateRegistry returns a registry seeded with the three built-ins.
func NewTemplateRegistry() *TemplateRegistry {
	r := &TemplateRegistry{templates: make(map[string]Template, len(builtinTemplates))}
	for k, v := range builtinTemplates {
		r.templates[k] = v
	}
	return r
}

// Get returns the template registered for adapterType, or false if none.
func (r *TemplateRegistry) Get(adapterType string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[adapterType]
	return t, ok
}

// Register installs t, replacing any built-in or previously loaded
// template for the same AdapterType.
func (r *TemplateRegistry) Register(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.AdapterType] = t
}

// LoadDir loads every .yaml, .yml, and .json file in dir as a Template and
// registers it, replacing the built-in for that adapter type.
func (r *TemplateRegistry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read template dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}
		var t Template
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &t); err != nil {
				return fmt.Errorf("parse template %s: %w", path, err)
			}
		case ".json":
			if err := json.Unmarshal(data, &t); err != nil {
				return fmt.Errorf("parse template %s: %w", path, err)
			}
		default:
			continue
		}
		if t.AdapterType == "" {
			return fmt.Errorf("template %s missing adapter_type", path)
		}
		r.Register(t)
	}
	return nil
}
