package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewTemplateRegistrySeedsBuiltins(t *testing.T) {
	r := NewTemplateRegistry()
	for _, name := range []string{"claude-code", "mpm", "shell"} {
		tmpl, ok := r.Get(name)
		if !ok {
			t.Fatalf("missing builtin template %q", name)
		}
		if tmpl.SystemPrompt == "" {
			t.Fatalf("template %q has empty system prompt", name)
		}
	}
}

func TestTemplateRegistryGetMissingReturnsFalse(t *testing.T) {
	r := NewTemplateRegistry()
	if _, ok := r.Get("nonexistent"); ok {
		t.Fatal("expected ok=false for unregistered adapter type")
	}
}

func TestTemplateRegistryRegisterOverridesBuiltin(t *testing.T) {
	r := NewTemplateRegistry()
	r.Register(Template{AdapterType: "shell", SystemPrompt: "custom shell prompt"})
	tmpl, ok := r.Get("shell")
	if !ok || tmpl.SystemPrompt != "custom shell prompt" {
		t.Fatalf("override did not take effect: %+v", tmpl)
	}
}

func TestTemplateRegistryLoadDirMissingDirIsNotError(t *testing.T) {
	r := NewTemplateRegistry()
	if err := r.LoadDir(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTemplateRegistryLoadDirYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlBody := "adapter_type: claude-code\nsystem_prompt: overridden via yaml\nstrategy:\n  kind: compaction\n"
	if err := os.WriteFile(filepath.Join(dir, "claude-code.yaml"), []byte(yamlBody), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewTemplateRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	tmpl, ok := r.Get("claude-code")
	if !ok || tmpl.SystemPrompt != "overridden via yaml" {
		t.Fatalf("yaml override did not apply: %+v", tmpl)
	}
}

func TestTemplateRegistryLoadDirJSONOverride(t *testing.T) {
	dir := t.TempDir()
	jsonBody := `{"adapter_type":"mpm","system_prompt":"overridden via json"}`
	if err := os.WriteFile(filepath.Join(dir, "mpm.json"), []byte(jsonBody), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewTemplateRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	tmpl, ok := r.Get("mpm")
	if !ok || tmpl.SystemPrompt != "overridden via json" {
		t.Fatalf("json override did not apply: %+v", tmpl)
	}
}

func TestTemplateRegistryLoadDirRejectsMissingAdapterType(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"system_prompt":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewTemplateRegistry()
	if err := r.LoadDir(dir); err == nil {
		t.Fatal("expected error for template missing adapter_type")
	}
}
