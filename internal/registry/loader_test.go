package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadSingleYAMLFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tools.yaml", `
tools:
  - name: comfyui
    command: ["python", "main.py", "--listen"]
    work_dir: /opt/comfyui
    auto_restart: true
  - name: ollama
    command: ["ollama", "serve"]
`)
	tools, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	if tools[0].Name != "comfyui" || !tools[0].AutoRestart || tools[0].WorkDir != "/opt/comfyui" {
		t.Fatalf("unexpected tool: %+v", tools[0])
	}
	if len(tools[0].Command) != 3 {
		t.Fatalf("command not parsed as vector: %+v", tools[0].Command)
	}
}

func TestLoadSingleJSONFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tools.json", `{
  "tools": [{"name": "sd-webui", "command": ["bash", "webui.sh"]}]
}`)
	tools, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "sd-webui" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
}

func TestLoadDirectoryMergesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10-base.yaml", `
tools:
  - name: comfyui
    command: ["python", "main.py"]
  - name: ollama
    command: ["ollama", "serve"]
`)
	// Later file overrides the earlier definition of the same tool.
	writeFile(t, dir, "20-override.yaml", `
tools:
  - name: comfyui
    command: ["python", "main.py", "--lowvram"]
`)
	writeFile(t, dir, "ignored.txt", "not a catalog")

	tools, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 merged tools, got %d", len(tools))
	}
	if tools[0].Name != "comfyui" || len(tools[0].Command) != 3 {
		t.Fatalf("override not applied: %+v", tools[0])
	}
	if tools[1].Name != "ollama" {
		t.Fatalf("expected ollama second, got %+v", tools[1])
	}
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()
	noName := writeFile(t, dir, "noname.yaml", `
tools:
  - command: ["true"]
`)
	if _, err := Load(noName); err == nil {
		t.Fatalf("expected error for missing name")
	}
	noCommand := writeFile(t, dir, "nocmd.yaml", `
tools:
  - name: broken
`)
	if _, err := Load(noCommand); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestLoadMissingPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir in environment")
	}
	got, err := expandHome("~/launcherd/tools")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, "launcherd", "tools") {
		t.Fatalf("unexpected expansion: %s", got)
	}
	got, err = expandHome("/absolute/path")
	if err != nil || got != "/absolute/path" {
		t.Fatalf("absolute path must pass through, got %s err %v", got, err)
	}
}
