package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

func writePlanFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write plan file: %v", err)
	}
	return path
}

func TestLoadValidPlan(t *testing.T) {
	path := writePlanFile(t, `
agents:
  backend:
    tasks:
      - name: implement casting search API
        priority: 8
        payload:
          service: search
      - name: wire audition endpoints
        priority: 5
  frontend:
    tasks:
      - name: build talent profile page
        priority: 6
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if p.TaskCount() != 3 {
		t.Errorf("expected 3 tasks total, got %d", p.TaskCount())
	}

	backendTasks := p.Tasks(v1.AgentBackend)
	if len(backendTasks) != 2 {
		t.Fatalf("expected 2 backend tasks, got %d", len(backendTasks))
	}
	if backendTasks[0].Name != "implement casting search API" {
		t.Errorf("unexpected first task name: %q", backendTasks[0].Name)
	}
	if backendTasks[0].Priority != 8 {
		t.Errorf("expected priority 8, got %d", backendTasks[0].Priority)
	}
	if backendTasks[0].Payload["service"] != "search" {
		t.Errorf("payload not preserved: %v", backendTasks[0].Payload)
	}

	if tasks := p.Tasks(v1.AgentTesting); tasks != nil {
		t.Errorf("expected nil tasks for unseeded agent, got %v", tasks)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writePlanFile(t, "agents: [not: a, map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestLoadRejectsUnknownAgent(t *testing.T) {
	path := writePlanFile(t, `
agents:
  devops:
    tasks:
      - name: provision cluster
        priority: 5
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for unknown agent")
	}
	if !strings.Contains(err.Error(), `unknown agent "devops"`) {
		t.Errorf("error should name the unknown agent, got %q", err.Error())
	}
}

func TestLoadRejectsInvalidTasks(t *testing.T) {
	path := writePlanFile(t, `
agents:
  backend:
    tasks:
      - name: ""
        priority: 3
      - name: out of range
        priority: 11
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "name is required") {
		t.Errorf("error should flag the empty name, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "priority must be between 0 and 10") {
		t.Errorf("error should flag the priority range, got %q", err.Error())
	}
}
