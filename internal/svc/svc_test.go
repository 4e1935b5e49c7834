package svc

import (
	"slices"
	"testing"
)

func TestControl_UnknownAction(t *testing.T) {
	t.Parallel()

	if err := Control("explode", ""); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestDefinition_EmbedsConfigPath(t *testing.T) {
	t.Parallel()

	def := definition("/etc/keepr/keepr.yaml")
	if def.Name != "keepr" {
		t.Errorf("name = %q, want keepr", def.Name)
	}
	want := []string{"start", "--config", "/etc/keepr/keepr.yaml"}
	if !slices.Equal(def.Arguments, want) {
		t.Errorf("arguments = %v, want %v", def.Arguments, want)
	}
}

func TestDefinition_NoConfigPath(t *testing.T) {
	t.Parallel()

	def := definition("")
	if !slices.Equal(def.Arguments, []string{"start"}) {
		t.Errorf("arguments = %v, want [start]", def.Arguments)
	}
}
