package roles

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	t.Run("default role exists", func(t *testing.T) {
		role, err := reg.Get(reg.DefaultRoleID())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if role.ID != DefaultRoleID {
			t.Errorf("expected %q, got %q", DefaultRoleID, role.ID)
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := reg.Get("gandalf")
		if !errors.Is(err, ErrRoleNotFound) {
			t.Errorf("expected ErrRoleNotFound, got %v", err)
		}
	})

	t.Run("every role has the four skills", func(t *testing.T) {
		for _, role := range reg.List() {
			if len(role.Skills) != 4 {
				t.Errorf("role %q: expected 4 skills, got %d", role.ID, len(role.Skills))
			}
			if _, err := role.Skill("mentor_plan"); err != nil {
				t.Errorf("role %q: missing mentor_plan: %v", role.ID, err)
			}
		}
	})

	t.Run("unknown skill", func(t *testing.T) {
		role, err := reg.Get("socrates")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := role.Skill("time_travel"); !errors.Is(err, ErrSkillNotFound) {
			t.Errorf("expected ErrSkillNotFound, got %v", err)
		}
	})
}

func TestListIsStableAndIsolated(t *testing.T) {
	reg := DefaultRegistry()

	first := reg.List()
	second := reg.List()
	if len(first) != len(second) {
		t.Fatalf("list length changed between calls")
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("ordering changed at index %d: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}

	// Mutating a returned slice must not affect the registry.
	first[0].ID = "mutated"
	again := reg.List()
	if again[0].ID == "mutated" {
		t.Error("registry state leaked through List")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	base := Role{ID: "a", Name: "A", Skills: []Skill{{ID: "s1", Name: "S1"}}}

	t.Run("empty registry", func(t *testing.T) {
		if _, err := NewRegistry(nil, "a"); err == nil {
			t.Error("expected error for empty registry")
		}
	})

	t.Run("duplicate role ids", func(t *testing.T) {
		if _, err := NewRegistry([]Role{base, base}, "a"); err == nil {
			t.Error("expected error for duplicate role id")
		}
	})

	t.Run("duplicate skill ids within a role", func(t *testing.T) {
		bad := Role{ID: "b", Name: "B", Skills: []Skill{{ID: "s", Name: "S"}, {ID: "s", Name: "S"}}}
		if _, err := NewRegistry([]Role{bad}, "b"); err == nil {
			t.Error("expected error for duplicate skill id")
		}
	})

	t.Run("unknown default role", func(t *testing.T) {
		if _, err := NewRegistry([]Role{base}, "nope"); err == nil {
			t.Error("expected error for unknown default role")
		}
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	content := `
default_role_id: sage
roles:
  - id: sage
    name: The Sage
    tagline: Quietly helpful
    knowledge_focus: [listening]
    skills:
      - id: summarize
        name: Summarize
        description: Summarize the conversation.
        prompt_instructions: Summarize the dialogue so far in three sentences.
        include_history: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	reg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.DefaultRoleID() != "sage" {
		t.Errorf("expected default sage, got %q", reg.DefaultRoleID())
	}
	role, err := reg.Get("sage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	skill, err := role.Skill("summarize")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !skill.IncludeHistory {
		t.Error("expected include_history to parse")
	}
	if skill.RequiresUserInput {
		t.Error("requires_user_input should default to false")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/no/such/file.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
