// Package roles holds the static catalog of personas and their skills.
// The registry is built once at startup and never mutates afterwards, so
// concurrent lookups need no locking.
package roles

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for registry lookups.
var (
	// ErrRoleNotFound is returned for an unknown role identifier.
	ErrRoleNotFound = errors.New("roles: role not found")

	// ErrSkillNotFound is returned for an unknown skill identifier.
	ErrSkillNotFound = errors.New("roles: skill not found")
)

// Skill is a declarative description of an assistant capability. A skill is
// a prompt template parameterized by persona and, optionally, user input.
type Skill struct {
	ID                 string `json:"id" yaml:"id"`
	Name               string `json:"name" yaml:"name"`
	Description        string `json:"description" yaml:"description"`
	PromptInstructions string `json:"-" yaml:"prompt_instructions"`
	RequiresUserInput  bool   `json:"requires_user_input" yaml:"requires_user_input"`
	IncludeHistory     bool   `json:"-" yaml:"include_history"`
	Placeholder        string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Role is the metadata that conditions every language-model call made on
// behalf of a persona.
type Role struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Alias           string   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Tagline         string   `json:"tagline,omitempty" yaml:"tagline,omitempty"`
	Summary         string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Background      string   `json:"background,omitempty" yaml:"background,omitempty"`
	Style           string   `json:"style,omitempty" yaml:"style,omitempty"`
	KnowledgeFocus  []string `json:"knowledge_focus" yaml:"knowledge_focus"`
	SampleQuestions []string `json:"sample_questions" yaml:"sample_questions"`
	Skills          []Skill  `json:"skills" yaml:"skills"`
}

// Skill returns the role's skill with the given id.
func (r Role) Skill(id string) (Skill, error) {
	for _, s := range r.Skills {
		if s.ID == id {
			return s, nil
		}
	}
	return Skill{}, fmt.Errorf("%w: %q in role %q", ErrSkillNotFound, id, r.ID)
}

// DisplayAlias returns the alias, falling back to the role name.
func (r Role) DisplayAlias() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Name
}

// Registry is an immutable role catalog. Build it once with NewRegistry or
// LoadFile and share it by reference across request handlers.
type Registry struct {
	roles     []Role
	byID      map[string]int
	defaultID string
}

// NewRegistry builds a registry from the given roles, preserving order.
// It validates identifier uniqueness and that defaultID names a known role.
func NewRegistry(list []Role, defaultID string) (*Registry, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("roles: registry needs at least one role")
	}

	byID := make(map[string]int, len(list))
	for i, role := range list {
		if role.ID == "" {
			return nil, fmt.Errorf("roles: role at index %d has empty id", i)
		}
		if _, dup := byID[role.ID]; dup {
			return nil, fmt.Errorf("roles: duplicate role id %q", role.ID)
		}
		byID[role.ID] = i

		seen := make(map[string]struct{}, len(role.Skills))
		for _, skill := range role.Skills {
			if skill.ID == "" {
				return nil, fmt.Errorf("roles: role %q has a skill with empty id", role.ID)
			}
			if _, dup := seen[skill.ID]; dup {
				return nil, fmt.Errorf("roles: role %q has duplicate skill id %q", role.ID, skill.ID)
			}
			seen[skill.ID] = struct{}{}
		}
	}

	if _, ok := byID[defaultID]; !ok {
		return nil, fmt.Errorf("roles: default role %q not in registry", defaultID)
	}

	roles := make([]Role, len(list))
	copy(roles, list)

	return &Registry{roles: roles, byID: byID, defaultID: defaultID}, nil
}

// libraryFile is the YAML shape of an external role library.
type libraryFile struct {
	DefaultRoleID string `yaml:"default_role_id"`
	Roles         []Role `yaml:"roles"`
}

// LoadFile builds a registry from a YAML role library file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roles: read %s: %w", path, err)
	}

	var lib libraryFile
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("roles: parse %s: %w", path, err)
	}

	return NewRegistry(lib.Roles, lib.DefaultRoleID)
}

// List returns all roles in their configured, stable order.
func (reg *Registry) List() []Role {
	out := make([]Role, len(reg.roles))
	copy(out, reg.roles)
	return out
}

// Get returns the role with the given id.
func (reg *Registry) Get(id string) (Role, error) {
	i, ok := reg.byID[id]
	if !ok {
		return Role{}, fmt.Errorf("%w: %q", ErrRoleNotFound, id)
	}
	return reg.roles[i], nil
}

// DefaultRoleID returns the identifier of the designated default role.
func (reg *Registry) DefaultRoleID() string {
	return reg.defaultID
}

// Len returns the number of roles in the registry.
func (reg *Registry) Len() int {
	return len(reg.roles)
}
