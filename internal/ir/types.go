package ir

import (
	"fmt"
	"slices"
)

// Role is the ownership role of a function parameter.
type Role string

const (
	RoleConsumes Role = "consumes" // takes and frees an owned handle
	RoleBorrows  Role = "borrows"  // reads a handle without affecting its lifetime
	RoleAliases  Role = "aliases"  // hands the handle to a container that becomes its owner
	RoleProduces Role = "produces" // writes a new owned handle through a pointer
	RoleValue    Role = "value"    // plain data
)

// ValidRoles defines the allowed parameter roles.
var ValidRoles = map[Role]bool{
	RoleConsumes: true,
	RoleBorrows:  true,
	RoleAliases:  true,
	RoleProduces: true,
	RoleValue:    true,
}

// IsHandle reports whether the role binds a handle instance.
func (r Role) IsHandle() bool {
	return r != RoleValue
}

// ReturnKind is the ownership role of a function's return value.
type ReturnKind string

const (
	ReturnNone     ReturnKind = "none"
	ReturnOwned    ReturnKind = "owned"    // produces-owned
	ReturnBorrowed ReturnKind = "borrowed" // produces-borrowed
	ReturnAlias    ReturnKind = "alias"    // produces-alias-of(arg i)
)

// ValidReturnKinds defines the allowed return roles.
var ValidReturnKinds = map[ReturnKind]bool{
	ReturnNone:     true,
	ReturnOwned:    true,
	ReturnBorrowed: true,
	ReturnAlias:    true,
}

// Param describes one positional parameter of a library function.
type Param struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	Type string `json:"type,omitempty"` // handle type name, empty for value params

	// Into is the index of the argument whose instance becomes the owner of
	// the aliased handle. Only meaningful for RoleAliases.
	Into int `json:"into"`
}

// Return describes the ownership role of a function's result.
type Return struct {
	Kind ReturnKind `json:"kind"`
	Type string     `json:"type,omitempty"`
	Of   int        `json:"of"` // argument index for ReturnAlias
}

// FunctionSpec describes one exported function of the target library.
type FunctionSpec struct {
	Name     string  `json:"name"`
	Params   []Param `json:"params"`
	Returns  Return  `json:"returns"`
	Critical bool    `json:"critical"`
}

// HandleType describes an opaque resource type.
// Every handle type shares the generic lifecycle FSM (see State).
type HandleType struct {
	Name string `json:"name"`

	// Release marks types whose instances need an explicit terminal release
	// call to be considered clean.
	Release bool `json:"release"`

	// AliasRelease permits consuming an alias of this type.
	AliasRelease bool `json:"alias_release"`
}

// InterfaceModel is the compiled manifest of one target library.
// It is built once by the compiler and shared read-only by all workers.
type InterfaceModel struct {
	Library     string                   `json:"library"`
	Prefixes    []string                 `json:"prefixes"`
	HandleTypes map[string]*HandleType   `json:"handle_types"`
	Functions   map[string]*FunctionSpec `json:"functions"`

	// Hash is the content hash of the compiled model (see ModelHash).
	Hash string `json:"hash"`
}

// Function looks up a function by name.
func (m *InterfaceModel) Function(name string) (*FunctionSpec, bool) {
	fn, ok := m.Functions[name]
	return fn, ok
}

// HandleType looks up a handle type by name.
func (m *InterfaceModel) HandleType(name string) (*HandleType, bool) {
	ht, ok := m.HandleTypes[name]
	return ht, ok
}

// FunctionNames returns function names in sorted order.
func (m *InterfaceModel) FunctionNames() []string {
	names := make([]string, 0, len(m.Functions))
	for name := range m.Functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HandleTypeNames returns handle type names in sorted order.
func (m *InterfaceModel) HandleTypeNames() []string {
	names := make([]string, 0, len(m.HandleTypes))
	for name := range m.HandleTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Strategy is the generation-strategy tag of a corpus entry.
type Strategy string

const (
	StrategyBaseline   Strategy = "baseline"
	StrategyRandomized Strategy = "randomized"
	StrategyRuleGuided Strategy = "rule-guided"
	StrategyRepaired   Strategy = "repaired"
)

// ParseStrategy maps a directory name or header value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "baseline", "base":
		return StrategyBaseline, nil
	case "randomized", "random":
		return StrategyRandomized, nil
	case "rule-guided", "rule_guided", "ruleguided":
		return StrategyRuleGuided, nil
	case "repaired", "repair":
		return StrategyRepaired, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}
