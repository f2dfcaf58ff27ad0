package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/seqscore/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrLibraryEmpty      = "E101" // library name is required
	ErrNoFunctions       = "E102" // at least one function required
	ErrHandleNeverMade   = "E103" // no function produces the handle type
	ErrHandleNeverFreed  = "E104" // release-requiring handle type has no consuming function
	ErrAliasIntoValue    = "E105" // aliases param points at a value param
	ErrPrefixMismatch    = "E106" // function name matches none of the prefixes
	ErrAliasOfValueParam = "E107" // alias return points at a value param
)

// ValidationError represents a manifest schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateModel checks a compiled model against schema rules that the
// compiler does not enforce. Returns all errors found (does not fail-fast).
func ValidateModel(m *ir.InterfaceModel) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(m.Library) == "" {
		errs = append(errs, ValidationError{
			Field:   "library",
			Message: "library is required and must be non-empty",
			Code:    ErrLibraryEmpty,
		})
	}

	if len(m.Functions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "function",
			Message: "at least one function is required",
			Code:    ErrNoFunctions,
		})
	}

	produced := make(map[string]bool)
	consumed := make(map[string]bool)

	for _, name := range m.FunctionNames() {
		fn := m.Functions[name]

		if fn.Returns.Kind != ir.ReturnNone {
			produced[fn.Returns.Type] = true
		}
		if fn.Returns.Kind == ir.ReturnAlias && fn.Params[fn.Returns.Of].Role == ir.RoleValue {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("function.%s.returns.of", name),
				Message: fmt.Sprintf("alias return refers to value parameter %q", fn.Params[fn.Returns.Of].Name),
				Code:    ErrAliasOfValueParam,
			})
		}

		for i, p := range fn.Params {
			switch p.Role {
			case ir.RoleConsumes:
				consumed[p.Type] = true
			case ir.RoleProduces:
				produced[p.Type] = true
			}
			if p.Role == ir.RoleAliases && fn.Params[p.Into].Role == ir.RoleValue {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("function.%s.params[%d].into", name, i),
					Message: fmt.Sprintf("aliases parameter %q points at value parameter %q", p.Name, fn.Params[p.Into].Name),
					Code:    ErrAliasIntoValue,
				})
			}
		}

		if len(m.Prefixes) > 0 && !hasAnyPrefix(name, m.Prefixes) {
			errs = append(errs, ValidationError{
				Field:   "function." + name,
				Message: fmt.Sprintf("function name matches none of the prefixes %v", m.Prefixes),
				Code:    ErrPrefixMismatch,
			})
		}
	}

	for _, name := range m.HandleTypeNames() {
		ht := m.HandleTypes[name]
		if !produced[name] {
			errs = append(errs, ValidationError{
				Field:   "handle." + name,
				Message: "no function produces this handle type",
				Code:    ErrHandleNeverMade,
			})
		}
		if ht.Release && !consumed[name] {
			errs = append(errs, ValidationError{
				Field:   "handle." + name,
				Message: "handle type requires release but no function consumes it",
				Code:    ErrHandleNeverFreed,
			})
		}
	}

	return errs
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
