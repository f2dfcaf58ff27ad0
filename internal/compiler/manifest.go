package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/seqscore/internal/ir"
)

// LoadManifest reads and compiles a single CUE manifest file.
func LoadManifest(path string) (*ir.InterfaceModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	return CompileManifest(v)
}

// CompileManifest parses a CUE value into an InterfaceModel.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the manifest root, e.g.:
//
//	library: "cjson"
//	prefixes: ["cJSON_"]
//	handle: Item: {release: true}
//	function: cJSON_Delete: {
//		params: [{name: "item", role: "consumes", type: "Item"}]
//		critical: true
//	}
//
// Returns *ParseError for malformed input and *UnknownHandleTypeError when a
// function references a handle type the manifest does not declare.
func CompileManifest(v cue.Value) (*ir.InterfaceModel, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	model := &ir.InterfaceModel{
		HandleTypes: make(map[string]*ir.HandleType),
		Functions:   make(map[string]*ir.FunctionSpec),
	}

	libVal := v.LookupPath(cue.ParsePath("library"))
	if !libVal.Exists() {
		return nil, &ParseError{Field: "library", Message: "library is required", Pos: v.Pos()}
	}
	lib, err := libVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	model.Library = lib

	model.Prefixes, err = parseStringList(v, "prefixes")
	if err != nil {
		return nil, err
	}

	if err := parseHandles(v, model); err != nil {
		return nil, err
	}

	if err := parseFunctions(v, model); err != nil {
		return nil, err
	}
	if len(model.Functions) == 0 {
		return nil, &ParseError{Field: "function", Message: "at least one function is required", Pos: v.Pos()}
	}

	if err := resolveHandleTypes(model); err != nil {
		return nil, err
	}

	model.Hash, err = ir.ModelHash(model)
	if err != nil {
		return nil, err
	}

	return model, nil
}

// parseHandles extracts handle type declarations.
func parseHandles(v cue.Value, model *ir.InterfaceModel) error {
	handleVal := v.LookupPath(cue.ParsePath("handle"))
	if !handleVal.Exists() {
		return nil
	}

	iter, err := handleVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		hv := iter.Value()

		ht := &ir.HandleType{Name: name}
		if ht.Release, err = optionalBool(hv, "release"); err != nil {
			return err
		}
		if ht.AliasRelease, err = optionalBool(hv, "alias_release"); err != nil {
			return err
		}
		model.HandleTypes[name] = ht
	}

	return nil
}

// parseFunctions extracts function specs.
func parseFunctions(v cue.Value, model *ir.InterfaceModel) error {
	fnVal := v.LookupPath(cue.ParsePath("function"))
	if !fnVal.Exists() {
		return nil
	}

	iter, err := fnVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		fn, err := parseFunction(name, iter.Value())
		if err != nil {
			return err
		}
		model.Functions[name] = fn
	}

	return nil
}

func parseFunction(name string, v cue.Value) (*ir.FunctionSpec, error) {
	fn := &ir.FunctionSpec{
		Name:    name,
		Returns: ir.Return{Kind: ir.ReturnNone},
	}

	var err error
	if fn.Critical, err = optionalBool(v, "critical"); err != nil {
		return nil, err
	}

	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if paramsVal.Exists() {
		list, err := paramsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			p, err := parseParam(name, i, list.Value())
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, p)
		}
	}

	for i, p := range fn.Params {
		if p.Role != ir.RoleAliases {
			continue
		}
		if p.Into < 0 || p.Into >= len(fn.Params) || p.Into == i {
			return nil, &ParseError{
				Field:   fmt.Sprintf("function.%s.params[%d].into", name, i),
				Message: fmt.Sprintf("into index %d out of range", p.Into),
				Pos:     paramsVal.Pos(),
			}
		}
	}

	retVal := v.LookupPath(cue.ParsePath("returns"))
	if retVal.Exists() {
		fn.Returns, err = parseReturn(name, len(fn.Params), retVal)
		if err != nil {
			return nil, err
		}
	}

	return fn, nil
}

func parseParam(fnName string, idx int, v cue.Value) (ir.Param, error) {
	field := fmt.Sprintf("function.%s.params[%d]", fnName, idx)
	p := ir.Param{Into: -1}

	var err error
	if p.Name, err = optionalString(v, "name"); err != nil {
		return p, err
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("arg%d", idx)
	}

	role, err := optionalString(v, "role")
	if err != nil {
		return p, err
	}
	if role == "" {
		role = string(ir.RoleValue)
	}
	p.Role = ir.Role(role)
	if !ir.ValidRoles[p.Role] {
		return p, &ParseError{
			Field:   field + ".role",
			Message: fmt.Sprintf("invalid role %q, must be consumes, borrows, aliases, produces, or value", role),
			Pos:     v.Pos(),
		}
	}

	if p.Type, err = optionalString(v, "type"); err != nil {
		return p, err
	}
	if p.Role.IsHandle() && p.Type == "" {
		return p, &ParseError{
			Field:   field + ".type",
			Message: fmt.Sprintf("%s parameter requires a handle type", p.Role),
			Pos:     v.Pos(),
		}
	}

	if p.Role == ir.RoleAliases {
		intoVal := v.LookupPath(cue.ParsePath("into"))
		if !intoVal.Exists() {
			return p, &ParseError{
				Field:   field + ".into",
				Message: "aliases parameter requires an into index",
				Pos:     v.Pos(),
			}
		}
		into, err := intoVal.Int64()
		if err != nil {
			return p, formatCUEError(err)
		}
		p.Into = int(into)
	}

	return p, nil
}

// returnKinds maps manifest spellings to return kinds.
var returnKinds = map[string]ir.ReturnKind{
	"none":              ir.ReturnNone,
	"owned":             ir.ReturnOwned,
	"produces-owned":    ir.ReturnOwned,
	"borrowed":          ir.ReturnBorrowed,
	"produces-borrowed": ir.ReturnBorrowed,
	"alias":             ir.ReturnAlias,
	"produces-alias-of": ir.ReturnAlias,
}

func parseReturn(fnName string, nParams int, v cue.Value) (ir.Return, error) {
	field := fmt.Sprintf("function.%s.returns", fnName)
	ret := ir.Return{Kind: ir.ReturnNone}

	role, err := optionalString(v, "role")
	if err != nil {
		return ret, err
	}
	if role == "" {
		role = "none"
	}
	kind, ok := returnKinds[role]
	if !ok {
		return ret, &ParseError{
			Field:   field + ".role",
			Message: fmt.Sprintf("invalid return role %q, must be owned, borrowed, alias, or none", role),
			Pos:     v.Pos(),
		}
	}
	ret.Kind = kind

	if ret.Type, err = optionalString(v, "type"); err != nil {
		return ret, err
	}
	if kind != ir.ReturnNone && ret.Type == "" {
		return ret, &ParseError{
			Field:   field + ".type",
			Message: fmt.Sprintf("%s return requires a handle type", role),
			Pos:     v.Pos(),
		}
	}

	if kind == ir.ReturnAlias {
		ofVal := v.LookupPath(cue.ParsePath("of"))
		if !ofVal.Exists() {
			return ret, &ParseError{Field: field + ".of", Message: "alias return requires an of index", Pos: v.Pos()}
		}
		of, err := ofVal.Int64()
		if err != nil {
			return ret, formatCUEError(err)
		}
		if of < 0 || int(of) >= nParams {
			return ret, &ParseError{
				Field:   field + ".of",
				Message: fmt.Sprintf("of index %d out of range", of),
				Pos:     ofVal.Pos(),
			}
		}
		ret.Of = int(of)
	}

	return ret, nil
}

// resolveHandleTypes checks every handle type reference against the
// declared handle types. Functions are checked in sorted order so the
// reported error is deterministic.
func resolveHandleTypes(model *ir.InterfaceModel) error {
	for _, name := range model.FunctionNames() {
		fn := model.Functions[name]
		for i, p := range fn.Params {
			if p.Type == "" {
				continue
			}
			if _, ok := model.HandleTypes[p.Type]; !ok {
				return &UnknownHandleTypeError{
					Function: name,
					Field:    fmt.Sprintf("params[%d]", i),
					Type:     p.Type,
				}
			}
		}
		if fn.Returns.Type != "" {
			if _, ok := model.HandleTypes[fn.Returns.Type]; !ok {
				return &UnknownHandleTypeError{Function: name, Field: "returns", Type: fn.Returns.Type}
			}
		}
	}
	return nil
}

func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func parseStringList(v cue.Value, path string) ([]string, error) {
	out := []string{}
	lv := v.LookupPath(cue.ParsePath(path))
	if !lv.Exists() {
		return out, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ParseError{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	perr := &ParseError{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		perr.Pos = positions[0]
	}
	return perr
}
