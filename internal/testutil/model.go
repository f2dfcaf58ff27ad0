package testutil

import (
	"github.com/roach88/seqscore/internal/ir"
)

// DocModel returns a small interface model used across package tests.
//
//	Doc   release-requiring handle
//	Node  plain handle whose aliases may be released
//
//	Create()            -> owned Doc
//	Destroy(consumes Doc)                critical
//	Borrow(borrows Doc, value)
//	Child(borrows Doc)  -> alias of arg 0
//	Attach(borrows Doc, aliases Doc into 0)
//	Global()            -> borrowed Doc
//	NewNode()           -> owned Node
//	FreeNode(consumes Node)
//	Fail(value)                          critical
func DocModel() *ir.InterfaceModel {
	m := &ir.InterfaceModel{
		Library:  "doc",
		Prefixes: []string{},
		HandleTypes: map[string]*ir.HandleType{
			"Doc":  {Name: "Doc", Release: true},
			"Node": {Name: "Node", AliasRelease: true},
		},
		Functions: map[string]*ir.FunctionSpec{},
	}

	add := func(fn *ir.FunctionSpec) {
		if fn.Returns.Kind == "" {
			fn.Returns.Kind = ir.ReturnNone
		}
		m.Functions[fn.Name] = fn
	}

	add(&ir.FunctionSpec{Name: "Create", Returns: ir.Return{Kind: ir.ReturnOwned, Type: "Doc"}})
	add(&ir.FunctionSpec{
		Name:     "Destroy",
		Params:   []ir.Param{{Name: "d", Role: ir.RoleConsumes, Type: "Doc", Into: -1}},
		Critical: true,
	})
	add(&ir.FunctionSpec{
		Name: "Borrow",
		Params: []ir.Param{
			{Name: "d", Role: ir.RoleBorrows, Type: "Doc", Into: -1},
			{Name: "n", Role: ir.RoleValue, Into: -1},
		},
	})
	add(&ir.FunctionSpec{
		Name:    "Child",
		Params:  []ir.Param{{Name: "d", Role: ir.RoleBorrows, Type: "Doc", Into: -1}},
		Returns: ir.Return{Kind: ir.ReturnAlias, Type: "Doc", Of: 0},
	})
	add(&ir.FunctionSpec{
		Name: "Attach",
		Params: []ir.Param{
			{Name: "parent", Role: ir.RoleBorrows, Type: "Doc", Into: -1},
			{Name: "child", Role: ir.RoleAliases, Type: "Doc", Into: 0},
		},
	})
	add(&ir.FunctionSpec{Name: "Global", Returns: ir.Return{Kind: ir.ReturnBorrowed, Type: "Doc"}})
	add(&ir.FunctionSpec{Name: "NewNode", Returns: ir.Return{Kind: ir.ReturnOwned, Type: "Node"}})
	add(&ir.FunctionSpec{
		Name:   "FreeNode",
		Params: []ir.Param{{Name: "n", Role: ir.RoleConsumes, Type: "Node", Into: -1}},
	})
	add(&ir.FunctionSpec{
		Name:     "Fail",
		Params:   []ir.Param{{Name: "code", Role: ir.RoleValue, Into: -1}},
		Critical: true,
	})

	hash, err := ir.ModelHash(m)
	if err != nil {
		panic(err)
	}
	m.Hash = hash
	return m
}

// DocManifest is the CUE manifest equivalent of DocModel.
const DocManifest = `
library: "doc"
handle: Doc: {release: true}
handle: Node: {alias_release: true}
function: Create: returns: {role: "owned", type: "Doc"}
function: Destroy: {
	params: [{name: "d", role: "consumes", type: "Doc"}]
	critical: true
}
function: Borrow: params: [{name: "d", role: "borrows", type: "Doc"}, {name: "n", role: "value"}]
function: Child: {
	params: [{name: "d", role: "borrows", type: "Doc"}]
	returns: {role: "alias", type: "Doc", of: 0}
}
function: Attach: params: [
	{name: "parent", role: "borrows", type: "Doc"},
	{name: "child", role: "aliases", type: "Doc", into: 0},
]
function: Global: returns: {role: "borrowed", type: "Doc"}
function: NewNode: returns: {role: "owned", type: "Node"}
function: FreeNode: params: [{name: "n", role: "consumes", type: "Node"}]
function: Fail: {
	params: [{name: "code", role: "value"}]
	critical: true
}
`

// Seq builds a sequence record from calls.
func Seq(id int64, calls ...ir.Call) *ir.SequenceRecord {
	return &ir.SequenceRecord{ID: id, Strategy: ir.StrategyBaseline, Calls: calls}
}

// Call builds a call with an optional destination.
func Call(dest, fn string, args ...ir.Binding) ir.Call {
	if args == nil {
		args = []ir.Binding{}
	}
	return ir.Call{Function: fn, Args: args, Dest: dest}
}
