package testutil

import (
	"github.com/roach88/seqscore/internal/ir"
)

// JSONManifest is a cJSON-style manifest with a symbol prefix, used by
// corpus and CLI tests.
const JSONManifest = `library: "cjson"
prefixes: ["cJSON_"]
handle: Item: {release: true}
function: cJSON_Parse: {
	params: [{name: "value", role: "value"}]
	returns: {role: "owned", type: "Item"}
}
function: cJSON_CreateObject: returns: {role: "owned", type: "Item"}
function: cJSON_CreateString: {
	params: [{name: "string", role: "value"}]
	returns: {role: "owned", type: "Item"}
}
function: cJSON_Duplicate: {
	params: [{name: "item", role: "borrows", type: "Item"}, {name: "recurse", role: "value"}]
	returns: {role: "owned", type: "Item"}
}
function: cJSON_AddItemToObject: params: [
	{name: "object", role: "borrows", type: "Item"},
	{name: "string", role: "value"},
	{name: "item", role: "aliases", type: "Item", into: 0},
]
function: cJSON_GetObjectItem: {
	params: [{name: "object", role: "borrows", type: "Item"}, {name: "string", role: "value"}]
	returns: {role: "alias", type: "Item", of: 0}
}
function: cJSON_IsObject: params: [{name: "item", role: "borrows", type: "Item"}]
function: cJSON_Print: params: [{name: "item", role: "borrows", type: "Item"}]
function: cJSON_Delete: {
	params: [{name: "item", role: "consumes", type: "Item"}]
	critical: true
}
`

// JSONModel returns the model described by JSONManifest.
func JSONModel() *ir.InterfaceModel {
	item := func(name string, role ir.Role) ir.Param {
		return ir.Param{Name: name, Role: role, Type: "Item", Into: -1}
	}
	value := func(name string) ir.Param {
		return ir.Param{Name: name, Role: ir.RoleValue, Into: -1}
	}
	owned := ir.Return{Kind: ir.ReturnOwned, Type: "Item"}
	none := ir.Return{Kind: ir.ReturnNone}

	fns := []*ir.FunctionSpec{
		{Name: "cJSON_Parse", Params: []ir.Param{value("value")}, Returns: owned},
		{Name: "cJSON_CreateObject", Returns: owned},
		{Name: "cJSON_CreateString", Params: []ir.Param{value("string")}, Returns: owned},
		{Name: "cJSON_Duplicate", Params: []ir.Param{item("item", ir.RoleBorrows), value("recurse")}, Returns: owned},
		{Name: "cJSON_AddItemToObject", Params: []ir.Param{
			item("object", ir.RoleBorrows),
			value("string"),
			{Name: "item", Role: ir.RoleAliases, Type: "Item", Into: 0},
		}, Returns: none},
		{Name: "cJSON_GetObjectItem", Params: []ir.Param{item("object", ir.RoleBorrows), value("string")},
			Returns: ir.Return{Kind: ir.ReturnAlias, Type: "Item", Of: 0}},
		{Name: "cJSON_IsObject", Params: []ir.Param{item("item", ir.RoleBorrows)}, Returns: none},
		{Name: "cJSON_Print", Params: []ir.Param{item("item", ir.RoleBorrows)}, Returns: none},
		{Name: "cJSON_Delete", Params: []ir.Param{item("item", ir.RoleConsumes)}, Returns: none, Critical: true},
	}

	m := &ir.InterfaceModel{
		Library:     "cjson",
		Prefixes:    []string{"cJSON_"},
		HandleTypes: map[string]*ir.HandleType{"Item": {Name: "Item", Release: true}},
		Functions:   make(map[string]*ir.FunctionSpec, len(fns)),
	}
	for _, fn := range fns {
		m.Functions[fn.Name] = fn
	}

	hash, err := ir.ModelHash(m)
	if err != nil {
		panic(err)
	}
	m.Hash = hash
	return m
}

// JSONFixture is a fixture exercising JSONModel: nested calls, an ownership
// transfer into a container, and comments and strings that mention library
// names.
const JSONFixture = `// ID: 1
#include <cjson/cJSON.h>
int LLVMFuzzerTestOneInput(const uint8_t *data, size_t size) {
    char *buf = make_string(data, size); /* cJSON_Fake(x) in comment */
    cJSON *root = cJSON_Parse(buf);
    cJSON *obj = cJSON_CreateObject();
    cJSON_AddItemToObject(obj, "name, with comma", cJSON_CreateString("cJSON_Delete(x)"));
    if (cJSON_IsObject(root)) {
        printf("%s", cJSON_Print(obj));
    }
    cJSON_AddItemToObject(obj, "root", root);
    cJSON_Delete(obj);
    return 0;
}
`
