package testutil

import (
	"github.com/roach88/seqscore/internal/ir"
)

// SQLiteManifest describes an embedded-database API whose handles are
// returned through out-parameters.
const SQLiteManifest = `library: "sqlite3"
prefixes: ["sqlite3_"]
handle: DB: {release: true}
handle: Stmt: {release: true}
function: sqlite3_open: params: [
	{name: "filename", role: "value"},
	{name: "db", role: "produces", type: "DB"},
]
function: sqlite3_prepare_v2: params: [
	{name: "db", role: "borrows", type: "DB"},
	{name: "sql", role: "value"},
	{name: "n", role: "value"},
	{name: "stmt", role: "produces", type: "Stmt"},
	{name: "tail", role: "value"},
]
function: sqlite3_step: params: [{name: "stmt", role: "borrows", type: "Stmt"}]
function: sqlite3_finalize: {
	params: [{name: "stmt", role: "consumes", type: "Stmt"}]
	critical: true
}
function: sqlite3_close: {
	params: [{name: "db", role: "consumes", type: "DB"}]
	critical: true
}
`

// SQLiteModel returns the model described by SQLiteManifest.
func SQLiteModel() *ir.InterfaceModel {
	handle := func(name string, role ir.Role, typ string) ir.Param {
		return ir.Param{Name: name, Role: role, Type: typ, Into: -1}
	}
	value := func(name string) ir.Param {
		return ir.Param{Name: name, Role: ir.RoleValue, Into: -1}
	}
	none := ir.Return{Kind: ir.ReturnNone}

	fns := []*ir.FunctionSpec{
		{Name: "sqlite3_open", Params: []ir.Param{value("filename"), handle("db", ir.RoleProduces, "DB")}, Returns: none},
		{Name: "sqlite3_prepare_v2", Params: []ir.Param{
			handle("db", ir.RoleBorrows, "DB"),
			value("sql"),
			value("n"),
			handle("stmt", ir.RoleProduces, "Stmt"),
			value("tail"),
		}, Returns: none},
		{Name: "sqlite3_step", Params: []ir.Param{handle("stmt", ir.RoleBorrows, "Stmt")}, Returns: none},
		{Name: "sqlite3_finalize", Params: []ir.Param{handle("stmt", ir.RoleConsumes, "Stmt")}, Returns: none, Critical: true},
		{Name: "sqlite3_close", Params: []ir.Param{handle("db", ir.RoleConsumes, "DB")}, Returns: none, Critical: true},
	}

	m := &ir.InterfaceModel{
		Library:  "sqlite3",
		Prefixes: []string{"sqlite3_"},
		HandleTypes: map[string]*ir.HandleType{
			"DB":   {Name: "DB", Release: true},
			"Stmt": {Name: "Stmt", Release: true},
		},
		Functions: make(map[string]*ir.FunctionSpec, len(fns)),
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

// SQLiteFixture opens a database, runs one statement and closes both
// handles.
const SQLiteFixture = `int LLVMFuzzerTestOneInput(const uint8_t *data, size_t size) {
    sqlite3 *db;
    sqlite3_stmt *stmt;
    if (sqlite3_open(":memory:", &db) != SQLITE_OK) {
        return 0;
    }
    sqlite3_prepare_v2(db, "SELECT 1", -1, &stmt, NULL);
    sqlite3_step(stmt);
    sqlite3_finalize(stmt);
    sqlite3_close(db);
    return 0;
}
`
