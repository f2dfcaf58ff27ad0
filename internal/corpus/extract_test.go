package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/testutil"
)

func TestExtract_JSONFixture(t *testing.T) {
	x := NewExtractor(testutil.JSONModel())
	calls := x.Extract([]byte(testutil.JSONFixture))

	want := []ir.Call{
		{Function: "cJSON_Parse", Args: []ir.Binding{ir.Lit("buf")}, Dest: "root", Line: 5},
		{Function: "cJSON_CreateObject", Args: []ir.Binding{}, Dest: "obj", Line: 6},
		{Function: "cJSON_CreateString", Args: []ir.Binding{ir.Lit(`"cJSON_Delete(x)"`)}, Dest: "$tmp1", Line: 7},
		{Function: "cJSON_AddItemToObject", Args: []ir.Binding{ir.Var("obj"), ir.Lit(`"name, with comma"`), ir.Var("$tmp1")}, Line: 7},
		{Function: "cJSON_IsObject", Args: []ir.Binding{ir.Var("root")}, Line: 8},
		{Function: "cJSON_Print", Args: []ir.Binding{ir.Var("obj")}, Line: 9},
		{Function: "cJSON_AddItemToObject", Args: []ir.Binding{ir.Var("obj"), ir.Lit(`"root"`), ir.Var("root")}, Line: 11},
		{Function: "cJSON_Delete", Args: []ir.Binding{ir.Var("obj")}, Line: 12},
	}
	assert.Equal(t, want, calls)
}

func TestExtract_Destinations(t *testing.T) {
	x := NewExtractor(testutil.JSONModel())

	tests := []struct {
		name string
		src  string
		dest string
	}{
		{"plain assignment", "a = cJSON_CreateObject();", "a"},
		{"declaration", "cJSON *a = cJSON_CreateObject();", "a"},
		{"cast", "a = (cJSON *) cJSON_CreateObject();", "a"},
		{"comparison", "if (a == cJSON_CreateObject()) {}", ""},
		{"member", "s->item = cJSON_CreateObject();", ""},
		{"field", "s.item = cJSON_CreateObject();", ""},
		{"return", "return cJSON_CreateObject();", ""},
		{"compound", "n += cJSON_CreateObject();", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := x.Extract([]byte(tt.src))
			require.Len(t, calls, 1)
			assert.Equal(t, tt.dest, calls[0].Dest)
		})
	}
}

func TestExtract_NestedFlattening(t *testing.T) {
	x := NewExtractor(testutil.JSONModel())
	src := `cJSON_Delete(cJSON_Duplicate(cJSON_Parse("{}"), 1));`

	calls := x.Extract([]byte(src))
	require.Len(t, calls, 3)

	assert.Equal(t, "cJSON_Parse", calls[0].Function)
	assert.Equal(t, "$tmp2", calls[0].Dest)
	assert.Equal(t, "cJSON_Duplicate", calls[1].Function)
	assert.Equal(t, "$tmp1", calls[1].Dest)
	assert.Equal(t, []ir.Binding{ir.Var("$tmp2"), ir.Lit("1")}, calls[1].Args)
	assert.Equal(t, "cJSON_Delete", calls[2].Function)
	assert.Equal(t, []ir.Binding{ir.Var("$tmp1")}, calls[2].Args)
}

func TestExtract_NestedInsideExpressionIsLiteral(t *testing.T) {
	x := NewExtractor(testutil.JSONModel())
	src := `a = cJSON_CreateObject(); cJSON_Print(cJSON_IsObject(a) ? a : NULL);`

	calls := x.Extract([]byte(src))
	require.Len(t, calls, 3)
	assert.Equal(t, "cJSON_IsObject", calls[1].Function)
	assert.Equal(t, "$tmp1", calls[1].Dest)
	assert.Equal(t, []ir.Binding{ir.Lit("cJSON_IsObject(a) ? a : NULL")}, calls[2].Args)
}

func TestExtract_MasksCommentsAndStrings(t *testing.T) {
	x := NewExtractor(testutil.JSONModel())
	src := "// cJSON_Delete(a);\n/* cJSON_Delete(a);\n cJSON_Print(a); */\nputs(\"cJSON_Delete(a)\");\nchar c = '(';\n#define FREE cJSON_Delete(a)\n"

	assert.Empty(t, x.Extract([]byte(src)))
}

func TestExtract_UnknownPrefixedName(t *testing.T) {
	x := NewExtractor(testutil.JSONModel())
	calls := x.Extract([]byte("cJSON_Minify(buf);\nother_call(1);\n"))

	require.Len(t, calls, 1)
	assert.Equal(t, "cJSON_Minify", calls[0].Function)
	assert.Equal(t, 1, calls[0].Line)
}

func TestExtract_NoPrefixesUsesModelNames(t *testing.T) {
	x := NewExtractor(testutil.DocModel())
	calls := x.Extract([]byte("Doc *d = Create();\nBorrow(d, 3);\nprintf(\"x\");\nDestroy(d);\n"))

	require.Len(t, calls, 3)
	assert.Equal(t, []ir.Binding{ir.Var("d"), ir.Lit("3")}, calls[1].Args)
	assert.Equal(t, 4, calls[2].Line)
}

func TestExtract_Empty(t *testing.T) {
	x := NewExtractor(testutil.JSONModel())
	assert.Empty(t, x.Extract(nil))
	assert.Empty(t, x.Extract([]byte("int main(void) { return 0; }")))
}

func TestExtract_SkipsEarlyExitBlocks(t *testing.T) {
	x := NewExtractor(testutil.JSONModel())
	src := `int LLVMFuzzerTestOneInput(const uint8_t *data, size_t size) {
    cJSON *root = cJSON_Parse(data);
    if (size < 4) {
        cJSON_Delete(root);
        return 0;
    }
    if (!cJSON_IsObject(root)) { cJSON_Delete(root); goto out; }
    else { cJSON_Print(root); }
    cJSON_IsObject(root);
    cJSON_Delete(root);
out:
    return 0;
}
`
	calls := x.Extract([]byte(src))

	var names []string
	for _, c := range calls {
		names = append(names, c.Function)
	}
	assert.Equal(t, []string{
		"cJSON_Parse", "cJSON_IsObject", "cJSON_Print", "cJSON_IsObject", "cJSON_Delete",
	}, names)
	assert.Equal(t, 10, calls[4].Line)
}

func TestExtract_KeepsBlocksWithoutExit(t *testing.T) {
	x := NewExtractor(testutil.JSONModel())
	src := "a = cJSON_CreateObject();\nif (a) {\n  cJSON_Print(a);\n  return_value = 1;\n}\nwhile (a) { cJSON_Print(a); return 0; }\n"

	calls := x.Extract([]byte(src))
	require.Len(t, calls, 3)
	assert.Equal(t, 3, calls[1].Line)
	assert.Equal(t, 6, calls[2].Line)
}

func TestExtract_OutParameters(t *testing.T) {
	x := NewExtractor(testutil.SQLiteModel())
	calls := x.Extract([]byte(testutil.SQLiteFixture))

	want := []ir.Call{
		{Function: "sqlite3_open", Args: []ir.Binding{ir.Lit(`":memory:"`), ir.Out("db")}, Line: 4},
		{Function: "sqlite3_prepare_v2", Args: []ir.Binding{
			ir.Var("db"), ir.Lit(`"SELECT 1"`), ir.Lit("-1"), ir.Out("stmt"), ir.Lit("NULL"),
		}, Line: 7},
		{Function: "sqlite3_step", Args: []ir.Binding{ir.Var("stmt")}, Line: 8},
		{Function: "sqlite3_finalize", Args: []ir.Binding{ir.Var("stmt")}, Line: 9},
		{Function: "sqlite3_close", Args: []ir.Binding{ir.Var("db")}, Line: 10},
	}
	assert.Equal(t, want, calls)
}

func TestExtract_AddressOutsideProducesParamIsLiteral(t *testing.T) {
	x := NewExtractor(testutil.SQLiteModel())
	calls := x.Extract([]byte(`sqlite3_step(&db);`))

	require.Len(t, calls, 1)
	assert.Equal(t, []ir.Binding{ir.Lit("&db")}, calls[0].Args)
}
