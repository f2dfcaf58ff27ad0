package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqscore/internal/ir"
	"github.com/roach88/seqscore/internal/testutil"
)

const docManifest = `
library: "doc"
prefixes: ["Doc"]
handle: Doc: {release: true}
function: DocCreate: {
	returns: {role: "owned", type: "Doc"}
}
function: DocDestroy: {
	params: [{name: "d", role: "consumes", type: "Doc"}]
	critical: true
}
function: DocBorrow: {
	params: [{name: "d", role: "borrows", type: "Doc"}, {name: "n", role: "value"}]
}
function: DocChild: {
	params: [{name: "d", role: "borrows", type: "Doc"}]
	returns: {role: "alias", type: "Doc", of: 0}
}
function: DocAttach: {
	params: [
		{name: "parent", role: "borrows", type: "Doc"},
		{name: "child", role: "aliases", type: "Doc", into: 0},
	]
}
`

func compile(t *testing.T, src string) (*ir.InterfaceModel, error) {
	t.Helper()
	ctx := cuecontext.New()
	return CompileManifest(ctx.CompileString(src))
}

func TestCompileManifestBasic(t *testing.T) {
	m, err := compile(t, docManifest)
	require.NoError(t, err)

	assert.Equal(t, "doc", m.Library)
	assert.Equal(t, []string{"Doc"}, m.Prefixes)
	require.Contains(t, m.HandleTypes, "Doc")
	assert.True(t, m.HandleTypes["Doc"].Release)
	assert.False(t, m.HandleTypes["Doc"].AliasRelease)
	assert.Len(t, m.Functions, 5)
	assert.NotEmpty(t, m.Hash)

	create := m.Functions["DocCreate"]
	assert.Equal(t, ir.ReturnOwned, create.Returns.Kind)
	assert.Equal(t, "Doc", create.Returns.Type)
	assert.Empty(t, create.Params)

	destroy := m.Functions["DocDestroy"]
	assert.True(t, destroy.Critical)
	require.Len(t, destroy.Params, 1)
	assert.Equal(t, ir.RoleConsumes, destroy.Params[0].Role)

	borrow := m.Functions["DocBorrow"]
	require.Len(t, borrow.Params, 2)
	assert.Equal(t, ir.RoleValue, borrow.Params[1].Role)
	assert.Equal(t, ir.ReturnNone, borrow.Returns.Kind)

	child := m.Functions["DocChild"]
	assert.Equal(t, ir.ReturnAlias, child.Returns.Kind)
	assert.Equal(t, 0, child.Returns.Of)

	attach := m.Functions["DocAttach"]
	assert.Equal(t, ir.RoleAliases, attach.Params[1].Role)
	assert.Equal(t, 0, attach.Params[1].Into)
}

func TestCompileManifestHashDeterministic(t *testing.T) {
	a, err := compile(t, docManifest)
	require.NoError(t, err)
	b, err := compile(t, docManifest)
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestCompileManifestLongReturnSpelling(t *testing.T) {
	m, err := compile(t, `
		library: "x"
		handle: H: {}
		function: Make: returns: {role: "produces-owned", type: "H"}
	`)
	require.NoError(t, err)
	assert.Equal(t, ir.ReturnOwned, m.Functions["Make"].Returns.Kind)
}

func TestCompileManifestErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "missing library",
			src:   `function: F: {}`,
			field: "library",
		},
		{
			name:  "no functions",
			src:   `library: "x"`,
			field: "function",
		},
		{
			name: "bad role",
			src: `library: "x"
				function: F: params: [{role: "steals"}]`,
			field: "function.F.params[0].role",
		},
		{
			name: "handle param without type",
			src: `library: "x"
				function: F: params: [{role: "borrows"}]`,
			field: "function.F.params[0].type",
		},
		{
			name: "aliases without into",
			src: `library: "x"
				handle: H: {}
				function: F: params: [{role: "borrows", type: "H"}, {role: "aliases", type: "H"}]`,
			field: "function.F.params[1].into",
		},
		{
			name: "alias of out of range",
			src: `library: "x"
				handle: H: {}
				function: F: returns: {role: "alias", type: "H", of: 2}`,
			field: "function.F.returns.of",
		},
		{
			name: "bad return role",
			src: `library: "x"
				handle: H: {}
				function: F: returns: {role: "stolen", type: "H"}`,
			field: "function.F.returns.role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.src)
			require.Error(t, err)
			require.True(t, IsParseError(err), "expected ParseError, got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestCompileManifestSyntaxError(t *testing.T) {
	_, err := compile(t, `library: "x" function: {`)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestCompileManifestUnknownHandleType(t *testing.T) {
	_, err := compile(t, `
		library: "x"
		handle: Doc: {}
		function: Free: params: [{role: "consumes", type: "Png"}]
	`)
	require.Error(t, err)
	assert.True(t, IsUnknownHandleType(err))
	assert.Contains(t, err.Error(), `"Png"`)
	assert.False(t, IsParseError(err))
}

func TestCompileManifestUnknownReturnType(t *testing.T) {
	_, err := compile(t, `
		library: "x"
		function: Make: returns: {role: "owned", type: "Ghost"}
	`)
	require.Error(t, err)
	assert.True(t, IsUnknownHandleType(err))
}

func TestLoadManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.cue")
	require.NoError(t, os.WriteFile(path, []byte(docManifest), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "doc", m.Library)
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.False(t, IsParseError(err))
}

func TestLoadManifestSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte("library: \"x\"\nfunction: {\n"), 0o644))

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestCompileManifestProducesParam(t *testing.T) {
	m, err := compile(t, testutil.SQLiteManifest)
	require.NoError(t, err)

	open := m.Functions["sqlite3_open"]
	require.Len(t, open.Params, 2)
	assert.Equal(t, ir.RoleProduces, open.Params[1].Role)
	assert.Equal(t, "DB", open.Params[1].Type)
	assert.Equal(t, ir.ReturnNone, open.Returns.Kind)
	assert.Equal(t, testutil.SQLiteModel().Hash, m.Hash)
}

func TestCompileManifestProducesParamNeedsType(t *testing.T) {
	_, err := compile(t, `
		library: "x"
		handle: H: {}
		function: Open: params: [{name: "h", role: "produces"}]
	`)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "function.Open.params[0].type", pe.Field)
}
