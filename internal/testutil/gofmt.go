package testutil

import (
	"go/format"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertFormatted fails for every named Go file that gofmt would change.
func AssertFormatted(t *testing.T, paths ...string) {
	t.Helper()
	for _, path := range paths {
		src, err := os.ReadFile(path)
		require.NoError(t, err)
		got, err := format.Source(src)
		require.NoError(t, err, path)
		assert.Equal(t, string(got), string(src), "%s is not gofmt-formatted", path)
	}
}
