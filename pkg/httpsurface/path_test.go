package httpsurface

import (
	"testing"

	"github.com/mediabus/mediabus-host/pkg/runtime"
	"github.com/stretchr/testify/require"
)

func TestSplitPathRoot(t *testing.T) {
	segments, rerr := splitPath("")
	require.Nil(t, rerr)
	require.Nil(t, segments)
}

func TestSplitPathValid(t *testing.T) {
	segments, rerr := splitPath("a/b/c")
	require.Nil(t, rerr)
	require.Equal(t, []string{"a", "b", "c"}, segments)
}

func TestSplitPathRejectsTraversal(t *testing.T) {
	cases := []string{"a/../b", "..", "a/./b", "a//b", "a\\b", "../../etc/passwd"}
	for _, raw := range cases {
		_, rerr := splitPath(raw)
		require.NotNilf(t, rerr, "expected rejection for %q", raw)
		require.Equal(t, runtime.KindValidation, rerr.Kind)
	}
}

func TestValidateName(t *testing.T) {
	require.Nil(t, validateName("report.pdf"))
	require.NotNil(t, validateName(""))
	require.NotNil(t, validateName("."))
	require.NotNil(t, validateName(".."))
	require.NotNil(t, validateName("a/b"))
	require.NotNil(t, validateName("a\\b"))
}
