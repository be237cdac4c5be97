package coderunner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeNativeWrapsBareExpression(t *testing.T) {
	t.Parallel()
	got := normalizeNative(`println!("hi")`)
	require.Equal(t, `fn main() { println!("hi") }`, got)
}

func TestNormalizeNativeLeavesExistingMainUntouched(t *testing.T) {
	t.Parallel()
	src := `fn main() { println!("hi"); }`
	got := normalizeNative(src)
	require.Equal(t, src, got)
}

func TestNormalizeNativeStripsLineComments(t *testing.T) {
	t.Parallel()
	got := normalizeNative("let x = 1; // a comment\tlet y = 2;")
	require.NotContains(t, got, "a comment")
	require.Contains(t, got, "let x = 1;")
	require.Contains(t, got, "let y = 2;")
}

func TestNormalizeNativeSplitsOnTabs(t *testing.T) {
	t.Parallel()
	got := normalizeNative("let x = 1;\tlet y = 2;")
	require.Equal(t, "fn main() { let x = 1; let y = 2; }", got)
}

func TestNormalizeNativeIsIdempotent(t *testing.T) {
	t.Parallel()
	once := normalizeNative(`println!("hi")`)
	twice := normalizeNative(once)
	require.Equal(t, once, twice)
}
