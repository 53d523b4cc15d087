package toolerr

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestNewUsesCatalogGuidance(t *testing.T) {
	text := resultText(t, New(InvalidHandle, ""))
	require.Contains(t, text, "INVALID_HANDLE: dataset handle not found or expired")
	require.Contains(t, text, "| nextSteps: Reopen the dataset via open_dataset")
}

func TestNewMessageOverride(t *testing.T) {
	text := resultText(t, New(Validation, "states must be a list"))
	require.Contains(t, text, "VALIDATION: states must be a list")
	require.Contains(t, text, "nextSteps:")
}

func TestWrapf(t *testing.T) {
	text := resultText(t, Wrapf(NotFound, "table %q not in bundle", "demographic"))
	require.Contains(t, text, `NOT_FOUND: table "demographic" not in bundle`)
}

func TestFromTextKnownCode(t *testing.T) {
	text := resultText(t, FromText("CURSOR_INVALID: failed to decode cursor"))
	require.Contains(t, text, "CURSOR_INVALID: failed to decode cursor")
	require.Contains(t, text, "Restart pagination from the first page")
}

func TestFromTextUnknownCode(t *testing.T) {
	text := resultText(t, FromText("WEIRD: something odd"))
	require.Equal(t, "WEIRD: something odd", text)
}

func TestFromTextEmptyDefaultsToValidation(t *testing.T) {
	text := resultText(t, FromText("  "))
	require.Contains(t, text, "VALIDATION: invalid inputs")
}
