package locale

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T, overrideFile string) *Catalog {
	t.Helper()
	logger := zerolog.Nop()
	c, err := New(overrideFile, &logger)
	require.NoError(t, err)
	return c
}

func TestCatalog_Render(t *testing.T) {
	c := newTestCatalog(t, "")

	t.Run("substitutes placeholders", func(t *testing.T) {
		got := c.Render("general.offline notifications more", map[string]string{"count": "10"})
		assert.Equal(t, "You have 10 more notifications waiting. Reconnect to see them.", got)
	})

	t.Run("keeps placeholders without value", func(t *testing.T) {
		got := c.Render("watchlist.listing ended", map[string]string{"listing": "Diamond Sword"})
		assert.Equal(t, "A listing you were watching has ended: Diamond Sword (%{reason}).", got)
	})

	t.Run("no placeholders", func(t *testing.T) {
		assert.Equal(t,
			"This listing is no longer available and was removed from your watchlist.",
			c.Render("watchlist.removed", nil))
	})

	t.Run("unknown key renders the key", func(t *testing.T) {
		assert.Equal(t, "no.such key", c.Render("no.such key", map[string]string{"a": "b"}))
	})
}

func TestCatalog_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	content := "watchlist:\n  removed: \"Gone!\"\nextra:\n  nested:\n    hello: \"Hi %{name}\"\n  number: 42\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c := newTestCatalog(t, path)

	assert.Equal(t, "Gone!", c.Render("watchlist.removed", nil))
	assert.Equal(t, "Hi Ann", c.Render("extra.nested.hello", map[string]string{"name": "Ann"}))
	assert.Equal(t, "42", c.Render("extra.number", nil))
	assert.True(t, c.Has("general.offline notifications more"), "defaults survive the override")
}

func TestNew_Errors(t *testing.T) {
	logger := zerolog.Nop()

	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"), &logger)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("a: [unclosed"), 0o600))
	_, err = New(bad, &logger)
	assert.Error(t, err)
}
