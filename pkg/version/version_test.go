package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Run("Should prefer injected values", func(t *testing.T) {
		prev := Version
		Version = "v9.9.9"
		t.Cleanup(func() { Version = prev })
		assert.Equal(t, "v9.9.9", Get().Version)
	})

	t.Run("Should always return non-empty fields", func(t *testing.T) {
		info := Get()
		assert.NotEmpty(t, info.Version)
		assert.NotEmpty(t, info.CommitHash)
		assert.NotEmpty(t, info.BuildDate)
	})
}
