package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate(PrefixItem)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixItem, PrefixSSE, "custom"} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			assert.Len(t, id, len(prefix)+1+21)

			// NanoID uses A-Za-z0-9_-
			for _, char := range strings.TrimPrefix(id, prefix+"-") {
				assert.True(t,
					(char >= 'A' && char <= 'Z') ||
						(char >= 'a' && char <= 'z') ||
						(char >= '0' && char <= '9') ||
						char == '_' || char == '-',
					"Character %c should be URL-safe", char)
			}
		})
	}
}

func TestMustGenerate_Format(t *testing.T) {
	id := MustGenerate(PrefixItem)

	assert.True(t, strings.HasPrefix(id, "item-"))
	assert.Equal(t, len("item")+1+21, len(id))
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix(MustGenerate(PrefixItem), PrefixItem))
	assert.False(t, HasPrefix(MustGenerate(PrefixSSE), PrefixItem))
	assert.False(t, HasPrefix("item-short", PrefixItem))
	assert.False(t, HasPrefix("nonexistent-id", PrefixItem))
}

func BenchmarkGenerate(b *testing.B) {
	for b.Loop() {
		_, _ = Generate("bench")
	}
}
