package infra

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeed(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	src := "# redirects\n" +
		"example.com/docs/\t000:t:f:https://docs.example.org\n" +
		"\n" +
		"example.com\t001:f:t:f:https://www.example.com\r\n"

	n, err := LoadSeed(ctx, kv, strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, found, err := kv.Get(ctx, "example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "001:f:t:f:https://www.example.com", string(v))
}

func TestLoadSeed_RejectsLineWithoutTab(t *testing.T) {
	n, err := LoadSeed(context.Background(), NewMemoryKV(), strings.NewReader("ok\tv\nbroken line\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, n)
}
