package secret

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raglens/raglens/internal/secret/env"
)

type countingSource struct {
	value string
	calls int
	err   error
}

func (s *countingSource) Get(ctx context.Context, path string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.value + ":" + path, nil
}

func (s *countingSource) Close() error { return nil }

func TestResolverEnvScheme(t *testing.T) {
	t.Setenv("RAGLENS_TEST_KEY", "sk-12345")

	r := NewResolver()
	r.Register("env", env.New())

	val, err := r.Resolve(context.Background(), "env://RAGLENS_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-12345", val)
}

func TestResolverBareValuePassthrough(t *testing.T) {
	r := NewResolver()

	val, err := r.Resolve(context.Background(), "literal-key")
	require.NoError(t, err)
	assert.Equal(t, "literal-key", val)
}

func TestResolverUnknownScheme(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve(context.Background(), "vault://secret/keys#openai")
	assert.Error(t, err)
}

func TestResolverMissingEnvVar(t *testing.T) {
	r := NewResolver()
	r.Register("env", env.New())

	_, err := r.Resolve(context.Background(), "env://RAGLENS_DEFINITELY_UNSET")
	assert.Error(t, err)
}

func TestCachedSource(t *testing.T) {
	inner := &countingSource{value: "secret"}
	cached := NewCachedSource(inner, time.Hour)

	for i := 0; i < 3; i++ {
		val, err := cached.Get(context.Background(), "path")
		require.NoError(t, err)
		assert.Equal(t, "secret:path", val)
	}
	assert.Equal(t, 1, inner.calls)

	// Different paths are cached independently.
	_, err := cached.Get(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	inner := &countingSource{err: fmt.Errorf("vault sealed")}
	cached := NewCachedSource(inner, time.Hour)

	_, err := cached.Get(context.Background(), "p")
	require.Error(t, err)
	_, err = cached.Get(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
