package v2

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yever/Paket/auth"
)

func TestSelectorBindsOnSuccess(t *testing.T) {
	s := NewSelector()

	versions, served, err := s.Guard(context.Background(), nil, "https://feed.example", VariantFilter,
		func(ctx context.Context) ([]string, bool, error) {
			return []string{"1.0.0"}, true, nil
		})
	require.NoError(t, err)
	require.True(t, served)
	assert.Equal(t, []string{"1.0.0"}, versions)

	bound, ok := s.Bound(nil, "https://feed.example")
	require.True(t, ok)
	assert.Equal(t, VariantFilter, bound)
}

func TestSelectorSkipsOtherVariantsOnceBound(t *testing.T) {
	s := NewSelector()

	_, _, _ = s.Guard(context.Background(), nil, "https://feed.example", VariantFilter,
		func(ctx context.Context) ([]string, bool, error) {
			return []string{"1.0.0"}, true, nil
		})

	called := false
	_, served, err := s.Guard(context.Background(), nil, "https://feed.example", VariantJSON,
		func(ctx context.Context) ([]string, bool, error) {
			called = true
			return []string{"2.0.0"}, true, nil
		})
	require.NoError(t, err)
	assert.False(t, served, "other variants report not-served without calling")
	assert.False(t, called, "no request may be issued for a skipped variant")

	// The bound variant still runs.
	_, served, err = s.Guard(context.Background(), nil, "https://feed.example", VariantFilter,
		func(ctx context.Context) ([]string, bool, error) {
			return []string{"1.0.1"}, true, nil
		})
	require.NoError(t, err)
	assert.True(t, served)
}

func TestSelectorNotServedDoesNotBind(t *testing.T) {
	s := NewSelector()

	_, _, _ = s.Guard(context.Background(), nil, "https://feed.example", VariantFilter,
		func(ctx context.Context) ([]string, bool, error) {
			return nil, false, nil
		})

	if _, ok := s.Bound(nil, "https://feed.example"); ok {
		t.Fatal("not-served outcome must not bind the endpoint")
	}

	// A later variant can still bind.
	_, served, _ := s.Guard(context.Background(), nil, "https://feed.example", VariantJSON,
		func(ctx context.Context) ([]string, bool, error) {
			return []string{"1.0.0"}, true, nil
		})
	assert.True(t, served)
	bound, _ := s.Bound(nil, "https://feed.example")
	assert.Equal(t, VariantJSON, bound)
}

func TestSelectorKeyedByCredentialsAndURL(t *testing.T) {
	s := NewSelector()
	creds := auth.NewToken("secret")

	_, _, _ = s.Guard(context.Background(), nil, "https://feed.example", VariantFilter,
		func(ctx context.Context) ([]string, bool, error) {
			return []string{"1.0.0"}, true, nil
		})

	// A different credential on the same URL is a different endpoint.
	called := false
	_, served, _ := s.Guard(context.Background(), creds, "https://feed.example", VariantJSON,
		func(ctx context.Context) ([]string, bool, error) {
			called = true
			return []string{"1.0.0"}, true, nil
		})
	assert.True(t, called)
	assert.True(t, served)
}

func TestSelectorConcurrentGuards(t *testing.T) {
	s := NewSelector()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Guard(context.Background(), nil, "https://feed.example", VariantFilter,
				func(ctx context.Context) ([]string, bool, error) {
					return []string{"1.0.0"}, true, nil
				})
		}()
	}
	wg.Wait()

	bound, ok := s.Bound(nil, "https://feed.example")
	require.True(t, ok)
	assert.Equal(t, VariantFilter, bound)
}
