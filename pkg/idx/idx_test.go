package idx_test

import (
	"testing"

	"github.com/max950509/web-admin-fullstack-template/pkg/idx"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestNewIsCanonicalULID(t *testing.T) {
	id := idx.New()
	parsed, err := ulid.ParseStrict(id.String())
	require.NoError(t, err)
	require.Equal(t, id.String(), parsed.String())
}

func TestNewIsMonotonic(t *testing.T) {
	prev := idx.New()
	for range 1000 {
		next := idx.New()
		require.Less(t, prev.String(), next.String())
		prev = next
	}
}
