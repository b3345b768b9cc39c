package palloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetFreeRoundTrip(t *testing.T) {
	p := New(4)
	require.Equal(t, 4, p.NumFree())
	pg, ok := p.Get(User)
	require.True(t, ok)
	require.Equal(t, 3, p.NumFree())
	p.Free(pg)
	require.Equal(t, 4, p.NumFree())
}

func TestExhaustion(t *testing.T) {
	p := New(2)
	_, ok1 := p.Get(User)
	_, ok2 := p.Get(User)
	_, ok3 := p.Get(User)
	require.True(t, ok1)
	require.True(t, ok2)
	require.False(t, ok3)
}
