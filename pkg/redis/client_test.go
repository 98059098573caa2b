package redis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	require.Equal(t, "console:confirm:abc", Key("confirm", "abc"))
	require.Equal(t, "console:realtime:clients", Key("realtime", "clients"))
}
