package confirm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	p, err := s.Request(ctx, "clients", "CL001")
	require.NoError(t, err)
	require.NotEmpty(t, p.Token)

	require.NoError(t, s.Consume(ctx, p.Token, "clients", "CL001"))
	require.ErrorIs(t, s.Consume(ctx, p.Token, "clients", "CL001"), ErrInvalidToken)
}

func TestMemoryStore_BoundToRow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	p, _ := s.Request(ctx, "clients", "CL001")

	require.ErrorIs(t, s.Consume(ctx, p.Token, "clients", "CL002"), ErrInvalidToken)
	require.ErrorIs(t, s.Consume(ctx, p.Token, "projects", "CL001"), ErrInvalidToken)
	require.NoError(t, s.Consume(ctx, p.Token, "clients", "CL001"))
}

func TestMemoryStore_CheckDoesNotRedeem(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	p, _ := s.Request(ctx, "employees", "EMP004")

	require.NoError(t, s.Check(ctx, p.Token, "employees", "EMP004"))
	require.NoError(t, s.Check(ctx, p.Token, "employees", "EMP004"))
	require.ErrorIs(t, s.Check(ctx, p.Token, "employees", "EMP005"), ErrInvalidToken)
	require.ErrorIs(t, s.Check(ctx, "", "employees", "EMP004"), ErrInvalidToken)
	require.NoError(t, s.Consume(ctx, p.Token, "employees", "EMP004"))
	require.ErrorIs(t, s.Check(ctx, p.Token, "employees", "EMP004"), ErrInvalidToken)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(30 * time.Second)
	s.Now = func() time.Time { return now }
	p, _ := s.Request(ctx, "teams", "4")

	now = now.Add(31 * time.Second)
	require.ErrorIs(t, s.Consume(ctx, p.Token, "teams", "4"), ErrInvalidToken)
}

func TestMemoryStore_Cancel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	p, _ := s.Request(ctx, "roles", "2")

	require.NoError(t, s.Cancel(ctx, p.Token))
	require.ErrorIs(t, s.Consume(ctx, p.Token, "roles", "2"), ErrInvalidToken)
}
