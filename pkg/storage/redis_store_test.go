package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a live server: VPNSENSE_TEST_REDIS=localhost:6379 go test ./pkg/storage
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("VPNSENSE_TEST_REDIS")
	if addr == "" {
		t.Skip("VPNSENSE_TEST_REDIS not set")
	}

	ctx := context.Background()
	client, err := DialRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	key := "vpnsense:test:" + uuid.NewString()
	defer client.Del(ctx, key)

	s := NewRedisStore(client, key, 2)
	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Save(ctx, verdict(i)))
	}

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"v3", "v2"}, ids(got))
	assert.Equal(t, 3, got[0].TotalScore)
}
