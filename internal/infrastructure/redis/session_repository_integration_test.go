//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wms-platform/transfer-service/internal/domain"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestPackingSessionRepository_Integration(t *testing.T) {
	ctx := context.Background()
	client, err := Connect(ctx, startRedis(t))
	require.NoError(t, err)
	defer client.Close()

	repo := NewPackingSessionRepository(client, time.Minute)

	missing, err := repo.Get(ctx, "ORD-1", "SKU-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	session := domain.NewPackingSession("ORD-1", "SKU-1")
	require.NoError(t, session.AddLine(domain.PackedLine{SourceKind: domain.SourcePallet, SourceID: "PLT-1", Quantity: 12}, 40))
	require.NoError(t, session.AssignCarrier("EMP-1"))
	require.NoError(t, repo.Save(ctx, session))

	loaded, err := repo.Get(ctx, "ORD-1", "SKU-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, domain.SessionReadyForCarrier, loaded.State)
	assert.Equal(t, 12, loaded.TotalPacked())
	assert.Equal(t, "EMP-1", loaded.CarrierID)

	ttl, err := client.TTL(ctx, sessionKey("ORD-1", "SKU-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, repo.Delete(ctx, "ORD-1", "SKU-1"))
	loaded, err = repo.Get(ctx, "ORD-1", "SKU-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
