package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wms-platform/transfer-service/internal/domain"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "transfer:session:ORD-1:SKU-1", sessionKey("ORD-1", "SKU-1"))
}

func TestExpiry(t *testing.T) {
	repo := NewPackingSessionRepository(nil, 30*time.Minute)

	session := domain.NewPackingSession("ORD-1", "SKU-1")
	assert.Equal(t, 30*time.Minute, repo.expiry(session))

	session.State = domain.SessionReadyForDestination
	session.DestinationSlotID = "B-2-2"
	assert.Zero(t, repo.expiry(session), "reserved slots must not leak through expiry")
}
