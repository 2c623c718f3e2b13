package usecase

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPriorityBucket(t *testing.T) {
	assert.Equal(t, PriorityLow, PriorityBucket(0))
	assert.Equal(t, PriorityLow, PriorityBucket(3))
	assert.Equal(t, PriorityNormal, PriorityBucket(4))
	assert.Equal(t, PriorityNormal, PriorityBucket(7))
	assert.Equal(t, PriorityHigh, PriorityBucket(8))
	assert.Equal(t, PriorityHigh, PriorityBucket(10))
	assert.Equal(t, PriorityLow, PriorityBucket(-1))
}

func TestRoutingKeys(t *testing.T) {
	companyID := uuid.New()
	assert.Equal(t, fmt.Sprintf("tenant.%s.priority.high", companyID), OutboundRoutingKey(companyID, 9))
	assert.Equal(t, fmt.Sprintf("tenant.%s.priority.low", companyID), OutboundRoutingKey(companyID, 0))
	assert.Equal(t, fmt.Sprintf("tenant.%s.events", companyID), InboundRoutingKey(companyID))
}
