package usecase

import (
	"fmt"

	"github.com/google/uuid"
)

// Priority buckets keep the broker topology small: subscribers bind three
// queues per tenant instead of ten.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

func PriorityBucket(priority int) string {
	switch {
	case priority >= 8:
		return PriorityHigh
	case priority >= 4:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// OutboundRoutingKey scopes outbound commands by tenant and priority:
// tenant.<tenantId>.priority.<low|normal|high>.
func OutboundRoutingKey(companyID uuid.UUID, priority int) string {
	return fmt.Sprintf("tenant.%s.priority.%s", companyID, PriorityBucket(priority))
}

// InboundRoutingKey scopes republished canonical events by tenant so each
// tenant's workers subscribe to their own traffic only.
func InboundRoutingKey(companyID uuid.UUID) string {
	return fmt.Sprintf("tenant.%s.events", companyID)
}
