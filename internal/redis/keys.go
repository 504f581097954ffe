package redisx

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "busgo:v1"

func KeyTripSummary(tripID uuid.UUID) string {
	return fmt.Sprintf("%s:trip:%s:summary", ns, tripID)
}

func KeyTripSeats(tripID uuid.UUID) string {
	return fmt.Sprintf("%s:trip:%s:seats", ns, tripID)
}

func KeyTripList() string {
	return ns + ":trips:list"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelTripsChanged() string {
	return ns + ":trips:changed"
}
