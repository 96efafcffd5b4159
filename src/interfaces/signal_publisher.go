package interfaces

import (
	"context"

	"pair-analytics/src/models"
)

// -----------------------------------------------------------------------------
// ISignalPublisher announces signal changes to downstream consumers.
// -----------------------------------------------------------------------------

type ISignalPublisher interface {
	Publish(ctx context.Context, symbolX, symbolY string, signal models.MSignal) error
	Close() error
}
