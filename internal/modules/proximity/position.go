package proximity

import (
	"context"

	"quartier-geo/internal/models"
)

// PositionSource is the platform geolocation boundary for one client
// session: a continuous subscription plus a one-shot request, mirroring
// watchPosition/getCurrentPosition on the device side.
type PositionSource interface {
	// Subscribe begins continuous position updates and returns the
	// subscription handle. onError receives delivery failures (permission
	// revoked, feed closed) without ending the subscription.
	Subscribe(onUpdate func(models.Position), onError func(error)) (string, error)

	// Unsubscribe releases the subscription. Unknown handles are ignored.
	Unsubscribe(handle string)

	// Request performs a one-shot position acquisition bounded by ctx.
	Request(ctx context.Context) (models.Position, error)
}
