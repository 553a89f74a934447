package sampler

import "context"

// Service is the external model-fitting capability: formula, prior and
// aggregated data in, posterior draws and diagnostics out. Implemented over
// HTTP by Client; tests substitute stubs. A Fit call blocks until the service
// returns or fails; there is no cancellation beyond the context.
type Service interface {
	Fit(ctx context.Context, req FitRequest) (*FitResponse, error)
}
