package broker

import "context"

// PaperBroker is the Real adapter pointed at the brokerage's simulated
// endpoint (§4.9 "Paper: same API as Real, pointed at the brokerage's
// simulated endpoint") — literally the same REST/websocket/token/circuit-
// breaker machinery, so it is implemented as RealBroker under a distinct
// constructor rather than a duplicated type.
type PaperBroker struct {
	*RealBroker
}

// NewPaperBroker builds a PaperBroker from cfg, which the caller (the
// Runner, from config.Broker) must already have pointed at the brokerage's
// virtual/simulated base and websocket URLs.
func NewPaperBroker(ctx context.Context, cfg RealConfig, retry *RetryPolicy) *PaperBroker {
	return &PaperBroker{RealBroker: NewRealBroker(ctx, cfg, retry)}
}
