// Package resilience provides the failure-handling primitives used around
// outbound provider calls and background work: retry with exponential
// backoff, a circuit breaker, a token-bucket rate limiter and a bulkhead that
// bounds concurrency.
//
// Each primitive is configured by a struct with mapstructure tags so it can be
// set from the service configuration file.
package resilience
