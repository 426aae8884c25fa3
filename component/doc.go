// Package component defines the lifecycle contract for infrastructure:
// Start, Stop and Health. The bootstrap package starts registered components
// in order, stops them in reverse and serves their health on /readyz.
package component
