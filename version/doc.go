// Package version reports the build the service is running.
//
// Release builds stamp the variables with -ldflags:
//
//	go build -ldflags "-X github.com/fernandomesquita/stenopro/version.Version=1.4.0" ./cmd/stenopro
//
// Unstamped builds fall back to the VCS data the Go toolchain embeds.
package version
