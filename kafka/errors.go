package kafka

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"
)

// Retryable reports whether a failed write is worth another attempt: the
// broker said the condition is temporary, or the network failed before the
// broker answered. Cancellation and deadline expiry are final.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}

	var werr kafkago.WriteErrors
	if errors.As(err, &werr) {
		for _, e := range werr {
			if e != nil && !Retryable(e) {
				return false
			}
		}
		return werr.Count() > 0
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var oerr *net.OpError
	if errors.As(err, &oerr) {
		return true
	}

	// kafka-go wraps some dial failures in plain strings.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"connection refused", "broken pipe", "i/o timeout", "no route to host"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
