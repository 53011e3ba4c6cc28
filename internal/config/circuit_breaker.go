package config

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Breaker names.
const (
	BreakerMySQL    = "MySQL-Mirror"
	BreakerRabbitMQ = "RabbitMQ"
)

// NewCircuitBreaker returns a breaker that opens after 3 consecutive
// failures and half-opens again after a per-dependency timeout.
func NewCircuitBreaker(name string, log *zap.Logger) *gobreaker.CircuitBreaker {
	timeout := 30 * time.Second
	if name == BreakerMySQL {
		timeout = 10 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}
