package config

import (
	"time"

	"github.com/shopspring/decimal"
)

const defaultPort = 8080

const defaultStorage = StorageMemory

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "dispatch_db",
}

var defaultDispatch = Dispatch{
	OperationTimeout: 3 * time.Second,
	DeliveryFee:      decimal.RequireFromString("5.00"),
	MaxRadiusMeters:  20000,
}

var defaultHub = Hub{
	HeartbeatInterval: 15 * time.Second,
	Grace:             45 * time.Second,
	QueueSize:         64,
	WriteTimeout:      5 * time.Second,
}

var defaultTracking = Tracking{
	Retention: 10 * time.Minute,
}

var defaultReadRetry = ReadRetry{
	MaxAttempts: 4,
	BaseDelay:   50 * time.Millisecond,
	MaxDelay:    400 * time.Millisecond,
}

var defaultKafka = Kafka{
	GroupID:     "dispatch-intake",
	IntakeTopic: "orders.intake",
	EventsTopic: "dispatch.events",
}

var defaultAMQP = AMQP{
	Exchange: "dispatch.events",
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       20,
	Burst:      40,
	TTL:        5 * time.Minute,
	MaxBuckets: 100000,
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultDispatch returns the default dispatch settings.
func DefaultDispatch() Dispatch {
	return defaultDispatch
}

// DefaultHub returns the default notification hub settings.
func DefaultHub() Hub {
	return defaultHub
}

// DefaultReadRetry returns the default read retry settings.
func DefaultReadRetry() ReadRetry {
	return defaultReadRetry
}

// DefaultRateLimit returns the default rate limit settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}
