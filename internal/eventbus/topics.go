package eventbus

import "strings"

// Topic names used by the dispatch core.
const (
	AdminTopic       = "admin"
	CourierPoolTopic = "couriers"

	businessPrefix = "business:"
	courierPrefix  = "courier:"
	customerPrefix = "customer:"
)

// BusinessTopic is the channel of a single business.
func BusinessTopic(id string) string { return businessPrefix + id }

// CourierTopic is the channel of a single courier.
func CourierTopic(id string) string { return courierPrefix + id }

// CustomerTopic is the channel of a single customer.
func CustomerTopic(id string) string { return customerPrefix + id }

// KnownTopic reports whether topic has one of the recognised shapes.
func KnownTopic(topic string) bool {
	switch topic {
	case AdminTopic, CourierPoolTopic:
		return true
	}
	for _, p := range []string{businessPrefix, courierPrefix, customerPrefix} {
		if rest, ok := strings.CutPrefix(topic, p); ok {
			return rest != ""
		}
	}
	return false
}
