package orders

import (
	"context"
	"strings"
)

type actionFunc func(context.Context, IntakeEvent) error

// intakeAliases maps the spellings the ordering platform has used over time
// onto the canonical event types.
var intakeAliases = map[string]string{
	EventPlaced:      EventPlaced,
	"order.created":  EventPlaced,
	EventCancelled:   EventCancelled,
	"order.canceled": EventCancelled,
}

// CanonicalIntakeType normalizes t and reports whether the processor handles it.
func CanonicalIntakeType(t string) (string, bool) {
	c, ok := intakeAliases[strings.ToLower(strings.TrimSpace(t))]
	return c, ok
}

type actionFactory struct {
	byType map[string]actionFunc
}

func newActionFactory(onPlaced, onCancelled actionFunc) *actionFactory {
	return &actionFactory{byType: map[string]actionFunc{
		EventPlaced:    onPlaced,
		EventCancelled: onCancelled,
	}}
}

func (f *actionFactory) get(eventType string) (actionFunc, bool) {
	c, ok := CanonicalIntakeType(eventType)
	if !ok {
		return nil, false
	}
	fn, ok := f.byType[c]
	return fn, ok
}
