package orders

import (
	"context"
	"errors"
	"fmt"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/service/lifecycle"
)

// ErrRejected marks events that can never succeed and must not be redelivered.
var ErrRejected = errors.New("intake event rejected")

// Processor applies intake events to the dispatch core.
type Processor struct {
	creator     Creator
	transitions Transitioner
	logger      logx.Logger
	factory     *actionFactory
}

// NewProcessor creates a Processor.
func NewProcessor(creator Creator, transitions Transitioner, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	p := &Processor{
		creator:     creator,
		transitions: transitions,
		logger:      logger,
	}
	p.factory = newActionFactory(p.onPlaced, p.onCancelled)
	return p
}

// Handle processes a single IntakeEvent. Unknown types are ignored. Events rejected by
// validation or business rules return an error wrapping ErrRejected; any other error is
// transient and the event should be redelivered.
func (p *Processor) Handle(ctx context.Context, e IntakeEvent) error {
	if p.factory == nil {
		return nil
	}
	fn, ok := p.factory.get(e.Type)
	if !ok {
		p.logger.Debug("intake event ignored",
			logx.String("event_id", e.EventID),
			logx.String("type", e.Type),
		)
		return nil
	}
	return fn(ctx, e)
}

func (p *Processor) onPlaced(ctx context.Context, e IntakeEvent) error {
	in := e.Order
	if in.RequestID == "" {
		in.RequestID = e.EventID
	}
	actor := domain.Actor{Role: domain.RoleCustomer, ID: in.CustomerID}

	o, err := p.creator.Create(ctx, actor, in)
	if err != nil {
		if permanent(err) {
			p.logger.Warn("intake order rejected",
				logx.String("event_id", e.EventID),
				logx.Err(err),
			)
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
		return err
	}
	p.logger.Info("intake order accepted",
		logx.String("event_id", e.EventID),
		logx.OrderID(o.ID),
	)
	return nil
}

func (p *Processor) onCancelled(ctx context.Context, e IntakeEvent) error {
	_, err := p.transitions.RequestTransition(ctx, lifecycle.Request{
		OrderID: e.OrderID,
		Actor:   domain.Actor{Role: domain.RoleAdmin},
		From:    domain.OrderStatus(e.FromStatus),
		To:      domain.StatusCancelled,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrNotFound):
		// the order has already moved on; nothing left to cancel
		p.logger.Info("intake cancel skipped",
			logx.String("event_id", e.EventID),
			logx.OrderID(e.OrderID),
			logx.Err(err),
		)
		return nil
	case permanent(err):
		return fmt.Errorf("%w: %w", ErrRejected, err)
	default:
		return err
	}
}

func permanent(err error) bool {
	return errors.Is(err, apperr.ErrInvalid) ||
		errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrConflict) ||
		errors.Is(err, apperr.ErrForbidden)
}
