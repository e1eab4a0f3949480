package handlers

import (
	"context"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/hub"
	"delivery-dispatch/internal/service/lifecycle"
	"delivery-dispatch/internal/service/orders"
	"delivery-dispatch/internal/service/tracking"
)

type orderUsecase interface {
	Create(ctx context.Context, actor domain.Actor, in orders.NewOrder) (*domain.Order, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error)
	List(ctx context.Context, actor domain.Actor, statuses []domain.OrderStatus, limit int) ([]domain.Order, error)
}

type transitionUsecase interface {
	RequestTransition(ctx context.Context, req lifecycle.Request) (*domain.Order, error)
}

type claimUsecase interface {
	ClaimAs(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
}

type dispatchUsecase interface {
	NearbyBusinesses(ctx context.Context, lat, lng, radiusMeters float64) ([]domain.NearbyBusiness, error)
	AvailableOrders(ctx context.Context, businessID string) ([]domain.AvailableOrder, error)
}

type trackingUsecase interface {
	ReportLocation(ctx context.Context, actor domain.Actor, r tracking.Report) (domain.LocationSample, error)
	GetLocation(ctx context.Context, requester domain.Actor, courierID string) (*domain.LocationSample, error)
}

type sessionHub interface {
	Open(hs hub.Handshake, actor *domain.Actor, t hub.Transport) (*hub.Session, error)
	Serve(ctx context.Context, s *hub.Session) error
	HandleFrame(s *hub.Session, data []byte) error
	Close(s *hub.Session, reason string)
	Config() hub.Config
}
