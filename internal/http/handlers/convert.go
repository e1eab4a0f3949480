package handlers

import (
	"strings"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/service/orders"
	"delivery-dispatch/internal/service/tracking"
)

func (r createOrderRequest) toModel(actor domain.Actor) orders.NewOrder {
	customerID := strings.TrimSpace(r.CustomerID)
	if customerID == "" && actor.Role == domain.RoleCustomer {
		customerID = actor.ID
	}
	items := make([]orders.NewItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, orders.NewItem{
			ProductID: strings.TrimSpace(it.ProductID),
			Title:     strings.TrimSpace(it.Title),
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return orders.NewOrder{
		BusinessID:    strings.TrimSpace(r.BusinessID),
		CustomerID:    customerID,
		CustomerName:  strings.TrimSpace(r.CustomerName),
		Items:         items,
		AddressText:   strings.TrimSpace(r.Address.Text),
		Lat:           r.Address.Lat,
		Lng:           r.Address.Lng,
		PaymentMethod: strings.TrimSpace(r.PaymentMethod),
		CouponCode:    strings.TrimSpace(r.CouponCode),
		Discount:      r.Discount,
		Notes:         strings.TrimSpace(r.Notes),
		RequestID:     strings.TrimSpace(r.RequestID),
	}
}

func (r locationRequest) toModel(courierID string) tracking.Report {
	return tracking.Report{
		CourierID:       courierID,
		Lat:             r.Lat,
		Lng:             r.Lng,
		Heading:         r.Heading,
		Speed:           r.Speed,
		Accuracy:        r.Accuracy,
		ClientTimestamp: r.ClientTimestamp,
	}
}

func addressToResponse(a domain.DeliveryAddress) addressDTO {
	return addressDTO{Text: a.Text, Lat: a.Lat, Lng: a.Lng}
}

func orderToResponse(o domain.Order) orderDTO {
	items := make([]itemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemDTO{
			ProductID: it.ProductID,
			Title:     it.Title,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return orderDTO{
		ID:                o.ID,
		Code:              o.Code,
		BusinessID:        o.BusinessID,
		CustomerID:        o.CustomerID,
		CustomerName:      o.CustomerName,
		Items:             items,
		Address:           addressToResponse(o.Address),
		PaymentMethod:     string(o.PaymentMethod),
		Subtotal:          o.Subtotal.StringFixed(2),
		DeliveryFee:       o.DeliveryFee.StringFixed(2),
		Discount:          o.Discount.StringFixed(2),
		Total:             o.Total.StringFixed(2),
		CouponCode:        o.CouponCode,
		Notes:             o.Notes,
		Status:            o.Status,
		AssignedCourierID: o.AssignedCourierID,
		CreatedAt:         o.CreatedAt,
		StatusChangedAt:   o.StatusChangedAt,
	}
}

func ordersToResponse(list []domain.Order) []orderDTO {
	out := make([]orderDTO, 0, len(list))
	for _, o := range list {
		out = append(out, orderToResponse(o))
	}
	return out
}

func nearbyToResponse(list []domain.NearbyBusiness) []nearbyBusinessDTO {
	out := make([]nearbyBusinessDTO, 0, len(list))
	for _, nb := range list {
		out = append(out, nearbyBusinessDTO{
			ID:             nb.Business.ID,
			Name:           nb.Business.Name,
			Lat:            nb.Business.Lat,
			Lng:            nb.Business.Lng,
			DistanceMeters: nb.DistanceMeters,
			ClaimableCount: nb.ClaimableCount,
			HasClaimable:   nb.HasClaimable,
		})
	}
	return out
}

func availableToResponse(list []domain.AvailableOrder) []availableOrderDTO {
	out := make([]availableOrderDTO, 0, len(list))
	for _, ao := range list {
		out = append(out, availableOrderDTO{
			OrderID:      ao.OrderID,
			Code:         ao.Code,
			CustomerName: ao.CustomerName,
			Address:      addressToResponse(ao.Address),
			ItemCount:    ao.ItemCount,
			Total:        ao.Total.StringFixed(2),
			DeliveryFee:  ao.DeliveryFee.StringFixed(2),
			Notes:        ao.Notes,
		})
	}
	return out
}

func locationToResponse(s domain.LocationSample) locationDTO {
	return locationDTO{
		CourierID:       s.CourierID,
		Lat:             s.Lat,
		Lng:             s.Lng,
		Heading:         s.Heading,
		Speed:           s.Speed,
		Accuracy:        s.Accuracy,
		ClientTimestamp: s.ClientTimestamp,
		ReceivedAt:      s.ReceivedAt,
	}
}
