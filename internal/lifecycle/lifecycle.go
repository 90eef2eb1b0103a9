// Package lifecycle holds the transition tables for orders and returns.
// Customer actions, provider webhooks and background jobs all resolve through the same tables.
package lifecycle

import (
	"clothing-marketplace/internal/model"
)

// Outcome classifies what a (state, event) pair resolves to.
type Outcome int

const (
	// Reject means the event is illegal in the current state.
	Reject Outcome = iota
	// Apply means the entity moves to the next state.
	Apply
	// Noop means the event was already applied or is stale; nothing changes.
	Noop
)

func (o Outcome) String() string {
	switch o {
	case Apply:
		return "applied"
	case Noop:
		return "noop"
	default:
		return "rejected"
	}
}

// OrderEvent is something that may move an order between states.
type OrderEvent string

const (
	EventCustomerCancel         OrderEvent = "customer_cancel"
	EventPaymentAuthorized      OrderEvent = "payment_authorized"
	EventPaymentCaptured        OrderEvent = "payment_captured"
	EventPaymentFailed          OrderEvent = "payment_failed"
	EventShipmentPickedUp       OrderEvent = "shipment_picked_up"
	EventShipmentInTransit      OrderEvent = "shipment_in_transit"
	EventShipmentOutForDelivery OrderEvent = "shipment_out_for_delivery"
	EventShipmentDelivered      OrderEvent = "shipment_delivered"
	EventShipmentRTO            OrderEvent = "shipment_rto"
	EventReturnRequested        OrderEvent = "return_requested"
	EventReturnCancelled        OrderEvent = "return_cancelled"
	EventReturnRejected         OrderEvent = "return_rejected"
	EventReturnRefunded         OrderEvent = "return_refunded"
	EventReturnWindowClosed     OrderEvent = "return_window_closed"
)

type orderKey struct {
	state model.OrderStatus
	event OrderEvent
}

type transition struct {
	next    model.OrderStatus
	outcome Outcome
}

func to(next model.OrderStatus) transition { return transition{next: next, outcome: Apply} }

var noop = transition{outcome: Noop}

// shippingStage orders the forward shipping states so stale events can be told apart
// from illegal ones.
var shippingStage = map[model.OrderStatus]int{
	model.OrderStatusConfirmed:      0,
	model.OrderStatusShipped:        1,
	model.OrderStatusInTransit:      2,
	model.OrderStatusOutForDelivery: 3,
	model.OrderStatusDelivered:      4,
}

var shipmentTarget = map[OrderEvent]model.OrderStatus{
	EventShipmentPickedUp:       model.OrderStatusShipped,
	EventShipmentInTransit:      model.OrderStatusInTransit,
	EventShipmentOutForDelivery: model.OrderStatusOutForDelivery,
	EventShipmentDelivered:      model.OrderStatusDelivered,
}

var orderTable = buildOrderTable()

func buildOrderTable() map[orderKey]transition {
	t := map[orderKey]transition{
		{model.OrderStatusPending, EventCustomerCancel}:    to(model.OrderStatusCancelled),
		{model.OrderStatusPending, EventPaymentAuthorized}: to(model.OrderStatusPaymentPending),
		{model.OrderStatusPending, EventPaymentCaptured}:   to(model.OrderStatusConfirmed),
		{model.OrderStatusPending, EventPaymentFailed}:     to(model.OrderStatusCancelled),

		{model.OrderStatusPaymentPending, EventCustomerCancel}:    to(model.OrderStatusCancelled),
		{model.OrderStatusPaymentPending, EventPaymentAuthorized}: noop,
		{model.OrderStatusPaymentPending, EventPaymentCaptured}:   to(model.OrderStatusConfirmed),
		{model.OrderStatusPaymentPending, EventPaymentFailed}:     to(model.OrderStatusCancelled),

		{model.OrderStatusConfirmed, EventCustomerCancel}: to(model.OrderStatusCancelled),

		{model.OrderStatusDelivered, EventReturnRequested}:    to(model.OrderStatusReturnRequested),
		{model.OrderStatusDelivered, EventReturnWindowClosed}: to(model.OrderStatusCompleted),
		{model.OrderStatusDelivered, EventShipmentRTO}:        transition{outcome: Reject},

		{model.OrderStatusCompleted, EventReturnRequested}: to(model.OrderStatusReturnRequested),

		{model.OrderStatusReturnRequested, EventReturnCancelled}: to(model.OrderStatusDelivered),
		{model.OrderStatusReturnRequested, EventReturnRejected}:  to(model.OrderStatusDelivered),
		{model.OrderStatusReturnRequested, EventReturnRefunded}:  to(model.OrderStatusReturned),
		{model.OrderStatusReturnRequested, EventReturnRequested}: noop,

		{model.OrderStatusCancelled, EventPaymentFailed}: noop,

		{model.OrderStatusReturned, EventShipmentRTO}:    noop,
		{model.OrderStatusReturned, EventReturnRefunded}: noop,
	}

	// Once payment is captured, late authorisation or capture notifications change nothing.
	for state := range shippingStage {
		t[orderKey{state, EventPaymentAuthorized}] = noop
		t[orderKey{state, EventPaymentCaptured}] = noop
	}

	// Shipping moves forward monotonically; events at or behind the current stage are stale.
	for state, stage := range shippingStage {
		for event, target := range shipmentTarget {
			if shippingStage[target] > stage {
				t[orderKey{state, event}] = to(target)
			} else {
				t[orderKey{state, event}] = noop
			}
		}
		if state != model.OrderStatusDelivered {
			t[orderKey{state, EventShipmentRTO}] = to(model.OrderStatusReturned)
		}
	}

	return t
}

// NextOrderStatus resolves an event against the current order state. Pairs absent from
// the table are rejected, which covers every forward event on a terminal order.
func NextOrderStatus(current model.OrderStatus, event OrderEvent) (model.OrderStatus, Outcome) {
	tr, ok := orderTable[orderKey{current, event}]
	if !ok || tr.outcome == Reject {
		return current, Reject
	}
	if tr.outcome == Noop {
		return current, Noop
	}
	return tr.next, Apply
}

// ReturnEvent is something that may move a return between states.
type ReturnEvent string

const (
	ReturnEventApprove         ReturnEvent = "approve"
	ReturnEventReject          ReturnEvent = "reject"
	ReturnEventCustomerCancel  ReturnEvent = "customer_cancel"
	ReturnEventRefundProcessed ReturnEvent = "refund_processed"
)

type returnKey struct {
	state model.ReturnStatus
	event ReturnEvent
}

var returnTable = map[returnKey]model.ReturnStatus{
	{model.ReturnStatusRequested, ReturnEventApprove}:        model.ReturnStatusApproved,
	{model.ReturnStatusRequested, ReturnEventReject}:         model.ReturnStatusRejected,
	{model.ReturnStatusRequested, ReturnEventCustomerCancel}: model.ReturnStatusCancelled,
	{model.ReturnStatusPending, ReturnEventApprove}:          model.ReturnStatusApproved,
	{model.ReturnStatusPending, ReturnEventReject}:           model.ReturnStatusRejected,
	{model.ReturnStatusPending, ReturnEventCustomerCancel}:   model.ReturnStatusCancelled,
	{model.ReturnStatusApproved, ReturnEventRefundProcessed}: model.ReturnStatusCompleted,
	// A gateway refund is proof of an out-of-band approval.
	{model.ReturnStatusRequested, ReturnEventRefundProcessed}: model.ReturnStatusCompleted,
	{model.ReturnStatusPending, ReturnEventRefundProcessed}:   model.ReturnStatusCompleted,
}

var returnNoops = map[returnKey]bool{
	{model.ReturnStatusApproved, ReturnEventApprove}:          true,
	{model.ReturnStatusRejected, ReturnEventReject}:           true,
	{model.ReturnStatusCompleted, ReturnEventRefundProcessed}: true,
}

// NextReturnStatus resolves an event against the current return state.
func NextReturnStatus(current model.ReturnStatus, event ReturnEvent) (model.ReturnStatus, Outcome) {
	key := returnKey{current, event}
	if next, ok := returnTable[key]; ok {
		return next, Apply
	}
	if returnNoops[key] {
		return current, Noop
	}
	return current, Reject
}
