package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateBackorder OutboxAggregateType = "backorder"
	AggregateShipment  OutboxAggregateType = "shipment"
	AggregateContract  OutboxAggregateType = "contract"
	AggregateStock     OutboxAggregateType = "stock"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateBackorder,
	AggregateShipment,
	AggregateContract,
	AggregateStock,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order_placed"
	EventOrderProcessed     OutboxEventType = "order_processed"
	EventOrderShipped       OutboxEventType = "order_shipped"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventShipmentRecorded   OutboxEventType = "shipment_recorded"
	EventBackorderOpened    OutboxEventType = "backorder_opened"
	EventBackorderDispatch  OutboxEventType = "backorder_dispatch_requested"
	EventBackorderCompleted OutboxEventType = "backorder_completed"
	EventStockReplenished   OutboxEventType = "stock_replenished"
	EventContractSigned     OutboxEventType = "contract_signed"
	EventContractCancelled  OutboxEventType = "contract_cancelled"
)

var validEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderProcessed,
	EventOrderShipped,
	EventOrderCancelled,
	EventShipmentRecorded,
	EventBackorderOpened,
	EventBackorderDispatch,
	EventBackorderCompleted,
	EventStockReplenished,
	EventContractSigned,
	EventContractCancelled,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
