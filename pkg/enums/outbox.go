package enums

// OutboxEventType is the canonical event_type stored on outbox rows.
type OutboxEventType string

const (
	EventOrderCreated    OutboxEventType = "order.created"
	EventOrderPaid       OutboxEventType = "order.paid"
	EventOrderCancelled  OutboxEventType = "order.cancelled"
	EventStockBackOnSale OutboxEventType = "inventory.back_in_stock"
)

// IsValid reports whether the value matches the canonical outbox event enum.
func (o OutboxEventType) IsValid() bool {
	switch o {
	case EventOrderCreated, EventOrderPaid, EventOrderCancelled, EventStockBackOnSale:
		return true
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateInventoryItem OutboxAggregateType = "inventory_item"
)

// IsValid reports whether the value matches the canonical aggregate type enum.
func (o OutboxAggregateType) IsValid() bool {
	return o == AggregateOrder || o == AggregateInventoryItem
}

// OutboxStatus tracks delivery of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
)
