package events

// Topic constants for domain events emitted by the checkout pipeline.
const (
	TopicOrderCreated  = "order.created"
	TopicOrderCanceled = "order.canceled"
	TopicStockLow      = "stock.low"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderCanceled,
		TopicStockLow,
	}
}
