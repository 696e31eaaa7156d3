package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arvind-dev/backend-bazaar/internal/common"
	"github.com/arvind-dev/backend-bazaar/internal/db"
	"github.com/arvind-dev/backend-bazaar/internal/events"
)

// EmailNotifier sends transactional emails for selected topics. It implements
// events.Notifier and only acts when the event payload carries a recipient.
type EmailNotifier struct {
	Mail    common.EmailSender
	Enabled bool
}

// Notify implements events.Notifier.
func (n EmailNotifier) Notify(_ context.Context, event db.DomainEvent) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to, _ := payload["email"].(string)
	if to == "" {
		return nil
	}
	subject, body := renderEmail(event.Topic, payload)
	if subject == "" {
		return nil
	}
	return n.Mail.Send(to, subject, body)
}

func renderEmail(topic string, payload map[string]any) (string, string) {
	orderID, _ := payload["orderId"].(string)
	switch topic {
	case events.TopicOrderCreated:
		return "Your order is confirmed",
			fmt.Sprintf("<p>Order <b>%s</b> has been placed successfully.</p>", orderID)
	case events.TopicOrderCanceled:
		return "Your order was cancelled",
			fmt.Sprintf("<p>Order <b>%s</b> has been cancelled.</p>", orderID)
	default:
		return "", ""
	}
}
