package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	domain "github.com/teranga-kitchen/api/internal/domain"
)

const defaultDispatchTimeout = 10 * time.Second

// WhatsAppLogger defines the logging contract for notification dispatch.
type WhatsAppLogger func(ctx context.Context, event string, fields map[string]any)

type messageAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// WhatsAppNotifierConfig configures the WhatsApp staff notifier.
type WhatsAppNotifierConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	Recipients []string
	Timeout    time.Duration
	Logger     WhatsAppLogger
	API        messageAPI
}

// WhatsAppNotifier sends order messages to every configured staff number over
// Twilio's WhatsApp channel. Recipients are dispatched independently: one slow
// or failing number never blocks the others, and the notifier reports an error
// only when no recipient could be reached at all.
type WhatsAppNotifier struct {
	api        messageAPI
	from       string
	recipients []string
	timeout    time.Duration
	logger     WhatsAppLogger
}

// NewWhatsAppNotifier constructs the notifier, building a Twilio REST client
// unless one is injected.
func NewWhatsAppNotifier(cfg WhatsAppNotifierConfig) (*WhatsAppNotifier, error) {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, errors.New("whatsapp: sender number is required")
	}

	recipients := make([]string, 0, len(cfg.Recipients))
	for _, recipient := range cfg.Recipients {
		if trimmed := strings.TrimSpace(recipient); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	if len(recipients) == 0 {
		return nil, errors.New("whatsapp: at least one recipient is required")
	}

	api := cfg.API
	if api == nil {
		sid := strings.TrimSpace(cfg.AccountSID)
		token := strings.TrimSpace(cfg.AuthToken)
		if sid == "" || token == "" {
			return nil, errors.New("whatsapp: account sid and auth token are required")
		}
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: sid,
			Password: token,
		})
		api = client.Api
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &WhatsAppNotifier{
		api:        api,
		from:       from,
		recipients: recipients,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// NotifyOrderCreated sends the new-order message to every staff recipient.
func (n *WhatsAppNotifier) NotifyOrderCreated(ctx context.Context, order domain.Order) error {
	return n.broadcast(ctx, order.ID, FormatOrderCreated(order))
}

// NotifyOrderStatus sends the status-change message to every staff recipient.
func (n *WhatsAppNotifier) NotifyOrderStatus(ctx context.Context, order domain.Order, previous domain.OrderStatus) error {
	return n.broadcast(ctx, order.ID, FormatOrderStatus(order, previous))
}

func (n *WhatsAppNotifier) broadcast(ctx context.Context, orderID string, body string) error {
	var wg sync.WaitGroup
	results := make([]error, len(n.recipients))

	for i, recipient := range n.recipients {
		wg.Add(1)
		go func(i int, recipient string) {
			defer wg.Done()
			results[i] = n.send(ctx, recipient, body)
		}(i, recipient)
	}
	wg.Wait()

	delivered := 0
	for i, err := range results {
		if err == nil {
			delivered++
			continue
		}
		n.logger(ctx, "notifications.whatsapp.failed", map[string]any{
			"order":     orderID,
			"recipient": n.recipients[i],
			"error":     err.Error(),
		})
	}

	if delivered == 0 {
		return fmt.Errorf("whatsapp: all %d recipients failed", len(n.recipients))
	}
	return nil
}

// send bounds each dispatch with the configured timeout. The Twilio SDK call
// is not context-aware, so a timed-out send is abandoned rather than
// cancelled; the surrounding request moves on either way.
func (n *WhatsAppNotifier) send(ctx context.Context, recipient string, body string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		params := &openapi.CreateMessageParams{}
		params.SetFrom(whatsAppAddress(n.from))
		params.SetTo(whatsAppAddress(recipient))
		params.SetBody(body)

		_, err := n.api.CreateMessage(params)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
