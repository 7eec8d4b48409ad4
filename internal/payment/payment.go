package payment

import (
	"context"
	"errors"
)

const EventCheckoutSessionCompleted = "checkout.session.completed"

const StatusComplete = "complete"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNoSessionURL     = errors.New("checkout session has no url")
)

type LineItem struct {
	Name       string
	Image      string
	UnitAmount int64 // minor units
	Quantity   int64
}

type SessionParams struct {
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

type SessionLineItem struct {
	ID          string
	Description string
	Quantity    int64
	AmountTotal int64
}

type Session struct {
	ID            string
	URL           string
	Status        string
	Metadata      map[string]string
	CustomerName  string
	CustomerEmail string
	AmountTotal   int64
	LineItems     []SessionLineItem
}

type Event struct {
	ID      string
	Type    string
	Session *Session // set for checkout session events
}

// Processor is the payment provider as seen by checkout and fulfilment.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	// RetrieveSession fetches a session including its line items.
	RetrieveSession(ctx context.Context, id string) (*Session, error)
	// VerifyWebhook authenticates a raw webhook body against its signature
	// header and decodes the event.
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}
