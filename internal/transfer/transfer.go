// Package transfer builds wallet-connector transfer requests for the
// simulated purchase flow.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// ValidFor is how long a wallet may take to sign a request.
const ValidFor = 600 * time.Second

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidRecipient = errors.New("wrong recipient address format")
	ErrUserDeclined     = errors.New("transaction rejected by user")
)

var recipientPattern = regexp.MustCompile(`^[-_A-Za-z0-9]{48,66}$`)

// ValidRecipient reports whether addr looks like a user-friendly TON
// address.
func ValidRecipient(addr string) bool {
	return recipientPattern.MatchString(addr)
}

// Intent is a single native transfer.
type Intent struct {
	DestinationAddress     string
	AmountNano             uint64
	ValidUntilEpochSeconds int64
}

// NewIntent converts amountTon to nanoton and stamps the validity window.
// It rejects an empty destination and negative or non-finite amounts;
// recipient format is checked separately with ValidRecipient.
func NewIntent(to string, amountTon float64, now time.Time) (Intent, error) {
	if to == "" {
		return Intent{}, fmt.Errorf("missing destination: %w", ErrInvalidRecipient)
	}
	if math.IsNaN(amountTon) || math.IsInf(amountTon, 0) || amountTon < 0 {
		return Intent{}, fmt.Errorf("amount %v: %w", amountTon, ErrInvalidAmount)
	}
	nano := math.Round(amountTon * 1e9)
	if nano >= math.MaxUint64 {
		return Intent{}, fmt.Errorf("amount %v: %w", amountTon, ErrInvalidAmount)
	}
	return Intent{
		DestinationAddress:     to,
		AmountNano:             uint64(nano),
		ValidUntilEpochSeconds: now.Add(ValidFor).Unix(),
	}, nil
}

// Message is one outgoing message in connector wire format. Amount is a
// decimal string of nanoton.
type Message struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// Request is what a wallet connector is asked to sign.
type Request struct {
	ValidUntil int64     `json:"validUntil"`
	Messages   []Message `json:"messages"`
}

// Request renders the intent in connector wire format.
func (i Intent) Request() Request {
	return Request{
		ValidUntil: i.ValidUntilEpochSeconds,
		Messages: []Message{{
			Address: i.DestinationAddress,
			Amount:  strconv.FormatUint(i.AmountNano, 10),
		}},
	}
}

// Connector submits a request to the user's wallet. Implementations return
// ErrUserDeclined (possibly wrapped) when the user rejects it.
type Connector interface {
	SendTransaction(ctx context.Context, req Request) error
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, req Request) error

func (f ConnectorFunc) SendTransaction(ctx context.Context, req Request) error {
	return f(ctx, req)
}
