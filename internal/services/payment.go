// Package services – payment collaborator
//
// Payment capture is external to this core: the provider exposes one opaque
// charge operation returning a reference token. No retry policy is imposed
// here; provider failures propagate as fatal errors and abort the enclosing
// checkout transaction.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/shopspring/decimal"
)

// PaymentCharger is the contract consumed by the checkout workflow.
type PaymentCharger interface {
	// Charge captures amount against the tokenized payment method and
	// returns an opaque payment reference.
	Charge(ctx context.Context, token string, amount decimal.Decimal) (string, error)
}

// StubPaymentProvider always succeeds with a generated reference. It stands
// in for the real provider in development and tests.
type StubPaymentProvider struct{}

// Charge implements PaymentCharger.
func (StubPaymentProvider) Charge(_ context.Context, _ string, _ decimal.Decimal) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "pay_" + hex.EncodeToString(buf), nil
}
