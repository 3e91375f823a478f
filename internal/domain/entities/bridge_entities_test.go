package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBridgeIDs_Deterministic(t *testing.T) {
	sender := Address("0x00000000000000000000000000000000000000aa")
	recipient := Address("0x00000000000000000000000000000000000000bb")
	amount := decimal.NewFromInt(100)

	first := OutboundBridgeID("aurum-main", sender, recipient, amount, 7)
	second := OutboundBridgeID("aurum-main", sender, recipient, amount, 7)
	assert.Equal(t, first, second)

	// The nonce keeps identical settlement tuples distinct.
	assert.NotEqual(t, first, OutboundBridgeID("aurum-main", sender, recipient, amount, 8))
}

func TestInboundBridgeID_ProofDistinguishes(t *testing.T) {
	recipient := Address("0x00000000000000000000000000000000000000bb")
	amount := decimal.NewFromInt(100)

	first := InboundBridgeID("basechain", recipient, amount, []byte("proof-1"))
	replay := InboundBridgeID("basechain", recipient, amount, []byte("proof-1"))
	other := InboundBridgeID("basechain", recipient, amount, []byte("proof-2"))

	assert.Equal(t, first, replay, "identical deliveries must collide by construction")
	assert.NotEqual(t, first, other)
}
