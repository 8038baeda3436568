package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// OrderIDPrefix prefixes every generated order id
const OrderIDPrefix = "JOKI"

// OrderIDGenerator produces order ids of the form JOKI-<unixMillis>-<8 hex chars>
type OrderIDGenerator struct {
	now     func() time.Time
	entropy io.Reader
}

// NewOrderIDGenerator returns a generator backed by the wall clock and crypto/rand
func NewOrderIDGenerator() *OrderIDGenerator {
	return &OrderIDGenerator{now: time.Now, entropy: rand.Reader}
}

// NewID returns a fresh order id
func (g *OrderIDGenerator) NewID() (string, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(g.entropy, buf); err != nil {
		return "", fmt.Errorf("failed to read order id entropy: %w", err)
	}
	return fmt.Sprintf("%s-%d-%s", OrderIDPrefix, g.now().UnixMilli(), strings.ToUpper(hex.EncodeToString(buf))), nil
}
