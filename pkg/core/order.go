package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownOrderKind is returned when an order kind cannot be recognised at
// the command boundary.
var ErrUnknownOrderKind = errors.New("unknown order kind")

// OrderKind is the pace of a move order.
type OrderKind uint8

const (
	OrderWalk OrderKind = iota + 1
	OrderRun
	OrderCrawl
)

// OrderKinds lists every valid order kind.
var OrderKinds = []OrderKind{OrderWalk, OrderRun, OrderCrawl}

func (k OrderKind) String() string {
	switch k {
	case OrderWalk:
		return "walk"
	case OrderRun:
		return "run"
	case OrderCrawl:
		return "crawl"
	}
	return fmt.Sprintf("OrderKind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared order kinds.
func (k OrderKind) Valid() bool {
	return k >= OrderWalk && k <= OrderCrawl
}

// ParseOrderKind accepts the short names and the legacy ORDER_MOVE* names.
func ParseOrderKind(s string) (OrderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "walk", "move", "order_move":
		return OrderWalk, nil
	case "run", "move_fast", "order_move_fast":
		return OrderRun, nil
	case "crawl", "move_crawl", "order_move_crawl":
		return OrderCrawl, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOrderKind, s)
}

func (k OrderKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrderKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *OrderKind) UnmarshalText(b []byte) error {
	parsed, err := ParseOrderKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MoveIntention is the move order currently accepted by an entity.
// Path is computed on first use and kept for the lifetime of the order.
type MoveIntention struct {
	To       Position   `json:"to"`
	Kind     OrderKind  `json:"kind"`
	Path     []Position `json:"path,omitempty"`
	IssuedAt time.Time  `json:"issuedAt"`
}

// NewMoveIntention builds an order for the given destination and pace.
func NewMoveIntention(to Position, kind OrderKind, issuedAt time.Time) (*MoveIntention, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrderKind, uint8(kind))
	}
	return &MoveIntention{To: to, Kind: kind, IssuedAt: issuedAt}, nil
}
