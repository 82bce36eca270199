package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidNumber = errors.New("invalid order number")
	ErrInvalidStatus = errors.New("unknown order status")
	ErrTransition    = errors.New("status transition not allowed")
)

// ParseOrderNumber accepts "1042" as well as "#1042".
func ParseOrderNumber(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidNumber
	}
	return n, nil
}

type StatusStore interface {
	GetOrderStatus(ctx context.Context, number int64) (Status, error)
	UpdateStatus(ctx context.Context, number int64, from, to Status) error
}

// ChangeStatus applies one transition and returns the status it left.
func ChangeStatus(ctx context.Context, st StatusStore, number int64, to Status) (Status, error) {
	if !to.Valid() {
		return "", ErrInvalidStatus
	}
	from, err := st.GetOrderStatus(ctx, number)
	if err != nil {
		return "", err
	}
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrTransition, from, to)
	}
	if err := st.UpdateStatus(ctx, number, from, to); err != nil {
		return from, err
	}
	return from, nil
}
