// Package view holds the polling consumers: page-level controllers that
// subscribe to the poll notifier, re-derive a filtered slice of the
// order cache after every refresh, and invoke a render callback only
// when their slice actually changed.
package view

import (
	"errors"
	"reflect"

	"github.com/plateful/storefront/internal/model"
)

// View states. Every consumer starts LOADING and settles into
// DISPLAYING or ERROR; teardown returns it to IDLE.
const (
	StateIdle       = "IDLE"
	StateLoading    = "LOADING"
	StateDisplaying = "DISPLAYING"
	StateError      = "ERROR"
)

// ErrForbidden is returned when the actor may not open the requested
// view.
var ErrForbidden = errors.New("actor may not open this view")

// ordersEqual reports whether two filtered snapshots are identical, so
// unchanged polls skip the re-render.
func ordersEqual(a, b []model.Order) bool {
	if len(a) != len(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}
