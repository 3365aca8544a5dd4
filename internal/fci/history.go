package fci

import (
	"errors"
	"fmt"
	"time"

	apperrors "fcig/internal/errors"
)

// ErrIncompleteHistory means a walk met an unset slot before collecting all anchors.
var ErrIncompleteHistory = errors.New("incomplete history")

// Window is the current row followed by its twelve quarterly anchors, newest first.
type Window struct {
	Rows [WindowSize]int
	n    int
}

// Len returns how many rows the walk collected.
func (w Window) Len() int { return w.n }

// Complete reports whether the window holds all WindowSize rows.
func (w Window) Complete() bool { return w.n == WindowSize }

// Walk assembles the history window for row i by following cached pointers.
// On an unset slot it returns the partial window together with an error
// wrapping ErrIncompleteHistory.
func (c *Cache) Walk(t *Table, i int) (Window, error) {
	var w Window
	w.Rows[0] = i
	w.n = 1

	eom := t.IsEndOfMonth(i)
	slot := startSlot(eom)
	dayt := t.Date(i).Day()
	row := i

	for k := 1; k <= Lags; k++ {
		if !validSlot(slot) {
			return w, slotRangeError(t, row, slot)
		}
		anchor, ok := c.Pointer(row, slot)
		if !ok {
			return w, apperrors.NewCacheError(
				fmt.Sprintf("history for %s stops after %d of %d anchors",
					t.Date(i).Format(time.DateOnly), k-1, Lags),
				ErrIncompleteHistory).
				WithContext("row_date", t.Date(row).Format(time.DateOnly)).
				WithContext("slot", slot)
		}
		w.Rows[k] = anchor
		w.n++

		slot = nextSlot(dayt, t.Date(anchor).Day(), eom)
		row = anchor
	}
	return w, nil
}
