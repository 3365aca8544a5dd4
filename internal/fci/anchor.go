package fci

import (
	"time"

	"fcig/internal/calendar"
)

// startSlot returns the slot a chain or walk from a row begins with.
func startSlot(endOfMonth bool) int {
	if endOfMonth {
		return EndOfMonthSlot
	}
	return 1
}

// anchorSearchDate returns the date whose predecessor is the anchor three
// months before date, for a chain that arrived at date in the given slot.
//
// End-of-month chains look for the last day of the month three months back.
// Other chains rebuild the day-of-month dayt in the month that date+(slot-1)
// falls in, then step back three months. For late-month days a short month
// can leave that only two calendar months behind date; one more month is
// taken off in that case.
func anchorSearchDate(date time.Time, slot, dayt int, endOfMonth bool) time.Time {
	if endOfMonth {
		return calendar.AddDays(calendar.AddMonths(calendar.FirstOfMonth(date), -2), -1)
	}

	shifted := calendar.AddDays(date, slot-1)
	search := calendar.AddMonths(calendar.AddDays(calendar.FirstOfMonth(shifted), dayt-1), -3)
	if calendar.MonthDistance(date, search) == 2 && dayt > 15 {
		search = calendar.AddMonths(search, -1)
	}
	return search
}

// nextSlot returns the drift bucket a chain carries into the anchor row.
// The result is not range checked.
func nextSlot(dayt, anchorDay int, endOfMonth bool) int {
	if endOfMonth {
		return EndOfMonthSlot
	}
	j := dayt - anchorDay + 1
	if j > 9 || j < -9 {
		j += 31
	}
	return j
}

func validSlot(slot int) bool {
	return slot >= 1 && slot <= NumSlots
}
