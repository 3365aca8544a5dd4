package fci

import (
	"errors"
	"fmt"
	"time"

	"fcig/internal/calendar"
	apperrors "fcig/internal/errors"
)

const (
	// NumSlots is the number of drift buckets cached per row.
	NumSlots = 8
	// EndOfMonthSlot is reserved for chains anchored on month-ends.
	EndOfMonthSlot = NumSlots

	slotUnset int32 = -1
)

var (
	// ErrSlotOutOfRange means the drift arithmetic produced a slot outside [1, NumSlots].
	ErrSlotOutOfRange = errors.New("slot out of range")
	// ErrSlotConflict means a populated slot disagrees with the anchor recomputed for it.
	ErrSlotConflict = errors.New("slot conflict")
)

// BuildStats summarizes one cache construction.
type BuildStats struct {
	Chains       int
	SlotsWritten int
	Reused       int
	LookupMisses int
	Searches     int
	Duration     time.Duration
}

// Cache holds the lag pointers of every row in a flat arena: row r's slot s
// lives at cells[r*NumSlots+s-1]. A cell is a row index or slotUnset.
// Rows that start an end-of-month chain are marked in eomStarts; the mark is
// set once and never cleared, even when a normal chain later fills slot 1.
type Cache struct {
	cells     []int32
	eomStarts []bool
}

func newCache(rows int) *Cache {
	cells := make([]int32, rows*NumSlots)
	for i := range cells {
		cells[i] = slotUnset
	}
	return &Cache{cells: cells, eomStarts: make([]bool, rows)}
}

// Rows returns the number of rows the cache covers.
func (c *Cache) Rows() int { return len(c.cells) / NumSlots }

// Pointer returns the anchor row cached for (row, slot).
func (c *Cache) Pointer(row, slot int) (int, bool) {
	v := c.cell(row, slot)
	return int(v), v >= 0
}

// MarkedEndOfMonth reports whether row started an end-of-month chain.
func (c *Cache) MarkedEndOfMonth(row int) bool {
	return c.eomStarts[row]
}

// Populated counts the cells holding row pointers.
func (c *Cache) Populated() int {
	n := 0
	for _, v := range c.cells {
		if v >= 0 {
			n++
		}
	}
	return n
}

func (c *Cache) cell(row, slot int) int32 {
	return c.cells[row*NumSlots+slot-1]
}

func (c *Cache) set(row, slot int, v int32) {
	c.cells[row*NumSlots+slot-1] = v
}

func (c *Cache) clone() *Cache {
	return &Cache{
		cells:     append([]int32(nil), c.cells...),
		eomStarts: append([]bool(nil), c.eomStarts...),
	}
}

// BuildCache populates the lag pointers for t. It runs single-threaded;
// the returned cache is read-only and safe for concurrent walks.
func BuildCache(t *Table) (*Cache, BuildStats, error) {
	start := time.Now()
	c := newCache(t.Len())
	stats, err := c.fill(t)
	stats.Duration = time.Since(start)
	if err != nil {
		return nil, stats, err
	}
	return c, stats, nil
}

// fill starts a chain from every row on or after the chain floor whose
// starting slot is still unset, most recent row first. Later chains reuse
// the pointers earlier ones left behind, so each (row, slot) is searched
// for at most once plus one verification per reuse.
func (c *Cache) fill(t *Table) (BuildStats, error) {
	var stats BuildStats
	floor := calendar.AddMonths(t.Earliest(), ChainFloorMonths)

	for row := t.Len() - 1; row >= 0; row-- {
		if t.Date(row).Before(floor) {
			break
		}

		eom := t.IsEndOfMonth(row)
		slot := startSlot(eom)
		if eom {
			c.eomStarts[row] = true
		}
		if c.cell(row, slot) >= 0 {
			continue
		}

		stats.Chains++
		if err := c.chain(t, row, slot, eom, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// chain follows three-month steps back from row until the predecessor
// search runs off the start of the table or a populated slot is reached.
func (c *Cache) chain(t *Table, row, slot int, eom bool, stats *BuildStats) error {
	dayt := t.Date(row).Day()

	for {
		if !validSlot(slot) {
			return slotRangeError(t, row, slot)
		}

		target := anchorSearchDate(t.Date(row), slot, dayt, eom)
		anchor, found := t.Predecessor(target)
		stats.Searches++

		if existing := c.cell(row, slot); existing >= 0 {
			if !found || int(existing) != anchor {
				return apperrors.NewCacheError("populated slot disagrees with recomputed anchor", ErrSlotConflict).
					WithContext("date", t.Date(row).Format(time.DateOnly)).
					WithContext("slot", slot).
					WithContext("cached", t.Date(int(existing)).Format(time.DateOnly))
			}
			stats.Reused++
			return nil
		}

		if !found {
			stats.LookupMisses++
			return nil
		}

		c.set(row, slot, int32(anchor))
		stats.SlotsWritten++

		slot = nextSlot(dayt, t.Date(anchor).Day(), eom)
		row = anchor
	}
}

func slotRangeError(t *Table, row, slot int) error {
	return apperrors.NewCacheError(
		fmt.Sprintf("slot %d outside [1, %d]", slot, NumSlots), ErrSlotOutOfRange).
		WithContext("date", t.Date(row).Format(time.DateOnly)).
		WithContext("slot", slot)
}
