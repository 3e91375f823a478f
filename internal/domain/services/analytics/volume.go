package analytics

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const bucketCount = 60

// VolumeTracker keeps a trailing-hour trade volume in sixty one-minute
// buckets. The window is fixed size, so memory use does not grow with
// trade count.
type VolumeTracker struct {
	mu      sync.Mutex
	buckets [bucketCount]decimal.Decimal
	minutes [bucketCount]int64
	now     func() time.Time
}

// NewVolumeTracker creates an empty tracker
func NewVolumeTracker() *VolumeTracker {
	return &VolumeTracker{now: time.Now}
}

// Record adds a trade amount to the current minute's bucket
func (t *VolumeTracker) Record(amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	minute := t.now().Unix() / 60
	idx := minute % bucketCount
	if t.minutes[idx] != minute {
		t.buckets[idx] = decimal.Zero
		t.minutes[idx] = minute
	}
	t.buckets[idx] = t.buckets[idx].Add(amount)
}

// TrailingHour returns the total volume recorded over the past hour
func (t *VolumeTracker) TrailingHour() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()

	minute := t.now().Unix() / 60
	total := decimal.Zero
	for i := 0; i < bucketCount; i++ {
		if minute-t.minutes[i] < bucketCount {
			total = total.Add(t.buckets[i])
		}
	}
	return total
}
