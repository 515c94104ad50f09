package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestLogRing_BelowCapacity(t *testing.T) {
	ring := NewLogRing(4)
	ring.Append(SeverityInfo, "one")
	ring.Append(SeverityWarn, "two")

	entries := ring.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Text != "one" || entries[1].Text != "two" {
		t.Errorf("entries = [%s, %s], want oldest-first [one, two]", entries[0].Text, entries[1].Text)
	}
}

func TestLogRing_EvictsOldest(t *testing.T) {
	ring := NewLogRing(3)
	for i := 1; i <= 5; i++ {
		ring.Append(SeverityInfo, fmt.Sprintf("msg-%d", i))
	}

	entries := ring.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}

	want := []string{"msg-3", "msg-4", "msg-5"}
	for i, text := range want {
		if entries[i].Text != text {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].Text, text)
		}
	}
}

func TestLogRing_ZeroCapacityGetsDefault(t *testing.T) {
	ring := NewLogRing(0)
	ring.Append(SeverityInfo, "still works")
	if len(ring.Entries()) != 1 {
		t.Error("ring with defaulted capacity dropped an entry")
	}
}

func TestNewOpportunityID_MonotonicWithinSameMilli(t *testing.T) {
	now := time.Now()
	a := NewOpportunityID(now)
	b := NewOpportunityID(now)
	if a == b {
		t.Errorf("ids collide: %s", a)
	}
}
