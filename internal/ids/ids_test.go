package ids

import (
	"testing"
	"time"
)

func TestNewTokenIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id, err := NewTokenID()
		if err != nil {
			t.Fatalf("NewTokenID: %v", err)
		}
		if !ValidUUID(id) {
			t.Fatalf("not a uuid: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate token id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewULIDSortsByTime(t *testing.T) {
	earlier, err := NewULID(time.Unix(1_700_000_000, 0))
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	later, err := NewULID(time.Unix(1_700_000_100, 0))
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if len(earlier) != 26 || !ValidULID(earlier) {
		t.Fatalf("invalid ulid %q", earlier)
	}
	if earlier >= later {
		t.Fatalf("expected %q < %q", earlier, later)
	}
}

func TestNewULIDZeroTimeUsesNow(t *testing.T) {
	id, err := NewULID(time.Time{})
	if err != nil || !ValidULID(id) {
		t.Fatalf("NewULID(zero) = %q, %v", id, err)
	}
}

func TestValidators(t *testing.T) {
	if ValidULID("not-a-ulid") || ValidUUID("nope") {
		t.Fatal("validators accepted garbage")
	}
}
