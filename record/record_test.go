package record

import (
	"errors"
	"testing"
)

// row builds a 3-star character record at timestamp ts.
func row(ts int64) Record {
	return Record{Star: 3, ItemName: "Frost Star", ItemType: ItemCharacter, Timestamp: ts}
}

func rows(ts ...int64) []Record {
	out := make([]Record, len(ts))
	for i, t := range ts {
		out[i] = row(t)
	}
	return out
}

func timestamps(records []Record) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.Timestamp
	}
	return out
}

func equalTimestamps(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMergeEmptySides(t *testing.T) {
	a := rows(5, 4, 3)

	merged, added, err := Merge(a, nil)
	if err != nil {
		t.Fatalf("Merge(A, nil) failed: %v", err)
	}
	if !equalTimestamps(timestamps(merged), []int64{5, 4, 3}) || added != 3 {
		t.Errorf("Merge(A, nil): got %v added=%d", timestamps(merged), added)
	}

	// An empty fresh side returns the stored history whole, counted fully as
	// added: merge([], B) = (B, len(B)).
	merged, added, err = Merge(nil, a)
	if err != nil {
		t.Fatalf("Merge(nil, B) failed: %v", err)
	}
	if !equalTimestamps(timestamps(merged), []int64{5, 4, 3}) || added != 3 {
		t.Errorf("Merge(nil, B): got %v added=%d, expected added=3", timestamps(merged), added)
	}

	merged, added, err = Merge(nil, nil)
	if err != nil || len(merged) != 0 || added != 0 {
		t.Errorf("Merge(nil, nil): got %v added=%d err=%v", merged, added, err)
	}
}

func TestMergeOverlap(t *testing.T) {
	old := rows(5, 4, 3)
	fresh := rows(7, 6, 5, 4, 3)

	merged, added, err := Merge(fresh, old)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !equalTimestamps(timestamps(merged), []int64{7, 6, 5, 4, 3}) {
		t.Errorf("Expected [7 6 5 4 3], got %v", timestamps(merged))
	}
	if added != 2 {
		t.Errorf("Expected added=2, got %d", added)
	}
}

func TestMergeDisjoint(t *testing.T) {
	old := rows(2, 1)
	fresh := rows(4, 3)

	merged, added, err := Merge(fresh, old)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !equalTimestamps(timestamps(merged), []int64{4, 3, 2, 1}) {
		t.Errorf("Expected [4 3 2 1], got %v", timestamps(merged))
	}
	if added != 2 {
		t.Errorf("Expected added=2, got %d", added)
	}
}

func TestMergeSymmetry(t *testing.T) {
	old := rows(5, 4, 3)
	fresh := rows(7, 6, 5, 4, 3)

	ab, addedAB, err := Merge(fresh, old)
	if err != nil {
		t.Fatalf("Merge(fresh, old) failed: %v", err)
	}
	ba, addedBA, err := Merge(old, fresh)
	if err != nil {
		t.Fatalf("Merge(old, fresh) failed: %v", err)
	}
	if !equalTimestamps(timestamps(ab), timestamps(ba)) {
		t.Errorf("Argument order changed content: %v vs %v", timestamps(ab), timestamps(ba))
	}
	if addedAB != addedBA {
		t.Errorf("Argument order changed added count: %d vs %d", addedAB, addedBA)
	}
}

func TestMergeOverlapRequiresFullFieldEquality(t *testing.T) {
	// Same timestamps but a different item name: no overlap, and the
	// concatenation is still ordered (equal timestamps allowed).
	old := []Record{{Star: 4, ItemName: "Tempest", ItemType: ItemWeapon, Timestamp: 5}}
	fresh := []Record{{Star: 4, ItemName: "Mistral", ItemType: ItemWeapon, Timestamp: 5}}

	merged, added, err := Merge(fresh, old)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(merged) != 2 || added != 1 {
		t.Errorf("Expected 2 records with added=1, got %v added=%d", merged, added)
	}
}

func TestMergeOrderViolation(t *testing.T) {
	// Interleaved timestamps with no common prefix/suffix cannot be merged
	// by concatenation; the result must be rejected, not repaired.
	old := rows(6, 2)
	fresh := rows(7, 3)

	_, _, err := Merge(fresh, old)
	if !errors.Is(err, ErrOrderViolation) {
		t.Fatalf("Expected ErrOrderViolation, got %v", err)
	}
}

func TestMergePicksNewerSideBySwapping(t *testing.T) {
	// Passing the older scan as the first argument must not change the
	// result: the algorithm swaps once, never recurses.
	older := rows(4, 3)
	newer := rows(6, 5, 4)

	merged, added, err := Merge(older, newer)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !equalTimestamps(timestamps(merged), []int64{6, 5, 4, 3}) {
		t.Errorf("Expected [6 5 4 3], got %v", timestamps(merged))
	}
	if added != 2 {
		t.Errorf("Expected added=2, got %d", added)
	}
}

func TestItemTypeFromLabel(t *testing.T) {
	tests := []struct {
		text string
		want ItemType
		ok   bool
	}{
		{"角色", ItemCharacter, true},
		{"Operative", ItemCharacter, true},
		{"武器", ItemWeapon, true},
		{"Weapon", ItemWeapon, true},
		{"Character", 0, false}, // persisted token, not an in-game label
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ItemTypeFromLabel(tt.text)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ItemTypeFromLabel(%q) = %v,%v, expected %v,%v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBannerPityCounts(t *testing.T) {
	tests := []struct {
		banner BannerType
		pity   int
	}{
		{BannerLimitedCharacter100, 100},
		{BannerLimitedWeapon100, 80},
		{BannerLimitedCharacter50, 80},
		{BannerLimitedWeapon50, 60},
		{BannerPermanentCharacter, 80},
		{BannerPermanentWeapon, 60},
		{BannerBeginner, 50},
	}
	for _, tt := range tests {
		if got := tt.banner.PityCount(); got != tt.pity {
			t.Errorf("%s: expected pity %d, got %d", tt.banner.FileName(), tt.pity, got)
		}
	}
}

func TestPityCounters(t *testing.T) {
	// Newest first: a 5-star two pulls back, a 4-star before that.
	seq := Sequence{
		Banner: BannerPermanentCharacter, // pity 80
		Records: []Record{
			{Star: 3, Timestamp: 6},
			{Star: 3, Timestamp: 5},
			{Star: 5, Timestamp: 4},
			{Star: 3, Timestamp: 3},
			{Star: 4, Timestamp: 2},
			{Star: 3, Timestamp: 1},
		},
	}

	if got := seq.PullsInto5Star(0); got != 2 {
		t.Errorf("PullsInto5Star(0): expected 2, got %d", got)
	}
	// The 5-star row itself counts its own pull: no older 5-star exists, so
	// it landed on the 4th pull of the history.
	if got := seq.PullsInto5Star(2); got != 4 {
		t.Errorf("PullsInto5Star(2): expected 4, got %d", got)
	}
	if got := seq.PullsLeftTo5Pity(0); got != 78 {
		t.Errorf("PullsLeftTo5Pity(0): expected 78, got %d", got)
	}
	if got := seq.PullsInto4Star(0); got != 2 {
		t.Errorf("PullsInto4Star(0): expected 2 (5-star resets), got %d", got)
	}
	if got := seq.PullsInto4Star(5); got != 1 {
		t.Errorf("PullsInto4Star(5): expected 1, got %d", got)
	}
}
