package record

// Sequence pairs a banner with its newest-first record list so pity counters
// can be derived against the banner's guarantee ceiling.
type Sequence struct {
	Banner  BannerType
	Records []Record
}

// PullsInto5Star counts how many pulls deep row i is inside the current
// 5-star pity window: 1 for the pull right after a 5-star (or the very first
// pull), growing until a 5-star resets it. Rows are newest-first, so the
// window boundary is the nearest older 5-star.
func (s Sequence) PullsInto5Star(i int) int {
	n := 1
	for j := i + 1; j < len(s.Records); j++ {
		if s.Records[j].Star == 5 {
			break
		}
		n++
	}
	return n
}

// PullsLeftTo5Pity is how many pulls remain before the banner's 5-star
// guarantee triggers, as seen at row i.
func (s Sequence) PullsLeftTo5Pity(i int) int {
	left := s.Banner.PityCount() - s.PullsInto5Star(i)
	if left < 0 {
		left = 0
	}
	return left
}

// PullsInto4Star is the 4-star analogue. A 5-star also resets the 4-star
// window.
func (s Sequence) PullsInto4Star(i int) int {
	n := 1
	for j := i + 1; j < len(s.Records); j++ {
		if s.Records[j].Star >= 4 {
			break
		}
		n++
	}
	return n
}
