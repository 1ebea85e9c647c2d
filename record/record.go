// Package record holds the pull-history data model: record rows, banner and
// item taxonomies with their localized in-game labels, and the reconciler
// that merges a fresh scan into previously stored history.
package record

import (
	"errors"
	"fmt"
	"time"
)

// Language selects which localized label set to use for display output.
// Recognition always matches against every language's labels, since the game
// client language is independent of this tool's configuration.
type Language int

const (
	LanguageZH Language = iota
	LanguageEN
)

// Languages lists every supported display language.
var Languages = []Language{LanguageZH, LanguageEN}

func (l Language) String() string {
	if l == LanguageZH {
		return "zh"
	}
	return "en"
}

// ParseLanguage maps a config token onto a Language, defaulting to Chinese.
func ParseLanguage(s string) Language {
	if s == "en" {
		return LanguageEN
	}
	return LanguageZH
}

// ItemType is the category column of a pull record.
type ItemType int

const (
	ItemCharacter ItemType = iota
	ItemWeapon
)

// ItemTypes lists every item category.
var ItemTypes = []ItemType{ItemCharacter, ItemWeapon}

// String returns the canonical token used in persisted files.
func (t ItemType) String() string {
	if t == ItemCharacter {
		return "Character"
	}
	return "Weapon"
}

// Label returns the in-game listing-page label for the language. Note the
// English client calls characters "Operative".
func (t ItemType) Label(lang Language) string {
	switch lang {
	case LanguageZH:
		if t == ItemCharacter {
			return "角色"
		}
		return "武器"
	default:
		if t == ItemCharacter {
			return "Operative"
		}
		return "Weapon"
	}
}

// ItemTypeFromLabel resolves recognized text against the label sets of every
// supported language. No match means the field failed to decode.
func ItemTypeFromLabel(text string) (ItemType, bool) {
	for _, t := range ItemTypes {
		for _, lang := range Languages {
			if text == t.Label(lang) {
				return t, true
			}
		}
	}
	return 0, false
}

// ItemTypeFromToken is the inverse of String, used when loading persisted
// records.
func ItemTypeFromToken(s string) (ItemType, bool) {
	switch s {
	case "Character":
		return ItemCharacter, true
	case "Weapon":
		return ItemWeapon, true
	}
	return 0, false
}

// BannerType identifies one pull-history category. Each banner keeps its own
// independent record sequence.
type BannerType int

const (
	BannerLimitedCharacter100 BannerType = iota
	BannerLimitedWeapon100
	BannerLimitedCharacter50
	BannerLimitedWeapon50
	BannerPermanentCharacter
	BannerPermanentWeapon
	BannerBeginner
)

// BannerTypes lists every banner in menu order.
var BannerTypes = []BannerType{
	BannerLimitedCharacter100,
	BannerLimitedWeapon100,
	BannerLimitedCharacter50,
	BannerLimitedWeapon50,
	BannerPermanentCharacter,
	BannerPermanentWeapon,
	BannerBeginner,
}

// FileName returns the stable per-banner file stem used by the store.
func (b BannerType) FileName() string {
	switch b {
	case BannerLimitedCharacter100:
		return "limited_character_100"
	case BannerLimitedWeapon100:
		return "limited_weapon_100"
	case BannerLimitedCharacter50:
		return "limited_character_50"
	case BannerLimitedWeapon50:
		return "limited_weapon_50"
	case BannerPermanentCharacter:
		return "permanent_character"
	case BannerPermanentWeapon:
		return "permanent_weapon"
	default:
		return "beginner"
	}
}

// PityCount is the guaranteed 5-star ceiling for the banner.
func (b BannerType) PityCount() int {
	switch b {
	case BannerLimitedCharacter100:
		return 100
	case BannerLimitedWeapon100:
		return 80
	case BannerLimitedCharacter50:
		return 80
	case BannerLimitedWeapon50:
		return 60
	case BannerPermanentCharacter:
		return 80
	case BannerPermanentWeapon:
		return 60
	default:
		return 50
	}
}

// DisplayName returns the user-facing banner name.
func (b BannerType) DisplayName(lang Language) string {
	if lang == LanguageZH {
		switch b {
		case BannerLimitedCharacter100:
			return "100%限定角色池"
		case BannerLimitedWeapon100:
			return "100%限定武器池"
		case BannerLimitedCharacter50:
			return "50%限定角色池"
		case BannerLimitedWeapon50:
			return "50%限定武器池"
		case BannerPermanentCharacter:
			return "常驻角色池"
		case BannerPermanentWeapon:
			return "常驻武器池"
		default:
			return "新手池"
		}
	}
	switch b {
	case BannerLimitedCharacter100:
		return "100% Limited Character Banner"
	case BannerLimitedWeapon100:
		return "100% Limited Weapon Banner"
	case BannerLimitedCharacter50:
		return "50% Limited Character Banner"
	case BannerLimitedWeapon50:
		return "50% Limited Weapon Banner"
	case BannerPermanentCharacter:
		return "Permanent Character Banner"
	case BannerPermanentWeapon:
		return "Permanent Weapon Banner"
	default:
		return "Beginner Banner"
	}
}

// TimeLayout is the single date-time format shown on listing pages.
const TimeLayout = "2006-01-02 15:04"

// Record is one pull. Immutable once constructed.
type Record struct {
	Star      uint8
	ItemName  string
	ItemType  ItemType
	Timestamp int64
}

// TimeString renders the timestamp in the listing page's format, local time.
func (r Record) TimeString() string {
	return time.Unix(r.Timestamp, 0).Local().Format(TimeLayout)
}

// ErrOrderViolation reports a merge whose assembled result is not in
// non-increasing timestamp order. The merge is rejected; callers keep both
// inputs for inspection instead of trusting a repaired sequence.
var ErrOrderViolation = errors.New("merged records out of time order")

// Merge combines a freshly scanned sequence with stored history. Both inputs
// are newest-first. It returns the merged sequence and how many entries the
// side treated as newer contributed; when one side is empty the other is
// returned whole and counts fully as added.
//
// Whichever side has the later first timestamp is treated as the new side; at
// most one swap is ever needed, so the two branches below cover all cases
// without recursion. The overlap length k is the largest count of trailing
// new entries that exactly equal the leading old entries.
func Merge(fresh, old []Record) ([]Record, int, error) {
	if len(fresh) == 0 {
		return append([]Record(nil), old...), len(old), nil
	}
	if len(old) == 0 {
		return append([]Record(nil), fresh...), len(fresh), nil
	}

	newer, older := fresh, old
	if fresh[0].Timestamp < old[0].Timestamp {
		newer, older = old, fresh
	}

	k := overlap(newer, older)
	merged := make([]Record, 0, len(newer)-k+len(older))
	merged = append(merged, newer[:len(newer)-k]...)
	merged = append(merged, older...)

	if i, ok := firstOrderViolation(merged); ok {
		return nil, 0, fmt.Errorf("%w: index %d (%s after %s)",
			ErrOrderViolation, i, merged[i].TimeString(), merged[i-1].TimeString())
	}

	return merged, len(newer) - k, nil
}

// overlap finds the largest k such that the last k entries of newer equal the
// first k entries of older, comparing full records.
func overlap(newer, older []Record) int {
	max := len(newer)
	if len(older) < max {
		max = len(older)
	}
	for k := max; k >= 1; k-- {
		if sliceEqual(newer[len(newer)-k:], older[:k]) {
			return k
		}
	}
	return 0
}

func sliceEqual(a, b []Record) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// firstOrderViolation returns the first index whose timestamp is later than
// its predecessor's, scanning newest-first order.
func firstOrderViolation(records []Record) (int, bool) {
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp > records[i-1].Timestamp {
			return i, true
		}
	}
	return 0, false
}
