package csv

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"dealercrm/internal/models"
)

const (
	ownerLabel    = "オーナー"
	prospectLabel = "見込み"
)

// ParseStatus maps a status cell to a Status. Any spelling of "owner" in
// katakana (full or half width), hiragana or latin letters yields
// StatusOwner; everything else is StatusRankC.
func ParseStatus(s string) models.Status {
	n := strings.ToUpper(toKatakana(norm.NFKC.String(s)))
	if strings.Contains(n, ownerLabel) || strings.Contains(n, "OWNER") {
		return models.StatusOwner
	}
	return models.StatusRankC
}

// FormatStatus is the export label for a status. Every non-owner status
// is written as a prospect, so ranks do not survive an export/import cycle.
func FormatStatus(s models.Status) string {
	if s == models.StatusOwner {
		return ownerLabel
	}
	return prospectLabel
}

func toKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' {
			return r + ('ァ' - 'ぁ')
		}
		return r
	}, s)
}
