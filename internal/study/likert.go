package study

import (
	"strconv"
	"strings"

	"mentalytics/internal/i18n"
)

const (
	LikertMin      = 1
	LikertMax      = 7
	LikertMidpoint = 4
)

// LikertWordToNum maps a seven-point label of lang to 1..7 using the embedded
// table. See LikertScore.
func LikertWordToNum(lang i18n.Lang, word string) int {
	return LikertScore(i18n.Default(), lang, word)
}

// LikertScore matches word case-insensitively against the ordered labels of
// lang. Bare digits 1..7 from older records are accepted. Anything else maps
// to the midpoint.
func LikertScore(t *i18n.Table, lang i18n.Lang, word string) int {
	word = strings.TrimSpace(word)
	for i, label := range t.List(lang, i18n.ListLikert) {
		if strings.EqualFold(label, word) {
			return i + 1
		}
	}
	if n, err := strconv.Atoi(word); err == nil && n >= LikertMin && n <= LikertMax {
		return n
	}
	return LikertMidpoint
}
