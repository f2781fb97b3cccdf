package study

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mentalytics/internal/i18n"
)

func TestLikertTopLabelIsSeven(t *testing.T) {
	assert.Equal(t, 7, LikertWordToNum(i18n.English, "Agree strongly"))
	assert.Equal(t, 7, LikertWordToNum(i18n.German, "Stimme voll und ganz zu"))
	assert.Equal(t, 7, LikertWordToNum(i18n.French, "Tout à fait d’accord"))
}

func TestLikertFollowsLabelOrder(t *testing.T) {
	for _, lang := range i18n.Supported {
		for i, label := range i18n.Default().List(lang, i18n.ListLikert) {
			assert.Equal(t, i+1, LikertWordToNum(lang, label), "%s %q", lang, label)
		}
	}
}

func TestLikertIgnoresCase(t *testing.T) {
	assert.Equal(t, 1, LikertWordToNum(i18n.English, "disagree STRONGLY"))
	assert.Equal(t, 6, LikertWordToNum(i18n.English, "  Agree moderately "))
}

func TestLikertUnknownIsMidpoint(t *testing.T) {
	assert.Equal(t, 4, LikertWordToNum(i18n.English, "Totally"))
	assert.Equal(t, 4, LikertWordToNum(i18n.English, ""))
	assert.Equal(t, 4, LikertWordToNum(i18n.English, "Stimme voll und ganz zu"), "labels are per locale")
	assert.Equal(t, 4, LikertWordToNum(i18n.English, "9"))
}

func TestLikertAcceptsDigits(t *testing.T) {
	assert.Equal(t, 2, LikertWordToNum(i18n.German, "2"))
	assert.Equal(t, 7, LikertWordToNum(i18n.French, "7"))
}
