package i18n

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTableIsComplete(t *testing.T) {
	table, err := Load(embedded)
	require.NoError(t, err)

	for _, lang := range Supported {
		for _, k := range AllKeys {
			assert.NotEqual(t, string(k), table.T(lang, k), "%s:%s", lang, k)
		}
		assert.Len(t, table.List(lang, ListLikert), 7)
	}
}

func TestLoadRejectsMissingKey(t *testing.T) {
	broken := strings.Replace(string(embedded), "    nrs: \"Échelle numérique (NRS)\"\n", "", 1)
	require.NotEqual(t, string(embedded), broken)

	_, err := Load([]byte(broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fr:nrs")
}

func TestLoadRejectsMissingLocale(t *testing.T) {
	_, err := Load([]byte("en:\n  text: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "de:*")
}

func TestTFallsBackToEnglish(t *testing.T) {
	table := Default()
	assert.Equal(t, "Continue", table.T(Lang("it"), KeyContinue))
	assert.Equal(t, "Weiter", table.T(German, KeyContinue))
	assert.Equal(t, "unknown_key", table.T(English, Key("unknown_key")))
}

func TestParseLang(t *testing.T) {
	l, ok := ParseLang(" DE ")
	assert.True(t, ok)
	assert.Equal(t, German, l)

	_, ok = ParseLang("es")
	assert.False(t, ok)
}

func TestOtherAndYesTokens(t *testing.T) {
	table := Default()
	assert.True(t, table.Is(English, ListOther, "other (please specify)"))
	assert.True(t, table.Is(French, ListOther, "Autre (veuillez préciser)"))
	assert.False(t, table.Is(German, ListOther, "Other (please specify)"))
	assert.False(t, table.Is(English, ListOther, ""))

	assert.True(t, table.IsAny(ListOther, "Other (please specify)"))
	assert.True(t, table.IsAny(ListOther, "andere"))
	assert.False(t, table.IsAny(ListOther, "Education"))
	assert.True(t, table.YesAny("oui"))
	assert.False(t, table.YesAny("Nein"))

	assert.True(t, table.Yes(English, "yes"))
	assert.True(t, table.Yes(German, "Ja"))
	assert.False(t, table.Yes(French, "Non"))
}

func TestListReturnsCopy(t *testing.T) {
	table := Default()
	l := table.List(English, ListYesNo)
	l[0] = "mutated"
	assert.Equal(t, "Yes", table.List(English, ListYesNo)[0])
}

func TestBundle(t *testing.T) {
	b := Default().Bundle(French)
	assert.Equal(t, French, b.Lang)
	assert.Equal(t, "Continuer", b.Text[string(KeyContinue)])
	assert.Len(t, b.Lists[string(ListNRS)], 5)
	assert.Len(t, b.Text, len(AllKeys))
}
