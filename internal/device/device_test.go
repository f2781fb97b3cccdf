package device

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOrCreateReturnsSuppliedID(t *testing.T) {
	q := url.Values{QueryParam: []string{"AB12CD"}}

	first, created := GetOrCreate(q)
	assert.False(t, created)
	second, _ := GetOrCreate(q)

	assert.Equal(t, "AB12CD", first)
	assert.Equal(t, first, second)
}

func TestGetOrCreateGeneratesFreshIDs(t *testing.T) {
	first, created := GetOrCreate(nil)
	assert.True(t, created)
	second, _ := GetOrCreate(nil)

	assert.NotEqual(t, first, second)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{6}$`), first)
}

func TestGetOrCreateWritesBack(t *testing.T) {
	q := url.Values{}
	id, created := GetOrCreate(q)

	assert.True(t, created)
	assert.Equal(t, id, q.Get(QueryParam))

	again, created := GetOrCreate(q)
	assert.False(t, created)
	assert.Equal(t, id, again)
}

func TestGetOrCreateIgnoresBlank(t *testing.T) {
	q := url.Values{QueryParam: []string{"   "}}
	id, created := GetOrCreate(q)
	assert.True(t, created)
	assert.Len(t, id, IDLength)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("AB12CD"))
	assert.True(t, Valid("pilot_device-01"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("../etc"))
	assert.False(t, Valid("a/b"))
	assert.False(t, Valid("0123456789012345678901234567890123"))
}
