// Package device issues and recovers the short per-device identifier that
// namespaces every persisted record.
package device

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// QueryParam is the URL parameter that carries the identifier between page loads.
const QueryParam = "device"

// IDLength is the length of freshly generated identifiers.
const IDLength = 6

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// New generates a short identifier. Collisions are not checked against
// existing devices.
func New() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:IDLength])
}

// GetOrCreate returns the identifier carried by query, or generates one and
// writes it back into query so a reload or shared link reuses it. The second
// result reports whether a new identifier was issued.
func GetOrCreate(query url.Values) (string, bool) {
	if query != nil {
		if id := query.Get(QueryParam); strings.TrimSpace(id) != "" {
			return id, false
		}
	}
	id := New()
	if query != nil {
		query.Set(QueryParam, id)
	}
	return id, true
}

// Valid reports whether id is safe to use as a storage namespace.
func Valid(id string) bool {
	return validID.MatchString(id)
}
