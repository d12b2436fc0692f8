// Package linkcodec converts file record ids to the opaque tokens
// embedded in deep links and back.
//
// The wire format is the URL-safe base64 encoding of the decimal id
// with padding stripped, so tokens stay short and survive being pasted
// into t.me URLs. Decoding performs no existence check: a token that
// decodes cleanly may still point at a deleted record.
package linkcodec

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedToken is returned when a token is not syntactically valid
// or does not decode to a non-negative integer.
var ErrMalformedToken = errors.New("malformed deep-link token")

// Encode returns the opaque token for a file record id.
func Encode(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

// Decode is the inverse of Encode. For every id >= 0,
// Decode(Encode(id)) == id.
func Decode(token string) (int64, error) {
	if token == "" || strings.ContainsRune(token, '=') {
		return 0, ErrMalformedToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrMalformedToken
	}

	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id < 0 {
		return 0, ErrMalformedToken
	}

	return id, nil
}
