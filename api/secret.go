package api

import (
	"errors"
	"net/http"
	"strings"
)

// HeaderProjectSecret carries the project's shared secret on every
// project-scoped call.
const HeaderProjectSecret = "X-Project-Secret"

var errMissingSecret = errors.New("missing " + HeaderProjectSecret + " header")

func secretFromHeader(header http.Header) (string, error) {
	values := header.Values(HeaderProjectSecret)
	if len(values) == 0 {
		return "", errMissingSecret
	}
	secret := strings.TrimSpace(values[0])
	if secret == "" {
		return "", errMissingSecret
	}
	return secret, nil
}

// secretMatches is a plain byte-for-byte comparison. This is a shared-secret
// convenience check, not a security boundary against an active adversary.
func secretMatches(presented, stored string) bool {
	return presented == stored
}
