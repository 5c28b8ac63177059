// Package airflow implements the data-plane client for the Airflow REST API
// embedded in an MWAA environment. Authentication bridges a control-plane CLI
// credential into a bearer token for the webserver.
package airflow

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// The control plane returns CLI credentials as base64 text of the shape
// "Bearer token <value>". The two-word prefix has been observed to drift
// across MWAA releases, so anything that decodes cleanly but doesn't match is
// used verbatim rather than rejected.
const (
	tokenPrefixScheme = "Bearer"
	tokenPrefixLabel  = "token"
)

// DeriveToken turns a base64 CLI credential blob into the bearer token used
// against the webserver API. Only malformed base64 or non-UTF-8 content is an
// error: that means a broken credential, and the client must not be built
// with it.
func DeriveToken(credential string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(credential))
	if err != nil {
		return "", fmt.Errorf("decoding CLI credential: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("decoding CLI credential: content is not valid UTF-8")
	}

	decoded := string(raw)
	parts := strings.SplitN(decoded, " ", 3)
	if len(parts) == 3 && parts[0] == tokenPrefixScheme && parts[1] == tokenPrefixLabel {
		return parts[2], nil
	}

	// Unexpected prefix or too few fields: permissive fallback.
	return decoded, nil
}
