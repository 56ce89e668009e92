// Package defines encodes user-supplied key=value defines into a single
// transport-safe token and decodes it back.
//
// Pairs are joined with NUL, which cannot occur in a command-line argument,
// and the result is encoded with standard base64. A single pair therefore
// encodes to the base64 of the pair itself.
package defines

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const separator = "\x00"

var (
	// ErrSeparatorInPair is returned when a pair contains the NUL separator.
	ErrSeparatorInPair = errors.New("define contains a NUL byte")
	// ErrEmptyPair is returned for a zero-length pair, which has no encoding
	// distinct from absence.
	ErrEmptyPair = errors.New("define is empty")
)

// Encode joins pairs in order and encodes them. ok is false when pairs is
// empty: there is no token, and callers must omit the value entirely.
func Encode(pairs []string) (token string, ok bool, err error) {
	if len(pairs) == 0 {
		return "", false, nil
	}
	for i, pair := range pairs {
		if pair == "" {
			return "", false, fmt.Errorf("define %d: %w", i, ErrEmptyPair)
		}
		if strings.Contains(pair, separator) {
			return "", false, fmt.Errorf("define %d: %w", i, ErrSeparatorInPair)
		}
	}
	joined := strings.Join(pairs, separator)
	return base64.StdEncoding.EncodeToString([]byte(joined)), true, nil
}

// Decode is the inverse of Encode. An empty token decodes to no pairs.
func Decode(token string) ([]string, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("failed to decode defines: %w", err)
	}
	return strings.Split(string(raw), separator), nil
}
