// Package protocol implements the two line formats the game layers on top
// of the chat transport: challenges broadcast by the coordinator and
// submissions sent back by miners.
//
//	TX:<message_id>:<difficulty>:<payload>
//	INV:<difficulty>:<message_id>:<nonce>
//
// A message id is exactly 8 lowercase hex characters and a difficulty is 1
// or 2 decimal digits. The payload is the final challenge field, so it may
// itself contain colons.
package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mining-game/internal/models"
)

var (
	challengeRxp  = regexp.MustCompile(`^TX:([0-9a-f]{8}):([0-9]{1,2}):(.*)$`)
	submissionRxp = regexp.MustCompile(`^INV:([0-9]{1,2}):([0-9a-f]{8}):([0-9]+)$`)
)

var (
	// ErrBadLine is returned for lines that do not match a known format.
	ErrBadLine = errors.New("protocol: malformed line")
	// ErrBadNonce is returned when a submission nonce does not fit uint64.
	ErrBadNonce = errors.New("protocol: nonce out of range")
)

// Challenge is the decoded form of a TX line.
type Challenge struct {
	MessageID  string
	Difficulty int
	Message    string
}

// Submission is the decoded form of an INV line. Difficulty is whatever
// target the submitter claims to have mined at; it is informational only
// and must never be used for validation.
type Submission struct {
	Difficulty int
	MessageID  string
	Nonce      uint64
}

// IsChallenge reports whether line claims to be a challenge, whether or not
// it parses cleanly.
func IsChallenge(line string) bool { return strings.HasPrefix(line, "TX:") }

// IsSubmission reports whether line claims to be a submission, whether or
// not it parses cleanly.
func IsSubmission(line string) bool { return strings.HasPrefix(line, "INV:") }

// EncodeChallenge renders the broadcast line for a stored transaction.
func EncodeChallenge(tx *models.Transaction) string {
	return fmt.Sprintf("TX:%s:%d:%s", tx.MessageID, tx.Difficulty, tx.Message)
}

// ParseChallenge decodes a TX line.
func ParseChallenge(line string) (Challenge, error) {
	m := challengeRxp.FindStringSubmatch(line)
	if m == nil {
		return Challenge{}, fmt.Errorf("%w: %q", ErrBadLine, line)
	}
	difficulty, err := strconv.Atoi(m[2])
	if err != nil {
		return Challenge{}, fmt.Errorf("%w: %q", ErrBadLine, line)
	}
	return Challenge{MessageID: m[1], Difficulty: difficulty, Message: m[3]}, nil
}

// EncodeSubmission renders the answer line for a solved challenge.
func EncodeSubmission(sub Submission) string {
	return fmt.Sprintf("INV:%d:%s:%d", sub.Difficulty, sub.MessageID, sub.Nonce)
}

// ParseSubmission decodes an INV line.
func ParseSubmission(line string) (Submission, error) {
	m := submissionRxp.FindStringSubmatch(line)
	if m == nil {
		return Submission{}, fmt.Errorf("%w: %q", ErrBadLine, line)
	}
	difficulty, err := strconv.Atoi(m[1])
	if err != nil {
		return Submission{}, fmt.Errorf("%w: %q", ErrBadLine, line)
	}
	nonce, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: %q", ErrBadNonce, m[3])
	}
	return Submission{Difficulty: difficulty, MessageID: m[2], Nonce: nonce}, nil
}
