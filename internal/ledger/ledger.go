// Package ledger stores transactions and awards and enforces the game's two
// hard rules: message ids are unique, and a transaction is awarded at most
// once.
package ledger

import (
	"encoding/hex"
	"errors"

	"github.com/google/uuid"

	"mining-game/internal/models"
)

var (
	// ErrUnknownTransaction means no transaction carries that message id.
	ErrUnknownTransaction = errors.New("ledger: unknown transaction")
	// ErrAlreadyAwarded means the transaction already has a winner.
	ErrAlreadyAwarded = errors.New("ledger: transaction already awarded")
)

// Score is one row of the scoreboard.
type Score struct {
	UserID string
	Awards int
}

// Store is the ledger behind the game coordinator. Implementations must
// make RecordAward a single atomic check-and-insert: when several callers
// race on the same transaction, exactly one receives the award and the rest
// get ErrAlreadyAwarded.
type Store interface {
	// CreateTransaction persists a new transaction with a fresh message id
	// at the given difficulty.
	CreateTransaction(difficulty int, message string) (*models.Transaction, error)

	// Transaction finds a transaction by message id.
	Transaction(messageID string) (*models.Transaction, error)

	// Transactions lists every transaction in creation order.
	Transactions() ([]models.Transaction, error)

	// RecordAward marks userID as the winner of the transaction, once.
	RecordAward(userID, messageID string, nonce uint64) (*models.Award, error)

	// Awards lists every award in creation order.
	Awards() ([]models.Award, error)

	// Scores aggregates awards per user, most awards first, ties broken by
	// user id.
	Scores() ([]Score, error)
}

// createAttempts bounds the regenerate-on-collision fallback for message
// ids. Collisions on 32 bits of randomness are already vanishingly rare.
const createAttempts = 5

// newMessageID returns a fresh 8-character lowercase hex token.
func newMessageID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:4])
}
