// Package game implements the coordinator of the mining game: it issues
// transactions, arbitrates proof submissions and keeps the scoreboard.
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"mining-game/internal/ledger"
	"mining-game/internal/models"
	"mining-game/internal/pow"
	"mining-game/internal/ratelimit"
)

// Announcer is the outward voice of the coordinator: public announcements
// into the shared channel and private notices to a single user. The chat
// client implements it; tests plug in fakes.
type Announcer interface {
	Announce(text string) error
	Notice(user, text string) error
}

// NopAnnouncer discards everything.
type NopAnnouncer struct{}

func (NopAnnouncer) Announce(string) error { return nil }

func (NopAnnouncer) Notice(string, string) error { return nil }

// SubmitResult classifies the outcome of one proof submission.
type SubmitResult int

const (
	SubmitWin SubmitResult = iota
	SubmitRateLimited
	SubmitUnknownTransaction
	SubmitInvalidProof
	SubmitTooLate
	SubmitStorageError
)

func (r SubmitResult) String() string {
	switch r {
	case SubmitWin:
		return "win"
	case SubmitRateLimited:
		return "rate limited"
	case SubmitUnknownTransaction:
		return "unknown transaction"
	case SubmitInvalidProof:
		return "invalid proof"
	case SubmitTooLate:
		return "too late"
	case SubmitStorageError:
		return "storage error"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// participant names used for generated transaction payloads
var payloadNames = []string{"Alice", "Bob", "Eve"}

// Game is the coordinator. It owns the difficulty that new transactions are
// issued at; everything already issued keeps its own stored difficulty.
type Game struct {
	log       cmtlog.Logger
	store     ledger.Store
	limiter   *ratelimit.Limiter
	announcer Announcer

	mu         sync.RWMutex
	difficulty int
}

// New builds a coordinator. The starting difficulty is clamped into
// [0, pow.MaxDifficulty]; a nil announcer is replaced by NopAnnouncer.
func New(store ledger.Store, limiter *ratelimit.Limiter, announcer Announcer, difficulty int, log cmtlog.Logger) *Game {
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > pow.MaxDifficulty {
		difficulty = pow.MaxDifficulty
	}
	if announcer == nil {
		announcer = NopAnnouncer{}
	}
	if log == nil {
		log = cmtlog.NewNopLogger()
	}
	return &Game{
		log:        log,
		store:      store,
		limiter:    limiter,
		announcer:  announcer,
		difficulty: difficulty,
	}
}

// Difficulty returns the difficulty new transactions are issued at.
func (g *Game) Difficulty() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.difficulty
}

// SetDifficulty changes the difficulty for future transactions only.
func (g *Game) SetDifficulty(difficulty int) error {
	if difficulty < 0 || difficulty > pow.MaxDifficulty {
		return fmt.Errorf("difficulty %d out of range 0..%d", difficulty, pow.MaxDifficulty)
	}
	g.mu.Lock()
	g.difficulty = difficulty
	g.mu.Unlock()
	g.log.Info("difficulty changed", "difficulty", difficulty)
	return nil
}

// CreateTransaction issues a transaction with a generated payload at the
// current difficulty and persists it.
func (g *Game) CreateTransaction() (*models.Transaction, error) {
	tx, err := g.store.CreateTransaction(g.Difficulty(), randomPayload())
	if err != nil {
		g.log.Error("transaction create failed", "err", err)
		return nil, err
	}
	g.log.Info("transaction created",
		"message_id", tx.MessageID, "difficulty", tx.Difficulty, "message", tx.Message)
	return tx, nil
}

// SubmitProof arbitrates one submission. The proof is checked against the
// difficulty stored with the transaction; whatever difficulty the submitter
// claimed on the wire never reaches this path. The winner announcement goes
// out only after the award is durably recorded.
func (g *Game) SubmitProof(userID, messageID string, nonce uint64) (SubmitResult, error) {
	if !g.limiter.Check(userID) {
		g.log.Info("submission rate limited", "user", userID, "message_id", messageID)
		if err := g.announcer.Notice(userID, "too many submissions, slow down"); err != nil {
			g.log.Error("notice failed", "user", userID, "err", err)
		}
		return SubmitRateLimited, nil
	}

	tx, err := g.store.Transaction(messageID)
	if errors.Is(err, ledger.ErrUnknownTransaction) {
		g.log.Info("submission for unknown transaction", "user", userID, "message_id", messageID)
		return SubmitUnknownTransaction, nil
	}
	if err != nil {
		g.log.Error("transaction lookup failed", "user", userID, "message_id", messageID, "err", err)
		return SubmitStorageError, err
	}

	digest, ok := pow.Validate(nonce, tx.Message, tx.Difficulty)
	if !ok {
		g.log.Info("invalid proof",
			"user", userID, "message_id", messageID, "nonce", nonce, "difficulty", tx.Difficulty)
		return SubmitInvalidProof, nil
	}

	award, err := g.store.RecordAward(userID, messageID, nonce)
	if errors.Is(err, ledger.ErrAlreadyAwarded) {
		g.log.Info("valid proof arrived too late", "user", userID, "message_id", messageID)
		return SubmitTooLate, nil
	}
	if errors.Is(err, ledger.ErrUnknownTransaction) {
		return SubmitUnknownTransaction, nil
	}
	if err != nil {
		g.log.Error("award write failed", "user", userID, "message_id", messageID, "err", err)
		return SubmitStorageError, err
	}

	g.log.Info("award recorded",
		"user", userID, "message_id", messageID, "nonce", nonce, "digest", digest, "award_id", award.ID)
	announcement := fmt.Sprintf("%s mined transaction %s with nonce %d", userID, messageID, nonce)
	if err := g.announcer.Announce(announcement); err != nil {
		g.log.Error("winner announcement failed", "message_id", messageID, "err", err)
	}
	return SubmitWin, nil
}

// Transaction exposes a single ledger entry for the admin surface.
func (g *Game) Transaction(messageID string) (*models.Transaction, error) {
	return g.store.Transaction(messageID)
}

// Transactions exposes the full ledger for the admin surface.
func (g *Game) Transactions() ([]models.Transaction, error) {
	return g.store.Transactions()
}

// Awards exposes the award log for the admin surface.
func (g *Game) Awards() ([]models.Award, error) {
	return g.store.Awards()
}

// Scores exposes the scoreboard.
func (g *Game) Scores() ([]ledger.Score, error) {
	return g.store.Scores()
}

// randomPayload builds a "<A> sends <N> to <B>" message between two
// distinct participants.
func randomPayload() string {
	i := rand.Intn(len(payloadNames))
	j := rand.Intn(len(payloadNames) - 1)
	if j >= i {
		j++
	}
	amount := 1 + rand.Intn(100)
	return fmt.Sprintf("%s sends %d to %s", payloadNames[i], amount, payloadNames[j])
}
