package ledger

import (
	"sort"
	"sync"
	"time"

	"mining-game/internal/models"
)

// MemStore is the in-memory ledger used when no database is configured, and
// in tests. A single mutex serializes every operation, which keeps the
// award check-and-insert atomic.
type MemStore struct {
	mu           sync.Mutex
	nextTxID     uint
	nextAwardID  uint
	transactions map[string]*models.Transaction // message id -> transaction
	order        []string                       // message ids in creation order
	awards       map[uint]*models.Award         // transaction id -> award
}

func NewMemStore() *MemStore {
	return &MemStore{
		transactions: make(map[string]*models.Transaction),
		awards:       make(map[uint]*models.Award),
	}
}

func (s *MemStore) CreateTransaction(difficulty int, message string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newMessageID()
	for {
		if _, taken := s.transactions[id]; !taken {
			break
		}
		id = newMessageID()
	}

	s.nextTxID++
	tx := &models.Transaction{
		ID:         s.nextTxID,
		MessageID:  id,
		Difficulty: difficulty,
		Message:    message,
		CreatedAt:  time.Now(),
	}
	s.transactions[id] = tx
	s.order = append(s.order, id)

	copied := *tx
	return &copied, nil
}

func (s *MemStore) Transaction(messageID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[messageID]
	if !ok {
		return nil, ErrUnknownTransaction
	}
	copied := *tx
	return &copied, nil
}

func (s *MemStore) Transactions() ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := make([]models.Transaction, 0, len(s.order))
	for _, id := range s.order {
		txs = append(txs, *s.transactions[id])
	}
	return txs, nil
}

func (s *MemStore) RecordAward(userID, messageID string, nonce uint64) (*models.Award, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[messageID]
	if !ok {
		return nil, ErrUnknownTransaction
	}
	if _, taken := s.awards[tx.ID]; taken {
		return nil, ErrAlreadyAwarded
	}

	s.nextAwardID++
	award := &models.Award{
		ID:            s.nextAwardID,
		UserID:        userID,
		TransactionID: tx.ID,
		Nonce:         nonce,
		CreatedAt:     time.Now(),
	}
	s.awards[tx.ID] = award

	copied := *award
	return &copied, nil
}

func (s *MemStore) Awards() ([]models.Award, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	awards := make([]models.Award, 0, len(s.awards))
	for _, award := range s.awards {
		awards = append(awards, *award)
	}
	sort.Slice(awards, func(i, j int) bool { return awards[i].ID < awards[j].ID })
	return awards, nil
}

func (s *MemStore) Scores() ([]Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, award := range s.awards {
		counts[award.UserID]++
	}

	scores := make([]Score, 0, len(counts))
	for user, n := range counts {
		scores = append(scores, Score{UserID: user, Awards: n})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Awards != scores[j].Awards {
			return scores[i].Awards > scores[j].Awards
		}
		return scores[i].UserID < scores[j].UserID
	})
	return scores, nil
}
