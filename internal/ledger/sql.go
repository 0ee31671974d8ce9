package ledger

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"mining-game/internal/models"
)

// pgUniqueViolation is the PostgreSQL error code for a unique constraint
// violation, matched when the gorm error translation is not in play.
const pgUniqueViolation = "23505"

// SQLStore is the gorm-backed ledger. Message-id uniqueness and the
// one-award-per-transaction rule are enforced by the schema's unique
// indexes, so the check-and-insert is serialized by the database rather
// than by callers.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps an open gorm handle. The schema must already be
// migrated, see db.AutoMigrate.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) CreateTransaction(difficulty int, message string) (*models.Transaction, error) {
	var lastErr error
	for i := 0; i < createAttempts; i++ {
		tx := &models.Transaction{
			MessageID:  newMessageID(),
			Difficulty: difficulty,
			Message:    message,
		}
		err := s.db.Create(tx).Error
		if err == nil {
			return tx, nil
		}
		if !isDuplicate(err) {
			return nil, fmt.Errorf("create transaction: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("create transaction: message id kept colliding: %w", lastErr)
}

func (s *SQLStore) Transaction(messageID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Where("message_id = ?", messageID).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownTransaction
	}
	if err != nil {
		return nil, fmt.Errorf("lookup transaction %s: %w", messageID, err)
	}
	return &tx, nil
}

func (s *SQLStore) Transactions() ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.db.Order("id").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *SQLStore) RecordAward(userID, messageID string, nonce uint64) (*models.Award, error) {
	tx, err := s.Transaction(messageID)
	if err != nil {
		return nil, err
	}

	award := &models.Award{
		UserID:        userID,
		TransactionID: tx.ID,
		Nonce:         nonce,
	}
	if err := s.db.Omit("Transaction").Create(award).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrAlreadyAwarded
		}
		return nil, fmt.Errorf("record award for %s: %w", messageID, err)
	}
	return award, nil
}

func (s *SQLStore) Awards() ([]models.Award, error) {
	var awards []models.Award
	if err := s.db.Order("id").Find(&awards).Error; err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	return awards, nil
}

func (s *SQLStore) Scores() ([]Score, error) {
	var scores []Score
	err := s.db.Model(&models.Award{}).
		Select("user_id, count(*) as awards").
		Group("user_id").
		Order("awards desc, user_id").
		Scan(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("scores: %w", err)
	}
	return scores, nil
}

// isDuplicate matches unique constraint violations across the supported
// dialects: the translated gorm error where TranslateError is on, and the
// raw PostgreSQL code where it is not.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
