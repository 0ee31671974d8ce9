package models

import "time"

// Award records the first valid solver of a transaction. The unique index
// on TransactionID is what guarantees at most one winner per transaction,
// even under concurrent submissions.
type Award struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        string `gorm:"size:128;not null;index"`
	TransactionID uint   `gorm:"uniqueIndex;not null"`
	Nonce         uint64 `gorm:"not null"`
	CreatedAt     time.Time

	Transaction Transaction `gorm:"foreignKey:TransactionID"`
}
