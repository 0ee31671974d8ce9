package models

import "time"

// Transaction is one broadcast challenge: a payload to be mined at the
// difficulty that was current when it was issued. Difficulty is snapshotted
// at creation and never changes afterwards, so late difficulty moves cannot
// invalidate work already in flight.
type Transaction struct {
	ID         uint   `gorm:"primaryKey"`
	MessageID  string `gorm:"size:8;uniqueIndex;not null"`
	Difficulty int    `gorm:"not null"`
	Message    string `gorm:"not null"`
	CreatedAt  time.Time
}
