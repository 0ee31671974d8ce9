package ledger_test

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mining-game/internal/config"
	"mining-game/internal/db"
	"mining-game/internal/ledger"
)

var messageIDRxp = regexp.MustCompile(`^[0-9a-f]{8}$`)

// openStores builds one store per implementation. The SQL store runs on a
// throwaway sqlite database so the tests cover the real schema, indexes and
// error translation.
func openStores(t *testing.T) map[string]ledger.Store {
	t.Helper()

	cfg := config.Config{
		DBDialect: config.DatabaseSchemeSQLite,
		DBDsn:     filepath.Join(t.TempDir(), "ledger.db"),
	}
	gdb, err := db.Open(cfg)
	require.NoError(t, err)
	require.NotNil(t, gdb)
	require.NoError(t, db.AutoMigrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return map[string]ledger.Store{
		"sql":    ledger.NewSQLStore(gdb),
		"memory": ledger.NewMemStore(),
	}
}

func TestCreateTransaction(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			tx, err := store.CreateTransaction(3, "Alice sends 42 to Bob")
			require.NoError(t, err)
			assert.NotZero(t, tx.ID)
			assert.Regexp(t, messageIDRxp, tx.MessageID)
			assert.Equal(t, 3, tx.Difficulty)
			assert.Equal(t, "Alice sends 42 to Bob", tx.Message)
			assert.False(t, tx.CreatedAt.IsZero())

			other, err := store.CreateTransaction(1, "Bob sends 7 to Eve")
			require.NoError(t, err)
			assert.NotEqual(t, tx.MessageID, other.MessageID)
			assert.Greater(t, other.ID, tx.ID)
		})
	}
}

func TestTransactionLookup(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Transaction("deadbeef")
			assert.ErrorIs(t, err, ledger.ErrUnknownTransaction)

			created, err := store.CreateTransaction(2, "Eve sends 9 to Alice")
			require.NoError(t, err)

			found, err := store.Transaction(created.MessageID)
			require.NoError(t, err)
			assert.Equal(t, created.ID, found.ID)
			assert.Equal(t, created.Difficulty, found.Difficulty)
			assert.Equal(t, created.Message, found.Message)
		})
	}
}

func TestTransactionsInCreationOrder(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			var want []string
			for i := 0; i < 5; i++ {
				tx, err := store.CreateTransaction(i, fmt.Sprintf("payload %d", i))
				require.NoError(t, err)
				want = append(want, tx.MessageID)
			}

			txs, err := store.Transactions()
			require.NoError(t, err)
			require.Len(t, txs, 5)
			for i, tx := range txs {
				assert.Equal(t, want[i], tx.MessageID)
				assert.Equal(t, i, tx.Difficulty)
			}

			// listing must not disturb the stored order
			again, err := store.Transactions()
			require.NoError(t, err)
			assert.Equal(t, txs, again)
		})
	}
}

func TestRecordAward(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			tx, err := store.CreateTransaction(0, "Alice sends 1 to Bob")
			require.NoError(t, err)

			award, err := store.RecordAward("miner1", tx.MessageID, 45982)
			require.NoError(t, err)
			assert.Equal(t, "miner1", award.UserID)
			assert.Equal(t, tx.ID, award.TransactionID)
			assert.Equal(t, uint64(45982), award.Nonce)
			assert.False(t, award.CreatedAt.IsZero())

			// second valid proof arrives too late
			_, err = store.RecordAward("miner2", tx.MessageID, 99)
			assert.ErrorIs(t, err, ledger.ErrAlreadyAwarded)

			// the winner cannot double-claim either
			_, err = store.RecordAward("miner1", tx.MessageID, 45982)
			assert.ErrorIs(t, err, ledger.ErrAlreadyAwarded)

			_, err = store.RecordAward("miner1", "deadbeef", 1)
			assert.ErrorIs(t, err, ledger.ErrUnknownTransaction)

			awards, err := store.Awards()
			require.NoError(t, err)
			require.Len(t, awards, 1)
			assert.Equal(t, "miner1", awards[0].UserID)
		})
	}
}

func TestRecordAwardConcurrent(t *testing.T) {
	store := ledger.NewMemStore()
	tx, err := store.CreateTransaction(0, "race me")
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := store.RecordAward(fmt.Sprintf("user%02d", n), tx.MessageID, uint64(n))
			if err == nil {
				atomic.AddInt32(&wins, 1)
			} else {
				assert.ErrorIs(t, err, ledger.ErrAlreadyAwarded)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins, "exactly one racer may win")

	awards, err := store.Awards()
	require.NoError(t, err)
	assert.Len(t, awards, 1)
}

func TestScores(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			scores, err := store.Scores()
			require.NoError(t, err)
			assert.Empty(t, scores)

			for i, winner := range []string{"carol", "alice", "bob", "alice"} {
				tx, err := store.CreateTransaction(0, fmt.Sprintf("payload %d", i))
				require.NoError(t, err)
				_, err = store.RecordAward(winner, tx.MessageID, uint64(i))
				require.NoError(t, err)
			}

			scores, err = store.Scores()
			require.NoError(t, err)
			require.Len(t, scores, 3)
			assert.Equal(t, ledger.Score{UserID: "alice", Awards: 2}, scores[0])
			// bob and carol tie on one award each; user id breaks the tie
			assert.Equal(t, ledger.Score{UserID: "bob", Awards: 1}, scores[1])
			assert.Equal(t, ledger.Score{UserID: "carol", Awards: 1}, scores[2])
		})
	}
}
