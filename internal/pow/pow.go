// Package pow implements the hash puzzle the game is played over: a
// brute-force search for a nonce whose SHA-256 digest clears a
// leading-zeros difficulty target.
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// MaxDifficulty is the number of hex characters in a SHA-256 digest. No
// digest can carry more leading zeros than that, so higher targets are
// unsatisfiable.
const MaxDifficulty = sha256.Size * 2

// checkEvery is how many nonces a search tries between context checks.
const checkEvery = 4096

// Sum returns the lowercase hex SHA-256 digest of s.
func Sum(s string) string {
	digest := sha256.Sum256([]byte(s))
	return hex.EncodeToString(digest[:])
}

// Verify reports whether the first difficulty characters of digest are all
// '0'. Difficulty zero accepts every digest; a difficulty longer than the
// digest accepts none.
func Verify(digest string, difficulty int) bool {
	if difficulty < 0 || difficulty > len(digest) {
		return false
	}
	for _, c := range digest[:difficulty] {
		if c != '0' {
			return false
		}
	}
	return true
}

// Validate hashes "<nonce>:<message>" and returns the digest when it clears
// the difficulty target.
func Validate(nonce uint64, message string, difficulty int) (string, bool) {
	digest := Sum(strconv.FormatUint(nonce, 10) + ":" + message)
	if !Verify(digest, difficulty) {
		return "", false
	}
	return digest, true
}

// Search scans nonces upward from start and returns the smallest one whose
// digest clears the difficulty target, together with that digest. Expected
// work grows as 16^difficulty and the scan is unbounded, so it watches ctx
// and stops early when the caller cancels.
func Search(ctx context.Context, message string, difficulty int, start uint64) (uint64, string, error) {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return 0, "", fmt.Errorf("difficulty %d out of range 0..%d", difficulty, MaxDifficulty)
	}
	for nonce, tried := start, 0; ; nonce, tried = nonce+1, tried+1 {
		if tried%checkEvery == 0 {
			select {
			case <-ctx.Done():
				return 0, "", ctx.Err()
			default:
			}
		}
		if digest, ok := Validate(nonce, message, difficulty); ok {
			return nonce, digest, nil
		}
	}
}
