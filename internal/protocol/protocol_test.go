package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mining-game/internal/models"
	"mining-game/internal/protocol"
)

func TestEncodeChallenge(t *testing.T) {
	tx := &models.Transaction{
		MessageID:  "29ae9c14",
		Difficulty: 2,
		Message:    "Alice sends 42 to Bob",
	}
	assert.Equal(t, "TX:29ae9c14:2:Alice sends 42 to Bob", protocol.EncodeChallenge(tx))
}

func TestChallengeRoundTrip(t *testing.T) {
	tx := &models.Transaction{
		MessageID:  "f00dbabe",
		Difficulty: 12,
		Message:    "Eve sends 7 to Alice",
	}
	ch, err := protocol.ParseChallenge(protocol.EncodeChallenge(tx))
	require.NoError(t, err)
	assert.Equal(t, tx.MessageID, ch.MessageID)
	assert.Equal(t, tx.Difficulty, ch.Difficulty)
	assert.Equal(t, tx.Message, ch.Message)
}

func TestParseChallengePayloadWithColons(t *testing.T) {
	ch, err := protocol.ParseChallenge("TX:0a1b2c3d:3:note: pay 10:30, not 10:00")
	require.NoError(t, err)
	assert.Equal(t, "0a1b2c3d", ch.MessageID)
	assert.Equal(t, 3, ch.Difficulty)
	assert.Equal(t, "note: pay 10:30, not 10:00", ch.Message)
}

func TestParseChallengeMalformed(t *testing.T) {
	lines := []string{
		"",
		"TX:",
		"TX:0a1b2c3d",
		"TX:0a1b2c3d:3",       // no payload separator
		"TX:0A1B2C3D:3:msg",   // uppercase id
		"TX:0a1b2c:3:msg",     // id too short
		"TX:0a1b2c3d99:3:msg", // id too long
		"TX:0a1b2c3d:difficulty:msg",
		"TX:0a1b2c3d:123:msg", // difficulty too wide
		"tx:0a1b2c3d:3:msg",   // wrong case tag
		"INV:3:0a1b2c3d:99",   // wrong kind
		"hello everyone",
	}
	for _, line := range lines {
		_, err := protocol.ParseChallenge(line)
		assert.ErrorIs(t, err, protocol.ErrBadLine, "line %q", line)
	}

	// empty payload is still a well-formed line
	ch, err := protocol.ParseChallenge("TX:0a1b2c3d:3:")
	require.NoError(t, err)
	assert.Equal(t, "", ch.Message)
}

func TestSubmissionRoundTrip(t *testing.T) {
	sub := protocol.Submission{Difficulty: 3, MessageID: "29ae9c14", Nonce: 45982}
	line := protocol.EncodeSubmission(sub)
	assert.Equal(t, "INV:3:29ae9c14:45982", line)

	back, err := protocol.ParseSubmission(line)
	require.NoError(t, err)
	assert.Equal(t, sub, back)
}

func TestParseSubmissionMalformed(t *testing.T) {
	lines := []string{
		"",
		"INV:",
		"INV:3:29ae9c14",       // no nonce
		"INV:3:29ae9c14:",      // empty nonce
		"INV:3:29ae9c14:-5",    // negative nonce
		"INV:3:29ae9c14:0x10",  // hex nonce
		"INV:3:29ae9c14:12 34", // trailing junk
		"INV:difficulty:29ae9c14:12",
		"INV:3:29AE9C14:12",     // uppercase id
		"INV:3:29ae9c:12",       // id too short
		"TX:29ae9c14:3:payload", // wrong kind
	}
	for _, line := range lines {
		_, err := protocol.ParseSubmission(line)
		assert.ErrorIs(t, err, protocol.ErrBadLine, "line %q", line)
	}
}

func TestParseSubmissionNonceOverflow(t *testing.T) {
	// one past MaxUint64
	_, err := protocol.ParseSubmission("INV:3:29ae9c14:18446744073709551616")
	assert.ErrorIs(t, err, protocol.ErrBadNonce)

	// MaxUint64 itself still fits
	sub, err := protocol.ParseSubmission("INV:3:29ae9c14:18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), sub.Nonce)
}

func TestKindProbes(t *testing.T) {
	assert.True(t, protocol.IsChallenge("TX:0a1b2c3d:3:msg"))
	assert.True(t, protocol.IsChallenge("TX:garbage"))
	assert.False(t, protocol.IsChallenge("INV:3:0a1b2c3d:1"))

	assert.True(t, protocol.IsSubmission("INV:3:0a1b2c3d:1"))
	assert.True(t, protocol.IsSubmission("INV:garbage"))
	assert.False(t, protocol.IsSubmission("hello"))
}
