// Package mint issues the identifier hierarchy: sequential team ids,
// opaque team codes, derived participant ids, access keys and OTP codes.
//
// Uniqueness discipline differs per identifier:
//   - team id: ordering comes from count(teams)+1 read inside the same
//     transaction that inserts the team; the UNIQUE index rejects the
//     loser of a race and the caller retries.
//   - team code: crypto-random; collisions (36^6 space) are detected by
//     the UNIQUE index and the caller re-mints, budget 8.
//   - participant id: deterministic from team code + member index, no
//     randomness needed.
//   - access key: random, uniqueness not required.
package mint

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	teamCodeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	accessKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	teamCodeLen = 6
	// AccessKeyLen is the length of download access keys.
	AccessKeyLen = 10
	// CodeRetryBudget bounds team-code re-mints on index collision.
	CodeRetryBudget = 8
)

// TeamID formats the sequential team id, e.g. TeamID("HACK2026", 7)
// returns "HACK2026-007". Padding grows naturally past 999.
func TeamID(prefix string, seq int) string {
	return fmt.Sprintf("%s-%03d", prefix, seq)
}

// TeamCode returns a fresh "TEAM-XXXXXX" code with X drawn uniformly
// from [A-Z0-9] using a cryptographic source.
func TeamCode() string {
	return "TEAM-" + randomString(teamCodeAlphabet, teamCodeLen)
}

// ParticipantID derives the per-member id from the team code and the
// 0-based member index: "TEAM-K9X2V5-000".
func ParticipantID(teamCode string, index int) string {
	return fmt.Sprintf("%s-%03d", teamCode, index)
}

// AccessKey returns a random mixed-case alphanumeric key of n chars.
func AccessKey(n int) string {
	return randomString(accessKeyAlphabet, n)
}

// OTP returns a uniform random 6-digit decimal string, leading zeros
// included (the space is the full 10^6).
func OTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// nothing sensible can continue in that state.
		panic(fmt.Sprintf("mint: crypto/rand failed: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func randomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("mint: crypto/rand failed: %v", err))
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}
