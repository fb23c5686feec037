// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DeviceHintLength is the number of hex characters in a device hint.
const DeviceHintLength = 16

// DeviceHint computes an opaque device fingerprint from the requesting
// browser's user agent, its IP, and a deployment-specific seed:
// SHA-256 of "userAgent:ip:seed", truncated to 16 hex characters.
//
// The hint is a conflict-detection tag only. It is never enforced as a hard
// lock: two devices with the same hint are indistinguishable and that is
// acceptable.
func DeviceHint(userAgent, ip, seed string) string {
	sum := sha256.Sum256([]byte(userAgent + ":" + ip + ":" + seed))
	return hex.EncodeToString(sum[:])[:DeviceHintLength]
}

// HashTeamCode normalizes and hashes a team access code for database lookup.
// Codes are case-insensitive and surrounding whitespace is ignored; the
// stored value is the full SHA-256 hex digest, so raw codes never land in
// the database.
func HashTeamCode(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
