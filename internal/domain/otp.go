package domain

import "time"

// OneTimeCode is the verification code gating account activation.
// PK: user_id — at most one item per user, so a PutItem atomically supersedes
// any earlier code. ExpiresAt doubles as the DynamoDB TTL attribute; expiry is
// enforced lazily on read, the TTL reaper is storage hygiene only.
type OneTimeCode struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Code      int    `json:"-" dynamodbav:"code"`
	CreatedAt int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Live reports whether the code is still valid at the given instant.
func (c *OneTimeCode) Live(now time.Time) bool {
	return now.Unix() < c.ExpiresAt
}
