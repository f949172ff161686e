// model/record.go
package model

// Grant lifecycle states. Transitions are forward-only:
// PENDING -> ACTIVE -> REVOKED, or any state -> ERROR.
const (
	StatusPending = "PENDING"
	StatusActive  = "ACTIVE"
	StatusRevoked = "REVOKED"
	StatusError   = "ERROR"
)

// AccessRecord is the durable state of one grant. The principal id and
// permission set ARN are recorded at grant time and used verbatim for
// revocation, never re-derived from mutable names.
type AccessRecord struct {
	RequestID         string `json:"request_id" dynamodbav:"request_id"`
	PrincipalID       string `json:"principal_id" dynamodbav:"principal_id"`
	PrincipalType     string `json:"principal_type" dynamodbav:"principal_type"`
	AccountID         string `json:"account_id" dynamodbav:"account_id"`
	PermissionSetArn  string `json:"permission_set_arn" dynamodbav:"permission_set_arn"`
	PermissionSetName string `json:"permission_set_name,omitempty" dynamodbav:"permission_set_name"`
	InstanceArn       string `json:"instance_arn" dynamodbav:"instance_arn"`
	RuleID            string `json:"rule_id" dynamodbav:"rule_id"`
	Status            string `json:"status" dynamodbav:"status"`
	TicketID          string `json:"ticket_id,omitempty" dynamodbav:"ticket_id"`
	RequestedAt       int64  `json:"requested_at" dynamodbav:"requested_at"` // epoch seconds
	ExpiresAt         int64  `json:"expires_at" dynamodbav:"expires_at"`     // epoch seconds
	RevokedAt         int64  `json:"revoked_at,omitempty" dynamodbav:"revoked_at"`
	RevokeAttempts    int    `json:"revoke_attempts,omitempty" dynamodbav:"revoke_attempts"`

	// Optional routing for the asynchronous outcome notification.
	ResponseURL string `json:"response_url,omitempty" dynamodbav:"response_url"`
	ChannelID   string `json:"channel_id,omitempty" dynamodbav:"channel_id"`

	// Storage hygiene only: DynamoDB expunges the item this long after
	// expiry. Unrelated to the authorization status transition.
	TTL int64 `json:"-" dynamodbav:"ttl"`
}
