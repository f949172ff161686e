// model/context.go
package model

// AWSAccountContext holds the facts about an AWS account gathered from
// the Organizations API. The policy engine consumes these facts and
// never talks to AWS itself. A context is either complete or the build
// failed; it is never partially populated.
type AWSAccountContext struct {
	// OU ids from the organization root down to the account's parent,
	// root first. Rules can match at any level of the hierarchy.
	OUPathIDs []string `json:"ou_path_ids"`

	// Flattened account tags for O(1) lookup.
	Tags map[string]string `json:"tags"`

	AccountName string `json:"account_name,omitempty"`
}
