package errors

import "errors"

var (
	// Rejected before any external call is made.
	ErrInvalidInput = errors.New("invalid input")

	// Ingress verification failure. Nothing downstream runs.
	ErrSignature = errors.New("signature verification failed")

	// Directory lookups failed or returned an ambiguous/empty result.
	ErrIdentityResolution = errors.New("identity resolution failed")

	// Hierarchy or tag facts could not be gathered completely.
	ErrContextBuild = errors.New("account context build failed")

	// The principal belongs to no group that could authorize access.
	ErrNoEligibleGroup = errors.New("no eligible group")

	// The grant mutation against AWS failed; the record is never ACTIVE.
	ErrProvisioning = errors.New("provisioning failed")

	// The janitor could not revoke; the record stays ACTIVE for retry.
	ErrRevocation = errors.New("revocation failed")

	// Retryable with backoff; everything else fails closed.
	ErrRateLimited = errors.New("rate limited")

	ErrRecordConflict = errors.New("access record conflict")
	ErrRecordNotFound = errors.New("access record not found")
)
