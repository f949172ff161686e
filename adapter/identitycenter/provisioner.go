// adapter/identitycenter/provisioner.go
package identitycenter

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/ssoadmin/types"

	boundary_errors "github.com/dev-mohitbeniwal/boundary/errors"
)

// SSOAdminAPI is the slice of the SSO admin client the provisioner
// needs.
type SSOAdminAPI interface {
	CreateAccountAssignment(ctx context.Context, params *ssoadmin.CreateAccountAssignmentInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.CreateAccountAssignmentOutput, error)
	DeleteAccountAssignment(ctx context.Context, params *ssoadmin.DeleteAccountAssignmentInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.DeleteAccountAssignmentOutput, error)
	DescribePermissionSet(ctx context.Context, params *ssoadmin.DescribePermissionSetInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.DescribePermissionSetOutput, error)
}

// Provisioner creates and deletes account assignments in IAM Identity
// Center. Assign and Revoke both take the immutable identifiers
// recorded at grant time.
type Provisioner struct {
	api SSOAdminAPI
}

func NewProvisioner(api SSOAdminAPI) *Provisioner {
	return &Provisioner{api: api}
}

func (p *Provisioner) Assign(ctx context.Context, instanceArn, principalID, principalType, accountID, permissionSetArn string) error {
	_, err := p.api.CreateAccountAssignment(ctx, &ssoadmin.CreateAccountAssignmentInput{
		InstanceArn:      aws.String(instanceArn),
		PermissionSetArn: aws.String(permissionSetArn),
		PrincipalId:      aws.String(principalID),
		PrincipalType:    ssotypes.PrincipalType(principalType),
		TargetId:         aws.String(accountID),
		TargetType:       ssotypes.TargetTypeAwsAccount,
	})
	if err != nil {
		return fmt.Errorf("creating account assignment: %v: %w", err, boundary_errors.ErrProvisioning)
	}
	return nil
}

// Revoke is idempotent: an assignment that is already gone counts as
// revoked, so the janitor can safely call it on every sweep.
func (p *Provisioner) Revoke(ctx context.Context, instanceArn, principalID, principalType, accountID, permissionSetArn string) error {
	_, err := p.api.DeleteAccountAssignment(ctx, &ssoadmin.DeleteAccountAssignmentInput{
		InstanceArn:      aws.String(instanceArn),
		PermissionSetArn: aws.String(permissionSetArn),
		PrincipalId:      aws.String(principalID),
		PrincipalType:    ssotypes.PrincipalType(principalType),
		TargetId:         aws.String(accountID),
		TargetType:       ssotypes.TargetTypeAwsAccount,
	})
	if err != nil {
		var notFound *ssotypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("deleting account assignment: %v: %w", err, boundary_errors.ErrRevocation)
	}
	return nil
}

// PermissionSetName resolves the display name for notifications.
// Callers fall back to the ARN on failure; the decision never depends
// on this lookup.
func (p *Provisioner) PermissionSetName(ctx context.Context, instanceArn, permissionSetArn string) (string, error) {
	out, err := p.api.DescribePermissionSet(ctx, &ssoadmin.DescribePermissionSetInput{
		InstanceArn:      aws.String(instanceArn),
		PermissionSetArn: aws.String(permissionSetArn),
	})
	if err != nil {
		return "", fmt.Errorf("describing permission set: %w", err)
	}
	if out.PermissionSet == nil || out.PermissionSet.Name == nil {
		return "", fmt.Errorf("permission set has no name")
	}
	return *out.PermissionSet.Name, nil
}
