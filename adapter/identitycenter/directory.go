// adapter/identitycenter/directory.go
package identitycenter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/identitystore/document"
	idstypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"

	boundary_errors "github.com/dev-mohitbeniwal/boundary/errors"
)

// IdentityStoreAPI is the slice of the Identity Store client the
// directory needs.
type IdentityStoreAPI interface {
	GetUserId(ctx context.Context, params *identitystore.GetUserIdInput, optFns ...func(*identitystore.Options)) (*identitystore.GetUserIdOutput, error)
	ListGroupMembershipsForMember(ctx context.Context, params *identitystore.ListGroupMembershipsForMemberInput, optFns ...func(*identitystore.Options)) (*identitystore.ListGroupMembershipsForMemberOutput, error)
}

// Directory translates emails into immutable Identity Center user ids
// and lists the groups a user belongs to.
type Directory struct {
	api     IdentityStoreAPI
	storeID string
}

func NewDirectory(api IdentityStoreAPI, identityStoreID string) (*Directory, error) {
	if !strings.HasPrefix(identityStoreID, "d-") {
		return nil, fmt.Errorf("a valid identity store id (d-...) is required, got %q: %w", identityStoreID, boundary_errors.ErrInvalidInput)
	}
	return &Directory{api: api, storeID: identityStoreID}, nil
}

// UserIDByEmail resolves an email to exactly one immutable user id.
// Not-found is fatal: the system never guesses or falls back to an
// unresolved identity. Throttling maps to ErrRateLimited so the
// resolver layer can back off.
func (d *Directory) UserIDByEmail(ctx context.Context, email string) (string, error) {
	out, err := d.api.GetUserId(ctx, &identitystore.GetUserIdInput{
		IdentityStoreId: aws.String(d.storeID),
		AlternateIdentifier: &idstypes.AlternateIdentifierMemberUniqueAttribute{
			Value: idstypes.UniqueAttribute{
				AttributePath:  aws.String("emails.value"),
				AttributeValue: document.NewLazyDocument(email),
			},
		},
	})
	if err != nil {
		var notFound *idstypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("email is not registered in the identity store: %w", boundary_errors.ErrIdentityResolution)
		}
		var throttled *idstypes.ThrottlingException
		if errors.As(err, &throttled) {
			return "", fmt.Errorf("identity store throttled: %w", boundary_errors.ErrRateLimited)
		}
		return "", fmt.Errorf("identity store lookup: %v: %w", err, boundary_errors.ErrIdentityResolution)
	}

	if out.UserId == nil || *out.UserId == "" {
		return "", fmt.Errorf("identity store returned no user id: %w", boundary_errors.ErrIdentityResolution)
	}
	return *out.UserId, nil
}

// GroupIDs returns every group the user belongs to, paginating fully.
// An empty result is legitimate, not an error; the workflow decides
// what "no eligible group" means.
func (d *Directory) GroupIDs(ctx context.Context, userID string) ([]string, error) {
	var groups []string
	var nextToken *string

	for {
		out, err := d.api.ListGroupMembershipsForMember(ctx, &identitystore.ListGroupMembershipsForMemberInput{
			IdentityStoreId: aws.String(d.storeID),
			MemberId:        &idstypes.MemberIdMemberUserId{Value: userID},
			NextToken:       nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("listing group memberships: %v: %w", err, boundary_errors.ErrIdentityResolution)
		}

		for _, membership := range out.GroupMemberships {
			if membership.GroupId != nil {
				groups = append(groups, *membership.GroupId)
			}
		}

		if out.NextToken == nil {
			return groups, nil
		}
		nextToken = out.NextToken
	}
}
