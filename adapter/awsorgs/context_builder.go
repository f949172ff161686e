// adapter/awsorgs/context_builder.go
package awsorgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"

	boundary_errors "github.com/dev-mohitbeniwal/boundary/errors"

	"github.com/dev-mohitbeniwal/boundary/model"
)

// maxHierarchyDepth bounds the parent climb so a malformed or cyclic
// hierarchy response cannot loop forever.
const maxHierarchyDepth = 10

// API is the slice of the Organizations client the builder needs.
// Tests substitute a mock; production passes *organizations.Client.
type API interface {
	ListParents(ctx context.Context, params *organizations.ListParentsInput, optFns ...func(*organizations.Options)) (*organizations.ListParentsOutput, error)
	ListTagsForResource(ctx context.Context, params *organizations.ListTagsForResourceInput, optFns ...func(*organizations.Options)) (*organizations.ListTagsForResourceOutput, error)
}

// ContextBuilder gathers the account facts the policy engine evaluates
// against. Both sub-operations must succeed or the whole build fails;
// a partial context is never returned.
type ContextBuilder struct {
	api API
}

func NewContextBuilder(api API) *ContextBuilder {
	return &ContextBuilder{api: api}
}

func (b *ContextBuilder) BuildAccountContext(ctx context.Context, accountID string) (model.AWSAccountContext, error) {
	ouPath, err := b.ouPath(ctx, accountID)
	if err != nil {
		return model.AWSAccountContext{}, err
	}

	tags, err := b.accountTags(ctx, accountID)
	if err != nil {
		return model.AWSAccountContext{}, err
	}

	return model.AWSAccountContext{OUPathIDs: ouPath, Tags: tags}, nil
}

// ouPath climbs parent references iteratively from the account to the
// organization root, prepending each parent so the root ends up first.
// A broken or partial hierarchy is a fatal error, never a short path:
// a short path could mis-scope authorization.
func (b *ContextBuilder) ouPath(ctx context.Context, accountID string) ([]string, error) {
	var path []string
	current := accountID

	for depth := 0; depth < maxHierarchyDepth; depth++ {
		out, err := b.api.ListParents(ctx, &organizations.ListParentsInput{ChildId: aws.String(current)})
		if err != nil {
			return nil, fmt.Errorf("listing parents of %s: %v: %w", current, err, boundary_errors.ErrContextBuild)
		}

		if len(out.Parents) == 0 {
			return nil, fmt.Errorf("hierarchy broken: no parents found for %s: %w", current, boundary_errors.ErrContextBuild)
		}

		parent := out.Parents[0]
		if parent.Id == nil || *parent.Id == "" {
			return nil, fmt.Errorf("hierarchy broken: parent of %s has no id: %w", current, boundary_errors.ErrContextBuild)
		}

		switch parent.Type {
		case orgtypes.ParentTypeRoot:
			path = append([]string{*parent.Id}, path...)
			return path, nil
		case orgtypes.ParentTypeOrganizationalUnit:
			path = append([]string{*parent.Id}, path...)
			current = *parent.Id
		default:
			return nil, fmt.Errorf("hierarchy broken: unexpected parent type %q for %s: %w", parent.Type, current, boundary_errors.ErrContextBuild)
		}
	}

	return nil, fmt.Errorf("hierarchy deeper than %d levels without reaching root for %s: %w", maxHierarchyDepth, accountID, boundary_errors.ErrContextBuild)
}

// accountTags fetches all tags for the account, paginating until no
// further pages are indicated. A permission-denied response is treated
// as "no tags": absence of tags can only make tag rules not match,
// which is conservative. Any other error is fatal.
func (b *ContextBuilder) accountTags(ctx context.Context, accountID string) (map[string]string, error) {
	tags := make(map[string]string)
	var nextToken *string

	for {
		out, err := b.api.ListTagsForResource(ctx, &organizations.ListTagsForResourceInput{
			ResourceId: aws.String(accountID),
			NextToken:  nextToken,
		})
		if err != nil {
			var denied *orgtypes.AccessDeniedException
			if errors.As(err, &denied) {
				return map[string]string{}, nil
			}
			return nil, fmt.Errorf("listing tags for %s: %v: %w", accountID, err, boundary_errors.ErrContextBuild)
		}

		for _, tag := range out.Tags {
			if tag.Key != nil && tag.Value != nil {
				tags[*tag.Key] = *tag.Value
			}
		}

		if out.NextToken == nil {
			return tags, nil
		}
		nextToken = out.NextToken
	}
}
