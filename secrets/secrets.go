// secrets/secrets.go
package secrets

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/boundary/logging"
)

// SSMAPI is the slice of the SSM client the provider needs.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Provider fetches SecureString parameters and caches them for the
// process lifetime. Rotating a secret requires a restart.
type Provider struct {
	api SSMAPI

	mu    sync.Mutex
	cache map[string]string
}

func NewProvider(api SSMAPI) *Provider {
	return &Provider{api: api, cache: make(map[string]string)}
}

func (p *Provider) Get(ctx context.Context, name string) (string, error) {
	p.mu.Lock()
	if value, ok := p.cache[name]; ok {
		p.mu.Unlock()
		return value, nil
	}
	p.mu.Unlock()

	out, err := p.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("fetching parameter %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return "", fmt.Errorf("parameter %s is empty", name)
	}

	p.mu.Lock()
	p.cache[name] = *out.Parameter.Value
	p.mu.Unlock()

	logger.Debug("Parameter loaded", zap.String("name", name))
	return *out.Parameter.Value, nil
}
