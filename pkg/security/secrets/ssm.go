package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ssmAPI is the subset of *ssm.Client used by SSMProvider.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMProvider loads secrets from AWS Systems Manager Parameter Store.
// Parameters are read with decryption so SecureString values work.
type SSMProvider struct {
	api    ssmAPI
	prefix string
}

// NewSSMProvider creates a provider reading parameters at prefix + name.
func NewSSMProvider(api ssmAPI, prefix string) *SSMProvider {
	return &SSMProvider{api: api, prefix: prefix}
}

// GetSecret retrieves and decrypts a parameter.
func (p *SSMProvider) GetSecret(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("ssm: secret name is required")
	}
	param := p.prefix + name

	out, err := p.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(param),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s (parameter: %s)", ErrNotFound, name, param)
		}
		return "", fmt.Errorf("ssm: get parameter %q: %w", param, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm: parameter %q has no value", param)
	}
	return *out.Parameter.Value, nil
}

// Name returns the provider name.
func (p *SSMProvider) Name() string {
	return "ssm"
}
