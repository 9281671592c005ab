package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
)

const (
	// EnvProviderSource is reported in aws.Credentials.Source.
	EnvProviderSource = "ChatDeskEnvProvider"

	// envCredentialTTL bounds how long the SDK cache trusts a retrieved pair,
	// so a changed environment is picked up without restarting the app.
	envCredentialTTL = 5 * time.Minute
)

// EnvProvider implements aws.CredentialsProvider on top of the accessor.
//
// Unlike Get, Retrieve refuses an incomplete pair: an SDK client signing
// requests with empty keys only produces confusing 403s later.
//
// Usage:
//
//	provider := credentials.NewEnvProvider(nil)
//	cfg, _ := config.LoadDefaultConfig(ctx,
//	    config.WithCredentialsProvider(aws.NewCredentialsCache(provider)),
//	)
type EnvProvider struct {
	accessor *Accessor
	now      func() time.Time
}

// NewEnvProvider returns a provider reading through accessor.
// A nil accessor reads the real environment.
func NewEnvProvider(accessor *Accessor) *EnvProvider {
	if accessor == nil {
		accessor = NewAccessor()
	}
	return &EnvProvider{accessor: accessor, now: time.Now}
}

// Retrieve is called by the SDK whenever credentials are needed or expired.
// Safe for concurrent use: the accessor holds no mutable state.
func (p *EnvProvider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	pair, err := p.accessor.Require()
	if err != nil {
		return aws.Credentials{}, err
	}
	if !pair.IsComplete() {
		var missing []string
		if pair.AccessKey == "" {
			missing = append(missing, EnvAccessKeyID)
		}
		if pair.SecretKey == "" {
			missing = append(missing, EnvSecretAccessKey)
		}
		return aws.Credentials{}, &UnavailableError{Missing: missing}
	}

	return aws.Credentials{
		AccessKeyID:     pair.AccessKey,
		SecretAccessKey: pair.SecretKey,
		Source:          EnvProviderSource,
		CanExpire:       true,
		Expires:         p.now().Add(envCredentialTTL),
	}, nil
}

// Resolve picks the provider for an SDK client. Credentials saved in the
// user config win when both halves are present; otherwise the environment
// is used. The result is wrapped in an aws.CredentialsCache.
func Resolve(configured Pair, accessor *Accessor) aws.CredentialsProvider {
	if configured.IsComplete() {
		return aws.NewCredentialsCache(
			awscreds.NewStaticCredentialsProvider(configured.AccessKey, configured.SecretKey, ""),
		)
	}
	return aws.NewCredentialsCache(NewEnvProvider(accessor), func(o *aws.CredentialsCacheOptions) {
		o.ExpiryWindow = time.Minute
	})
}

// Describe reports where Resolve would take credentials from, without
// revealing them.
func Describe(configured Pair, accessor *Accessor) string {
	if configured.IsComplete() {
		return "user config"
	}
	if accessor == nil {
		accessor = NewAccessor()
	}
	if _, err := accessor.Require(); err != nil {
		return fmt.Sprintf("environment (%v)", err)
	}
	return "environment"
}
