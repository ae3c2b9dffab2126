package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"go.uber.org/zap"
)

// AWSConfig selects the region and, for LocalStack, a custom endpoint
type AWSConfig struct {
	Region   string
	Profile  string
	Endpoint string
}

type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSource reads secrets from AWS Secrets Manager
type AWSSource struct {
	client secretsManagerAPI
	logger *zap.Logger
}

var _ ports.SecretSource = (*AWSSource)(nil)

// NewAWSSource loads credentials through the default chain (IAM role in
// production, a named profile locally)
func NewAWSSource(ctx context.Context, cfg AWSConfig, logger *zap.Logger) (*AWSSource, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager source initialized", zap.String("region", cfg.Region))
	return &AWSSource{
		client: secretsmanager.NewFromConfig(awsConfig, clientOptions...),
		logger: logger,
	}, nil
}

// GetSecret accepts a secret name or a full ARN
func (s *AWSSource) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	start := time.Now()
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		s.logger.Error("Failed to retrieve secret", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	s.logger.Debug("Secret retrieved from AWS",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)),
	)

	secret := &ports.Secret{
		Value:    aws.ToString(result.SecretString),
		Version:  aws.ToString(result.VersionId),
		Metadata: map[string]string{},
	}
	if result.ARN != nil {
		secret.Metadata["arn"] = *result.ARN
	}
	return secret, nil
}
