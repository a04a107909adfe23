package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/richxcame/tutor-payouts/pkg/config"
)

type awsSource struct {
	client *secretsmanager.Client
}

func newAWSSource(ctx context.Context, cfg config.AWSSecretsConfig) (Source, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("secrets: aws requires region")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		static := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(static)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: aws config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &awsSource{client: client}, nil
}

func (a *awsSource) Backend() Backend { return BackendAWS }

func (a *awsSource) Close() error { return nil }

func (a *awsSource) Read(ctx context.Context, path, version string) (map[string]string, error) {
	in := &secretsmanager.GetSecretValueInput{SecretId: aws.String(path)}
	if version != "" {
		in.VersionId = aws.String(version)
	}

	out, err := a.client.GetSecretValue(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("secrets: aws read %s: %w", path, err)
	}
	if out.SecretString != nil {
		return decodePayload([]byte(*out.SecretString)), nil
	}
	return decodePayload(out.SecretBinary), nil
}
