package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"

	"github.com/richxcame/tutor-payouts/pkg/config"
)

type gcpSource struct {
	client  *secretmanager.Client
	project string
}

func newGCPSource(ctx context.Context, cfg config.GCPSecretsConfig) (Source, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("secrets: gcp requires project id")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: gcp client: %w", err)
	}
	return &gcpSource{client: client, project: cfg.ProjectID}, nil
}

func (g *gcpSource) Backend() Backend { return BackendGCP }

func (g *gcpSource) Close() error { return g.client.Close() }

func (g *gcpSource) Read(ctx context.Context, path, version string) (map[string]string, error) {
	if version == "" {
		version = "latest"
	}
	name := path
	if !strings.HasPrefix(name, "projects/") {
		name = fmt.Sprintf("projects/%s/secrets/%s/versions/%s", g.project, path, version)
	}

	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("secrets: gcp read %s: %w", path, err)
	}
	return decodePayload(resp.GetPayload().GetData()), nil
}
