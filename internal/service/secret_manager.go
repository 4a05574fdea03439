package service

import (
	"context"
	"fmt"

	"planthealth/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretManagerService resolves secrets that are not provided via the
// environment, such as the vision provider API key.
type SecretManagerService interface {
	GetProviderAPIKey(ctx context.Context) (string, error)
}

type secretManagerService struct {
	client     *secretmanager.Client
	projectID  string
	secretName string
}

func NewSecretManagerService(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (SecretManagerService, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is not set")
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &secretManagerService{
		client:     client,
		projectID:  cfg.GCPProjectID,
		secretName: cfg.ProviderSecretName,
	}, nil
}

func (s *secretManagerService) GetProviderAPIKey(ctx context.Context) (string, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, s.secretName)

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}

	return string(result.Payload.Data), nil
}
