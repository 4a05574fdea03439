package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`

	// Image blob storage (S3-compatible)
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"plant-images"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Vision provider settings. When the API key is empty it is fetched
	// from Secret Manager under ProviderSecretName.
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel        string `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	ProviderTimeoutSec int    `envconfig:"PROVIDER_TIMEOUT_SEC" default:"30"`
	ProviderSecretName string `envconfig:"PROVIDER_SECRET_NAME" default:"plant-vision-api-key"`

	// Quota settings
	FreeMonthlyLimit int `envconfig:"FREE_MONTHLY_LIMIT" default:"5"`

	// GCP settings (Pub/Sub notification fan-out, Secret Manager)
	GCPProjectID  string `envconfig:"GCP_PROJECT_ID"`
	ReminderTopic string `envconfig:"REMINDER_TOPIC" default:"reminder-notifications"`

	// Reminder notifier settings
	ReminderQueueName      string `envconfig:"REMINDER_QUEUE_NAME" default:"reminder_dispatch"`
	ReminderDLQName        string `envconfig:"REMINDER_DLQ_NAME" default:"reminder_dispatch_dlq"`
	NotifierPollTimeoutSec int    `envconfig:"NOTIFIER_POLL_TIMEOUT_SEC" default:"30"`
	NotifierPollMaxMsg     int    `envconfig:"NOTIFIER_POLL_MAX_MSG" default:"1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
