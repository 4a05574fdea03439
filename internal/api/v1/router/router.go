package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"planthealth/internal/api/v1/handler"
	"planthealth/internal/config"
	"planthealth/internal/middleware"
	"planthealth/internal/pgmq"
	"planthealth/internal/repository"
	"planthealth/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the full HTTP surface: Postgres pool, S3 image store, vision
// provider, services and handlers. The returned pool must be closed by the
// caller on shutdown.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	// 1. Open DB connection (connection pooling)
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if strings.Contains(dsn, "?") {
				separator = "&"
			} else {
				separator = "?"
			}
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB pool")
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		pool.Close()
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		pool.Close()
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Resolve the vision provider API key. The environment variable wins;
	// otherwise the key is fetched from Secret Manager when a GCP project is
	// configured. An empty key is tolerated: provider calls will fail and the
	// diagnosis flow falls back to the local simulator.
	providerKey := cfg.OpenAIAPIKey
	if providerKey == "" && cfg.GCPProjectID != "" {
		secrets, err := service.NewSecretManagerService(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("Secret Manager unavailable, vision provider key unset")
		} else if key, err := secrets.GetProviderAPIKey(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to fetch vision provider key")
		} else {
			providerKey = key
		}
	}

	// 5. Initialize repositories & services & handlers
	queue := pgmq.New(pool)

	userRepo := repository.NewUserRepo(pool)
	membershipRepo := repository.NewMembershipRepo(pool)
	diagnosisRepo := repository.NewDiagnosisRepo(pool)
	plantRepo := repository.NewPlantRepo(pool)
	reminderRepo := repository.NewReminderRepo(pool)

	imageStore := service.NewS3ImageStore(s3Client, cfg.S3Bucket, logger)
	provider := service.NewOpenAIProvider(providerKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, logger)

	userSvc := service.NewUserService(userRepo)
	membershipSvc := service.NewMembershipService(membershipRepo, cfg.FreeMonthlyLimit, logger)
	reminderSvc := service.NewReminderService(reminderRepo, queue, cfg.ReminderQueueName, logger)
	diagnosisSvc := service.NewDiagnosisService(
		diagnosisRepo,
		membershipSvc,
		reminderSvc,
		imageStore,
		provider,
		service.NewSimulator(),
		time.Duration(cfg.ProviderTimeoutSec)*time.Second,
		logger,
	)
	plantSvc := service.NewPlantService(plantRepo, diagnosisRepo, reminderSvc, logger)

	userHandler := handler.NewUserHandler(userSvc, validate)
	membershipHandler := handler.NewMembershipHandler(membershipSvc, validate, logger)
	diagnosisHandler := handler.NewDiagnosisHandler(diagnosisSvc, logger)
	plantHandler := handler.NewPlantHandler(plantSvc, validate, logger)
	reminderHandler := handler.NewReminderHandler(reminderSvc, validate, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	membershipHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	diagnosisHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	plantHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	reminderHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists.
		// This makes the client more robust, especially for operations like presigned URLs
		// that might inspect the middleware stack.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
