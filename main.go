package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/boundary/adapter/awsorgs"
	"github.com/dev-mohitbeniwal/boundary/adapter/identitycenter"
	"github.com/dev-mohitbeniwal/boundary/adapter/slackapi"
	"github.com/dev-mohitbeniwal/boundary/audit"
	"github.com/dev-mohitbeniwal/boundary/config"
	"github.com/dev-mohitbeniwal/boundary/controller"
	"github.com/dev-mohitbeniwal/boundary/engine"
	"github.com/dev-mohitbeniwal/boundary/ingress"
	"github.com/dev-mohitbeniwal/boundary/janitor"
	logger "github.com/dev-mohitbeniwal/boundary/logging"
	"github.com/dev-mohitbeniwal/boundary/model"
	"github.com/dev-mohitbeniwal/boundary/resolver"
	"github.com/dev-mohitbeniwal/boundary/router"
	"github.com/dev-mohitbeniwal/boundary/secrets"
	"github.com/dev-mohitbeniwal/boundary/store"
	"github.com/dev-mohitbeniwal/boundary/util"
	"github.com/dev-mohitbeniwal/boundary/workflow"
)

// Exit codes in one-shot request mode.
const (
	exitAllow = 0
	exitDeny  = 2
	exitError = 3
)

func main() {
	mode := flag.String("mode", "serve", "serve | janitor | request")
	userID := flag.String("user", "", "requester chat user id (request mode)")
	accountID := flag.String("account", "", "target account id (request mode)")
	permissionSetArn := flag.String("permission-set-arn", "", "permission set ARN (request mode)")
	duration := flag.Float64("duration", 1, "requested duration in hours (request mode)")
	ticket := flag.String("ticket", "", "change ticket reference (request mode)")
	dryRun := flag.Bool("dry-run", false, "evaluate without persisting or provisioning")
	flag.Parse()

	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.GetString("aws.region")))
	if err != nil {
		logger.Fatal("Failed to load AWS configuration", zap.Error(err))
	}

	// AWS clients
	orgsClient := organizations.NewFromConfig(awsCfg)
	identityStoreClient := identitystore.NewFromConfig(awsCfg)
	ssoAdminClient := ssoadmin.NewFromConfig(awsCfg)
	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	ssmClient := ssm.NewFromConfig(awsCfg)

	secretProvider := secrets.NewProvider(ssmClient)
	botToken := func(ctx context.Context) (string, error) {
		return secretProvider.Get(ctx, config.GetString("slack.botTokenParam"))
	}
	signingSecret := func(ctx context.Context) (string, error) {
		return secretProvider.Get(ctx, config.GetString("slack.signingSecretParam"))
	}

	// Load and validate the access rules before anything can ask for a
	// decision.
	ruleset, err := engine.LoadRules(config.GetString("rules.path"))
	if err != nil {
		logger.Fatal("Failed to load access rules", zap.Error(err))
	}
	if ruleset.GlobalMaxDurationHours == 0 {
		ruleset.GlobalMaxDurationHours = config.GetFloat64("rules.globalMaxHours")
	}
	evaluator := engine.NewEvaluator(ruleset)
	logger.Info("Access rules loaded",
		zap.Int("rules", len(ruleset.Rules)),
		zap.String("policyHash", ruleset.Hash))

	// Adapters
	slackClient := slackapi.NewClient(botToken)
	directory, err := identitycenter.NewDirectory(identityStoreClient, config.GetString("aws.identityStoreID"))
	if err != nil {
		logger.Fatal("Failed to initialize identity directory", zap.Error(err))
	}
	provisioner := identitycenter.NewProvisioner(ssoAdminClient)
	contextBuilder := awsorgs.NewContextBuilder(orgsClient)
	accessStore := store.NewAccessStore(dynamoClient, config.GetString("dynamo.table"))

	// Identity translation chain
	cacheSize := config.GetInt("cache.size")
	cacheTTL := config.GetDuration("cache.ttl")
	emailResolver, err := resolver.New("slack-email", resolver.SlackUserIDPattern, cacheSize, cacheTTL, slackClient.UserEmail)
	if err != nil {
		logger.Fatal("Failed to initialize email resolver", zap.Error(err))
	}
	userIDResolver, err := resolver.New("directory-user", resolver.EmailPattern, cacheSize, cacheTTL, directory.UserIDByEmail)
	if err != nil {
		logger.Fatal("Failed to initialize user id resolver", zap.Error(err))
	}

	// Audit sink: Elasticsearch when configured, structured logs
	// otherwise.
	var auditRepo audit.Repository
	if esURL := config.GetString("elasticsearch.url"); esURL != "" {
		auditRepo, err = audit.NewElasticsearchRepository(esURL)
		if err != nil {
			logger.Fatal("Failed to initialize audit repository", zap.Error(err))
		}
	} else {
		auditRepo = audit.NewLogRepository()
	}
	auditService := audit.NewService(auditRepo)

	// Initialize EventBus
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)

	orchestrator := workflow.NewOrchestrator(
		emailResolver,
		userIDResolver,
		directory,
		contextBuilder,
		evaluator,
		accessStore,
		provisioner,
		slackClient,
		auditService,
		eventBus,
		config.GetString("aws.instanceArn"),
	)

	sweeper := janitor.New(accessStore, provisioner, eventBus, config.GetInt("janitor.maxRevokeAttempts"))

	switch *mode {
	case "serve":
		serve(ctx, orchestrator, sweeper, signingSecret)
	case "janitor":
		report, err := sweeper.Sweep(ctx, *dryRun)
		if err != nil || report.Failed > 0 {
			logger.Error("Sweep finished with failures",
				zap.Int("failed", report.Failed), zap.Error(err))
			exit(1)
		}
	case "request":
		result := runRequest(ctx, orchestrator, *userID, *accountID, *permissionSetArn, *duration, *ticket, *dryRun)
		exit(exitCode(result.Decision))
	default:
		log.Fatalf("Unknown mode %q", *mode)
	}
}

// serve runs the HTTP surface with the janitor sweeping in the
// background, shutting both down gracefully on SIGINT/SIGTERM.
func serve(ctx context.Context, orchestrator *workflow.Orchestrator, sweeper *janitor.Janitor, signingSecret ingress.SecretFunc) {
	verifier := ingress.NewVerifier(signingSecret)
	accessController := controller.NewAccessController(orchestrator, config.GetDuration("workflow.deadline"))

	gin.SetMode(gin.ReleaseMode)
	handler := router.SetupRouter(
		accessController,
		verifier,
		config.GetInt("ratelimit.requests"),
		config.GetDuration("ratelimit.window"),
	)

	go sweeper.Run(ctx, config.GetDuration("janitor.interval"))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: handler,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// runRequest processes a single request from the command line, for
// operators and automation that bypass the chat surface.
func runRequest(ctx context.Context, orchestrator *workflow.Orchestrator, userID, accountID, permissionSetArn string, duration float64, ticket string, dryRun bool) workflow.Result {
	text := fmt.Sprintf("%s %s %g", accountID, permissionSetArn, duration)
	if ticket != "" {
		text += " " + ticket
	}

	reqCtx, cancel := context.WithTimeout(ctx, config.GetDuration("workflow.deadline"))
	defer cancel()

	result := orchestrator.ProcessCommand(reqCtx, workflow.Command{
		UserID: userID,
		Text:   text,
		DryRun: dryRun,
	})

	fmt.Printf("%s: %s\n", result.Decision, result.Reason)
	return result
}

func exitCode(decision string) int {
	switch decision {
	case model.DecisionAllow:
		return exitAllow
	case model.DecisionDeny:
		return exitDeny
	default:
		return exitError
	}
}

// exit flushes the logger first; deferred calls do not run through
// os.Exit.
func exit(code int) {
	logger.Sync()
	os.Exit(code)
}
