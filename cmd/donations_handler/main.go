package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"NGO_BACKEND_GO/internal/config"
	"NGO_BACKEND_GO/internal/donations"
	"NGO_BACKEND_GO/internal/dynamo"
	"NGO_BACKEND_GO/internal/handlers"
	"NGO_BACKEND_GO/internal/notify"
	"NGO_BACKEND_GO/internal/razorpayclient"
	"NGO_BACKEND_GO/internal/router"
	"NGO_BACKEND_GO/internal/signature"
	"NGO_BACKEND_GO/internal/utils"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AwsRegion))
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}

	ddb := dynamodb.NewFromConfig(awsCfg)
	store := donations.NewStore(dynamo.New(ddb, cfg.DynamoTableName), cfg.DefaultCurrency)
	gateway := razorpayclient.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	verifier := signature.NewVerifier(cfg.RazorpayKeySecret)

	logger := utils.NewLogger()
	h := handlers.NewHandler(store, gateway, verifier, cfg, logger)
	if pub := notify.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.EmailEventsQueue); pub != nil {
		h.Notifier = pub
	} else {
		logger.Info("notifications_disabled", map[string]interface{}{})
	}

	muxRouter := router.New(h)

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") == "" {
		logger.Info("server_listening", map[string]interface{}{"port": cfg.Port})
		log.Fatal(http.ListenAndServe(":"+cfg.Port, muxRouter))
	}

	adapter := httpadapter.NewV2(muxRouter)

	handler := func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var apiEvent events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(raw, &apiEvent); err == nil {
			if apiEvent.RequestContext.HTTP.Method != "" {
				return adapter.ProxyWithContext(ctx, apiEvent)
			}
		}

		var ebEvent events.EventBridgeEvent
		if err := json.Unmarshal(raw, &ebEvent); err == nil {
			if ebEvent.Source != "" {
				return h.HandleEventBridge(ctx, ebEvent)
			}
		}

		logger.Error("unrecognized_event", map[string]interface{}{})
		return map[string]string{"status": "ignored"}, nil
	}

	lambda.Start(handler)
}
