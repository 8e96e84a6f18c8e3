package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"notes-backend/internal/bootstrap"
	"notes-backend/internal/shared/config"
	"notes-backend/internal/shared/server/respond"
	"notes-backend/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

func initApp() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	ginLambda = ginadapter.NewV2(app.Router)
	telemetry.Info("lambda_http.ready", map[string]any{
		"env":     cfg.Env,
		"db":      app.DB != nil,
		"queue":   app.Queue != nil,
		"storage": cfg.ObjectStoreType,
	})
}

// unavailable renders the API error envelope for requests that arrive before
// the router could be built.
func unavailable(req events.APIGatewayV2HTTPRequest, code, message string) events.APIGatewayV2HTTPResponse {
	headers := map[string]string{"Content-Type": "application/json"}
	if id := req.Headers["x-request-id"]; id != "" {
		headers["X-Request-Id"] = id
	}
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{Code: code, Message: message}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    headers,
	}
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_http.bootstrap_failed", map[string]any{
			"error": initErr,
			"path":  req.RawPath,
		})
		return unavailable(req, "bootstrap_failed", "service is not configured"), nil
	}
	if ginLambda == nil {
		return unavailable(req, "router_unavailable", "router not initialized"), nil
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	defer telemetry.Sync()
	lambda.Start(handler)
}
