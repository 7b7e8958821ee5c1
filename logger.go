package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.elastic.co/apm"
	"go.elastic.co/apm/module/apmechov4"
	"go.elastic.co/apm/module/apmzap"
	"go.uber.org/zap"
)

var (
	zapLogger *zap.Logger
	appEnv    string = os.Getenv("APP_ENV")
	appName   string = os.Getenv("APP_NAME")
	apmActive string = os.Getenv("ELASTIC_APM_ACTIVE")
	elkUrl    string = os.Getenv("ELK_URL")
)

func init() {

	// Set logging configuration
	var err error
	zapLogger, err = zap.NewProduction(zap.WrapCore((&apmzap.Core{}).WrapCore))
	if err != nil {
		log.Fatalf("Can't initialize zap logger: %v", err)
	}

	// Flushes buffer if it exists
	defer zapLogger.Sync()
}

func initAPM(e *echo.Echo) {
	// Close default Elastic APM tracer
	zapLogger.Info("Disable default APM logger")
	apm.DefaultTracer.Close()

	// Conditionally enable APM logger based on "ELASTIC_APM_ACTIVE" environment variable.
	if apmActive == "true" {
		// Create new tracer with basic options
		// Use environment variables for the remaining options
		zapLogger.Info("Creating new APM tracer",
			zap.String("ServiceName", appName),
			zap.String("ServiceEnvironment", appEnv))
		tracer, err := apm.NewTracerOptions(apm.TracerOptions{
			ServiceName:        appName,
			ServiceEnvironment: appEnv,
		})
		if err != nil {
			zapLogger.Fatal(err.Error())
		}

		// Adds elastic APM middleware to web server to capture requests
		// and send them to elastic
		zapLogger.Info("Enabling APM logger")
		e.Use(apmechov4.Middleware(apmechov4.WithTracer(tracer)))
	}
}

func logger(c context.Context, err error) {
	zapLogger.Error(err.Error())
	if apmActive == "true" {
		apm.CaptureError(c, err).Send()
	}
}

// elkLogger ships a single structured event to the configured ELK endpoint.
func elkLogger(msg map[string]string, level string) error {
	// Set default level if none exists
	if level == "" {
		level = "info"
	}

	// Sends logs to a test index, if not production
	index := appEnv
	if index != "prod" {
		index = "test"
	}

	// Timestamp in ISO format
	datetime := time.Now().Format(time.RFC3339)

	// Populate remaining message details
	msg["environment"] = index
	msg["level"] = level
	msg["date"] = datetime

	// Build request body
	bodyReader, err := readerFromMap(msg)
	if err != nil {
		return err
	}

	// Set headers for request
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	// Send log message
	resp, err := sendRequest(context.Background(), "POST", elkUrl, nil, headers, bodyReader, 5)
	if err != nil {
		return err
	}

	// Read the body
	body, err := readBody(resp)
	if err != nil {
		return err
	}

	// Verify status code
	if resp.StatusCode >= 400 {
		return fmt.Errorf("log message failed (Status Code - %d): %s", resp.StatusCode, string(body))
	}

	return nil
}

// logAction records an appointment or admin action for auditing. When an ELK
// endpoint is configured the event is also shipped there asynchronously.
func logAction(ctx context.Context, ident Identity, action, ref string) {
	zapLogger.Info("action",
		zap.String("user", ident.Email),
		zap.String("role", string(ident.Role)),
		zap.String("action", action),
		zap.String("ref", ref))

	if elkUrl == "" {
		return
	}

	message := map[string]string{
		"application": appName,
		"user":        ident.Email,
		"role":        string(ident.Role),
		"action":      action,
		"ref":         ref,
	}

	// Send log message in a separate thread to avoid slowing down the response
	go func() {
		if err := elkLogger(message, "info"); err != nil {
			logger(ctx, fmt.Errorf("%v (action: %s)", err, action))
		}
	}()
}
