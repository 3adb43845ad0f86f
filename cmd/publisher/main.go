package main

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dataset-publisher/internal/client"
	"dataset-publisher/internal/config"
	"dataset-publisher/internal/middleware"
	"dataset-publisher/internal/model"
	"dataset-publisher/internal/security"
	"dataset-publisher/internal/service"
	"dataset-publisher/internal/source"
	"dataset-publisher/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Configure logging
	log.SetPrefix(cfg.Logging.Prefix)
	debug := cfg.Logging.Level == "debug"
	if debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize metrics
	middleware.InitMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcomes := run(ctx, cfg, debug)

	for _, outcome := range outcomes {
		if err := printOutcome(os.Stdout, cfg.Console.Format, outcome); err != nil {
			log.Printf("Failed to print outcome: %v", err)
		}
	}

	if cfg.Metrics.TextfilePath != "" {
		if err := middleware.WriteTextfile(cfg.Metrics.TextfilePath, prometheus.DefaultGatherer); err != nil {
			log.Printf("Warning: failed to write metrics textfile: %v", err)
		}
	}

	if cfg.Console.WaitForKey {
		waitForEnter(os.Stdin)
	}
}

// run executes the configured steps. Only setup errors are fatal; request failures end up in outcomes.
func run(ctx context.Context, cfg *config.Config, debug bool) []*response.Outcome {
	// Initialize token provider
	tokens, err := security.NewTokenProvider(cfg.Auth, os.Stdout)
	if err != nil {
		log.Fatal("Failed to initialize token provider:", err)
	}

	// Initialize transport
	limiter := middleware.NewRequestLimiter(middleware.RateLimiterConfig{
		RPM:   cfg.API.RatePerMinute,
		Burst: cfg.API.Burst,
	})
	if debug {
		limits := limiter.Config()
		log.Printf("Rate limit: %d requests per minute, burst %d", limits.RPM, limits.Burst)
	}
	analytics, err := client.NewAnalyticsClient(cfg.API.BaseURL, cfg.API.Timeout, limiter)
	if err != nil {
		log.Fatal("Failed to initialize analytics client:", err)
	}

	publisher := service.NewPublishService(analytics, tokens, service.Options{
		RetentionPolicy: cfg.Dataset.RetentionPolicy,
		BatchSize:       cfg.Rows.BatchSize,
		Envelope:        cfg.Rows.Envelope,
	})

	plan := service.Plan{
		CreateDataset: cfg.Dataset.Create,
		AppendRows:    cfg.Rows.Append,
		DatasetID:     cfg.Rows.DatasetID,
		Table:         cfg.Rows.Table,
	}

	if plan.CreateDataset {
		name := cfg.Dataset.Name
		if name == "" {
			name = model.DefaultDatasetName(time.Now())
		}
		plan.Dataset = model.SampleDataset(name)
	}

	var outcomes []*response.Outcome
	if plan.AppendRows {
		rows, err := source.New(ctx, cfg)
		if err != nil {
			outcomes = append(outcomes, response.ErrorOutcome(client.OperationAppendRows, string(service.StateFailed), err, ""))
			plan.AppendRows = false
		} else {
			plan.Rows = rows
		}
	}

	outcomes = append(publisher.Run(ctx, plan), outcomes...)

	if claims := tokens.Claims(); claims != nil {
		log.Printf("Signed in as %s", claims.Principal())
		if debug {
			log.Printf("Token expires in %s", claims.TimeUntilExpiry().Round(time.Second))
		}
	}

	if debug {
		stats := publisher.GetStats()
		log.Printf("Requests: %d, failed: %d, rows appended: %d", stats.Requests, stats.FailedRequests, stats.RowsAppended)
	}

	return outcomes
}

func printOutcome(w io.Writer, format string, outcome *response.Outcome) error {
	if format == "json" {
		return response.WriteJSON(w, outcome)
	}
	return response.WriteText(w, outcome)
}

func waitForEnter(r io.Reader) {
	log.Println("Press Enter to exit")
	bufio.NewReader(r).ReadString('\n')
}
