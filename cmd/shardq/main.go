// shardq runner - shards a test list across workers through a shared queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/shardq/pkg/config"
	"github.com/codeready-toolchain/shardq/pkg/queue"
	"github.com/codeready-toolchain/shardq/pkg/version"

	"github.com/gin-gonic/gin"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	queueURL := flag.String("queue-url",
		getEnv("QUEUE_URL", ""),
		"Queue URL (list:…, file:…, redis://…, rediss://…)")
	testsFile := flag.String("tests-file",
		getEnv("TESTS_FILE", ""),
		"Newline-delimited test list; required for the worker role on redis queues")
	execTemplate := flag.String("exec",
		getEnv("EXEC_TEMPLATE", ""),
		"Command run per test, {} replaced by the test id; without it tests are acknowledged unrun")
	masterTimeout := flag.Duration("master-timeout",
		30*time.Second,
		"How long the supervisor waits for the master to seed the queue")
	healthAddr := flag.String("health-addr",
		getEnv("HEALTH_ADDR", ""),
		"Optional listen address for the health/status endpoint")
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "."),
		"Directory holding the optional .env file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err == nil {
		log.Printf("Loaded environment from %s", envPath)
	}

	// Flag defaults were captured before the .env file was read.
	if *queueURL == "" {
		*queueURL = os.Getenv("QUEUE_URL")
	}
	if *queueURL == "" {
		log.Fatalf("Missing queue URL: pass -queue-url or set QUEUE_URL")
	}

	cfg, err := config.ParseQueueURL(*queueURL)
	if err != nil {
		log.Fatalf("Failed to parse queue URL: %v", err)
	}
	if cfg.IsDistributed() && cfg.WorkerID == "" {
		cfg.WorkerID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tests []string
	if *testsFile != "" {
		tests, err = readTestList(*testsFile)
		if err != nil {
			log.Fatalf("Failed to read test list: %v", err)
		}
		log.Printf("Loaded %d tests from %s", len(tests), *testsFile)
	}

	q, err := queue.Build(ctx, cfg, tests)
	if err != nil {
		log.Fatalf("Failed to build queue: %v", err)
	}

	log.Printf("Starting %s", version.Full())
	if *healthAddr != "" {
		startHealthServer(*healthAddr, cfg.BuildID, q)
	}

	switch role := q.(type) {
	case queue.Consumer:
		failed := runConsumer(ctx, role, *execTemplate)
		if len(failed) > 0 {
			log.Printf("%d tests failed: %s", len(failed), strings.Join(failed, ", "))
			os.Exit(1)
		}
	case *queue.Supervisor:
		log.Printf("Supervising build %s", cfg.BuildID)
		if err := role.WaitForWorkers(ctx, *masterTimeout); err != nil {
			log.Fatalf("Build did not drain: %v", err)
		}
		log.Printf("Build %s complete", cfg.BuildID)
	default:
		log.Fatalf("Queue %T has no runnable role", q)
	}
}

// runConsumer works the queue off: each reserved test is executed, then
// acknowledged on success or requeued on failure. A refused requeue marks
// the test failed for good and acknowledges it so the build can drain.
func runConsumer(ctx context.Context, consumer queue.Consumer, execTemplate string) []string {
	if worker, ok := consumer.(*queue.Worker); ok {
		// A signal stops the iteration at the top of its next loop.
		go func() {
			<-ctx.Done()
			worker.Shutdown()
		}()
	}

	seen := make(map[string]bool)
	var failed []string
	for test := range consumer.Iter(ctx) {
		log := slog.With("test", test)

		err := runTest(ctx, execTemplate, test)
		if err == nil {
			if _, ackErr := consumer.Acknowledge(ctx, test); ackErr != nil {
				log.Error("Failed to acknowledge test", "error", ackErr)
			}
			continue
		}

		log.Warn("Test failed", "error", err)
		requeued, requeueErr := consumer.Requeue(ctx, test)
		if requeueErr != nil {
			log.Error("Failed to requeue test", "error", requeueErr)
		}
		if requeued {
			continue
		}

		if _, ackErr := consumer.Acknowledge(ctx, test); ackErr != nil {
			log.Error("Failed to acknowledge test", "error", ackErr)
		}
		if !seen[test] {
			seen[test] = true
			failed = append(failed, test)
		}
	}
	return failed
}

// runTest executes the per-test command with {} replaced by the test id.
// Without a template the test is treated as passed.
func runTest(ctx context.Context, execTemplate, test string) error {
	if execTemplate == "" {
		return nil
	}
	command := strings.ReplaceAll(execTemplate, "{}", test)
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// readTestList loads a newline-delimited test list.
func readTestList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tests []string
	for line := range strings.Lines(string(data)) {
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			tests = append(tests, line)
		}
	}
	return tests, nil
}

// startHealthServer exposes build progress for CI dashboards.
func startHealthServer(addr, buildID string, q queue.Queue) {
	gin.SetMode(getEnv("GIN_MODE", gin.ReleaseMode))
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		length, err := q.Len(reqCtx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"build":  buildID,
				"error":  err.Error(),
			})
			return
		}
		progress, _ := q.Progress(reqCtx)
		total, _ := q.Total(reqCtx)

		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"version":     version.Full(),
			"build":       buildID,
			"distributed": q.Distributed(),
			"total":       total,
			"progress":    progress,
			"remaining":   length,
		})
	})

	go func() {
		log.Printf("Health endpoint listening on %s", addr)
		if err := router.Run(addr); err != nil {
			log.Printf("Health endpoint stopped: %v", err)
		}
	}()
}
