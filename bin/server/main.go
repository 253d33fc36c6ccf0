package main

import (
	"context"
	diffimage "design-diff/internal/diff/image"
	"design-diff/internal/notify"
	"design-diff/internal/runnable"
	"design-diff/internal/storage"
	"design-diff/internal/store"
	"flag"
	"log"
	"os"
	"strconv"
	"time"
)

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case int64:
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return any(intValue).(T)
		}
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return any(boolValue).(T)
		}
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return any(durationValue).(T)
		}
	}

	return defaultValue
}

func main() {
	var debug bool
	var databasePath string
	var storageBackend string
	var storageDirectory string
	var resizePolicy string
	var maxPixels int64
	var notifyTimeout time.Duration
	var jiraConfig notify.JiraConfig
	var jiraAuthMode string
	var slackConfig notify.SlackConfig
	flag.BoolVar(&debug, "debug", envOrDefaultValue("DEBUG", false), "Enable text logs and pprof endpoints")
	flag.StringVar(&databasePath, "database-path", envOrDefaultValue("DATABASE_PATH", "diffs.db"), "SQLite database file")
	flag.StringVar(&storageBackend, "storage-backend", envOrDefaultValue("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&storageDirectory, "storage-directory", envOrDefaultValue("STORAGE_DIRECTORY", "storage"), "Directory for the file storage backend")
	flag.StringVar(&resizePolicy, "resize-policy", envOrDefaultValue("RESIZE_POLICY", string(diffimage.ResizeCandidate)), "What to do with differently sized candidates (resize or strict)")
	flag.Int64Var(&maxPixels, "max-pixels", envOrDefaultValue("MAX_PIXELS", diffimage.DefaultConfig().MaxPixels), "Reject images with more pixels (0 disables the check)")
	flag.DurationVar(&notifyTimeout, "notify-timeout", envOrDefaultValue("NOTIFY_TIMEOUT", 30*time.Second), "Timeout of a single notification call including retries")
	flag.StringVar(&jiraConfig.BaseURL, "jira-base-url", envOrDefaultValue("JIRA_BASE_URL", ""), "Jira base URL; empty disables Jira")
	flag.StringVar(&jiraConfig.Username, "jira-username", envOrDefaultValue("JIRA_USERNAME", ""), "Jira user for basic auth")
	flag.StringVar(&jiraAuthMode, "jira-auth-mode", envOrDefaultValue("JIRA_AUTH_MODE", string(notify.JiraBasic)), "Jira auth mode (basic or bearer)")
	flag.StringVar(&slackConfig.APIURL, "slack-api-url", envOrDefaultValue("SLACK_API_URL", ""), "Slack Web API base URL")

	flag.Parse()

	jiraConfig.AuthMode = notify.JiraAuthMode(jiraAuthMode)
	jiraConfig.Token = os.Getenv("JIRA_API_TOKEN")
	slackConfig.Token = os.Getenv("SLACK_BOT_TOKEN")

	runnable.Debug = debug

	ctx := context.Background()

	policy, err := diffimage.ParseResizePolicy(resizePolicy)
	if err != nil {
		log.Fatalf("invalid resize policy: %v", err)
	}
	differConfig := diffimage.DefaultConfig()
	differConfig.Policy = policy
	differConfig.MaxPixels = maxPixels

	records, err := store.NewSQLiteStore(ctx, store.SQLiteConfig{
		Path: databasePath,
	})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer records.Close()

	var blobs storage.Storage
	switch storageBackend {
	case "file":
		blobs, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: storageDirectory,
		})
		if err != nil {
			log.Fatalf("failed to create file storage backend: %v", err)
		}
	case "s3":
		blobs, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:      os.Getenv("S3_BUCKET"),
			Prefix:      os.Getenv("S3_PREFIX"),
			EndpointURL: os.Getenv("S3_ENDPOINT_URL"),
		})
		if err != nil {
			log.Fatalf("failed to create S3 storage backend: %v", err)
		}
	default:
		log.Fatalf("unknown storage backend: %s", storageBackend)
	}

	components := runnable.Components{
		Records:   records,
		Blobs:     blobs,
		Differ:    diffimage.NewPixelDiff(differConfig),
		MaxPixels: differConfig.MaxPixels,
	}
	client := notify.NewHTTPClient(notifyTimeout)
	if jiraConfig.Enabled() {
		components.Jira = notify.NewJira(jiraConfig, client)
	}
	if slackConfig.Enabled() {
		components.Slack = notify.NewSlack(slackConfig, client, records)
	}
	logDisabled("jira", components.Jira == nil)
	logDisabled("slack", components.Slack == nil)

	if err := runnable.NewServer(components).Start(ctx); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func logDisabled(notifier string, disabled bool) {
	if disabled {
		log.Printf("%s notifications disabled: not configured", notifier)
	}
}
