package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/liveon/internal/flagx"
	"github.com/joho/godotenv"
)

// loadDotenv loads variables from the file given by -env-file, or from
// ./.env when present. Variables already set in the process win.
func loadDotenv() {
	path := flagx.DotenvFlags()
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		panic(err)
	}
}

// parseEnv overlays environment variables. Both LIVEON_* names and the
// variable names used by the original deployment are accepted.
func parseEnv(c *Config) {
	flagx.EnvString(&c.Environment, "LIVEON_ENV", "NODE_ENV")
	flagx.EnvString(&c.LogLevel, "LIVEON_LOG_LEVEL")

	flagx.EnvString(&c.HTTPAddr, "LIVEON_HTTP_ADDR")
	flagx.EnvString(&c.BaseURL, "LIVEON_BASE_URL", "NEXT_PUBLIC_BASE_URL")
	if v := os.Getenv("LIVEON_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	flagx.EnvString(&c.DatabaseDSN, "LIVEON_DATABASE_DSN", "DATABASE_URL")
	flagx.EnvString(&c.SecretKey, "LIVEON_SECRET_KEY", "SESSION_SECRET")

	flagx.EnvString(&c.FBClientID, "FB_CLIENT_ID")
	flagx.EnvString(&c.FBClientSecret, "FB_CLIENT_SECRET")
	flagx.EnvString(&c.FBRedirectURI, "FB_REDIRECT_URI")
	flagx.EnvString(&c.FBGraphBase, "FB_GRAPH_BASE")
	flagx.EnvString(&c.FBDialogBase, "FB_DIALOG_BASE")
	flagx.EnvString(&c.FBGraphVersion, "FB_GRAPH_VERSION")

	flagx.EnvString(&c.BlobBackend, "LIVEON_BLOB_BACKEND")
	flagx.EnvString(&c.S3RootUser, "LIVEON_S3_USER")
	flagx.EnvString(&c.S3RootPassword, "LIVEON_S3_PASSWORD")
	flagx.EnvString(&c.S3Bucket, "LIVEON_S3_BUCKET")
	flagx.EnvString(&c.S3Region, "LIVEON_S3_REGION")
	flagx.EnvString(&c.S3BaseEndpoint, "LIVEON_S3_ENDPOINT")
	flagx.EnvBool(&c.S3UsePathStyle, "LIVEON_S3_PATH_STYLE")

	flagx.EnvDuration(&c.DownloadURLTTL, "LIVEON_DOWNLOAD_TTL")

	flagx.EnvString(&c.StripeSecretKey, "STRIPE_SECRET_KEY")
	flagx.EnvString(&c.StripeCurrency, "STRIPE_CURRENCY")
	if v := os.Getenv("STRIPE_PRICE_CENTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.StripePriceCents = n
		}
	}

	flagx.EnvInt(&c.Workers, "LIVEON_WORKERS")
	flagx.EnvInt(&c.QueueSize, "LIVEON_QUEUE_SIZE")
	flagx.EnvDuration(&c.StaleThreshold, "LIVEON_STALE_THRESHOLD")
	flagx.EnvString(&c.HousekeepingSchedule, "LIVEON_HOUSEKEEPING_SCHEDULE")
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
