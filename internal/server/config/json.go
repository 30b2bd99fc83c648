package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/liveon/internal/flagx"
	"github.com/dmitrijs2005/liveon/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Zero
// values leave the corresponding Config field untouched.
type JsonConfig struct {
	Environment    string         `json:"environment"`
	LogLevel       string         `json:"log_level"`
	HTTPAddr       string         `json:"http_addr"`
	BaseURL        string         `json:"base_url"`
	CORSOrigins    []string       `json:"cors_origins"`
	DatabaseDSN    string         `json:"database_dsn"`
	SecretKey      string         `json:"secret_key"`
	FBClientID     string         `json:"fb_client_id"`
	FBClientSecret string         `json:"fb_client_secret"`
	FBRedirectURI  string         `json:"fb_redirect_uri"`
	FBGraphVersion string         `json:"fb_graph_version"`
	BlobBackend    string         `json:"blob_backend"`
	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	DownloadURLTTL timex.Duration `json:"download_url_ttl"`
	StripeKey      string         `json:"stripe_secret_key"`
	Workers        int            `json:"workers"`
	QueueSize      int            `json:"queue_size"`
	StaleThreshold timex.Duration `json:"stale_threshold"`
}

// parseJson loads the file named by -c/-config into config. Without the
// flag nothing is loaded; an unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.Environment, c.Environment)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.BaseURL, c.BaseURL)
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.FBClientID, c.FBClientID)
	setString(&config.FBClientSecret, c.FBClientSecret)
	setString(&config.FBRedirectURI, c.FBRedirectURI)
	setString(&config.FBGraphVersion, c.FBGraphVersion)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.StripeSecretKey, c.StripeKey)
	if c.DownloadURLTTL.Duration > 0 {
		config.DownloadURLTTL = c.DownloadURLTTL.Duration
	}
	if c.Workers > 0 {
		config.Workers = c.Workers
	}
	if c.QueueSize > 0 {
		config.QueueSize = c.QueueSize
	}
	if c.StaleThreshold.Duration > 0 {
		config.StaleThreshold = c.StaleThreshold.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
