package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/football-etl/internal/platform/logging"
)

const (
	StagingNone  = "none"
	StagingLocal = "local"
	StagingS3    = "s3"
)

// Config stores runtime configuration for the pipeline and its trigger API.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       logging.Level
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	APIURL                   string
	APIKey                   string
	APITimeout               time.Duration
	APIMaxRetries            int
	APIRetryInterval         time.Duration
	APICircuitEnabled        bool
	APICircuitFailureCount   int
	APICircuitOpenTimeout    time.Duration
	APICircuitHalfOpenMaxReq int
	TeamID                   int
	PremierLeagueID          int
	ChampionsLeagueID        int

	DBURL    string
	DBSchema string

	StagingMode string
	StagingDir  string
	BucketName  string
	AWSRegion   string

	InternalJobToken string

	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	// A synchronous run holds the request open for the whole pipeline.
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	apiTimeout, err := time.ParseDuration(getEnv("API_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_TIMEOUT: %w", err)
	}
	if apiTimeout <= 0 {
		return Config{}, fmt.Errorf("API_TIMEOUT must be > 0")
	}
	apiMaxRetries, err := getEnvAsInt("API_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_MAX_RETRIES: %w", err)
	}
	if apiMaxRetries < 1 {
		return Config{}, fmt.Errorf("API_MAX_RETRIES must be >= 1")
	}
	apiRetryInterval, err := time.ParseDuration(getEnv("API_RETRY_INTERVAL", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_RETRY_INTERVAL: %w", err)
	}
	if apiRetryInterval < 0 {
		return Config{}, fmt.Errorf("API_RETRY_INTERVAL must be >= 0")
	}
	apiCircuitEnabled, err := strconv.ParseBool(getEnv("API_CIRCUIT_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_CIRCUIT_ENABLED: %w", err)
	}
	apiCircuitFailureCount, err := getEnvAsInt("API_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if apiCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("API_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	apiCircuitOpenTimeout, err := time.ParseDuration(getEnv("API_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse API_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if apiCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("API_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	apiCircuitHalfOpenMaxReq, err := getEnvAsInt("API_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse API_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if apiCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("API_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	teamID, err := getEnvAsInt("FOOTBALL_TEAM_ID", 61)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_TEAM_ID: %w", err)
	}
	premierLeagueID, err := getEnvAsInt("FOOTBALL_PREMIER_LEAGUE_ID", 2021)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_PREMIER_LEAGUE_ID: %w", err)
	}
	championsLeagueID, err := getEnvAsInt("FOOTBALL_CHAMPIONS_LEAGUE_ID", 2001)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_CHAMPIONS_LEAGUE_ID: %w", err)
	}
	if teamID <= 0 || premierLeagueID <= 0 || championsLeagueID <= 0 {
		return Config{}, fmt.Errorf("FOOTBALL_TEAM_ID, FOOTBALL_PREMIER_LEAGUE_ID and FOOTBALL_CHAMPIONS_LEAGUE_ID must be > 0")
	}

	dbURL, err := databaseURL()
	if err != nil {
		return Config{}, err
	}

	stagingMode := strings.ToLower(strings.TrimSpace(getEnv("STAGING_MODE", StagingNone)))
	switch stagingMode {
	case StagingNone, StagingLocal, StagingS3:
	default:
		return Config{}, fmt.Errorf("invalid STAGING_MODE %q: valid values are %s, %s, %s", stagingMode, StagingNone, StagingLocal, StagingS3)
	}
	bucketName := strings.TrimSpace(getEnv("BUCKET_NAME", ""))
	if stagingMode == StagingS3 && bucketName == "" {
		return Config{}, fmt.Errorf("BUCKET_NAME is required when STAGING_MODE=s3")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "football-etl"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:                   logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		APIURL:                     strings.TrimSpace(getEnv("API_URL", "https://api.football-data.org")),
		APIKey:                     strings.TrimSpace(getEnv("API_KEY", "")),
		APITimeout:                 apiTimeout,
		APIMaxRetries:              apiMaxRetries,
		APIRetryInterval:           apiRetryInterval,
		APICircuitEnabled:          apiCircuitEnabled,
		APICircuitFailureCount:     apiCircuitFailureCount,
		APICircuitOpenTimeout:      apiCircuitOpenTimeout,
		APICircuitHalfOpenMaxReq:   apiCircuitHalfOpenMaxReq,
		TeamID:                     teamID,
		PremierLeagueID:            premierLeagueID,
		ChampionsLeagueID:          championsLeagueID,
		DBURL:                      dbURL,
		DBSchema:                   strings.TrimSpace(getEnv("DB_SCHEMA", "public")),
		StagingMode:                stagingMode,
		StagingDir:                 strings.TrimSpace(getEnv("STAGING_DIR", "data")),
		BucketName:                 bucketName,
		AWSRegion:                  strings.TrimSpace(getEnv("AWS_REGION", "us-east-1")),
		InternalJobToken:           strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceLogsEnabled:         uptraceLogsEnabled,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if cfg.StagingMode == StagingLocal && cfg.StagingDir == "" {
		return Config{}, fmt.Errorf("STAGING_DIR cannot be empty when STAGING_MODE=local")
	}

	return cfg, nil
}

// databaseURL prefers DB_URL and otherwise assembles a postgres URL from the
// DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD and DB_SSLMODE parts.
func databaseURL() (string, error) {
	if raw := strings.TrimSpace(os.Getenv("DB_URL")); raw != "" {
		return raw, nil
	}

	host := strings.TrimSpace(getEnv("DB_HOST", "localhost"))
	port, err := getEnvAsInt("DB_PORT", 5432)
	if err != nil {
		return "", fmt.Errorf("parse DB_PORT: %w", err)
	}
	if port <= 0 {
		return "", fmt.Errorf("DB_PORT must be > 0")
	}
	name := strings.TrimSpace(getEnv("DB_NAME", "football"))
	if name == "" || host == "" {
		return "", fmt.Errorf("DB_HOST and DB_NAME cannot be empty")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + name,
	}
	user := getEnv("DB_USER", "postgres")
	if password, ok := os.LookupEnv("DB_PASSWORD"); ok && password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	q := u.Query()
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
