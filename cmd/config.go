package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	m "sourcerer.dev/pkg/sourcerer/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "sourcerer"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	linksFlagName    = "links"
	urlFlagName      = "url"
	outputFlagName   = "output"
	keepFlagName     = "keep"
	methodFlagName   = "method"
	headerFlagName   = "header"
	quietFlagName    = "quiet"
	verboseFlagName  = "verbose"
	yesFlagName      = "yes"
	parallelFlagName = "parallel"
	timeoutFlagName  = "timeout"
	rateFlagName     = "rate"
	reportFlagName   = "report"
	plainFlagName    = "plain"
	logFileFlagName  = "log-file"
	insecureFlagName = "insecure"

	httpMethodKey   = "http.method"
	httpHeadersKey  = "http.headers"
	httpTimeoutKey  = "http.timeout"
	httpRateKey     = "http.rate"
	httpInsecureKey = "http.insecure"

	runParallelKey = "run.parallel"

	keepVendorKey   = "output.keep_vendor"
	vendorMarkerKey = "output.vendor_marker"
	reportPathKey   = "output.report"
	plainOutputKey  = "output.plain"

	defaultHTTPMethod  = "GET"
	defaultHTTPTimeout = 30 * time.Second
	defaultHTTPRate    = 0.0
	defaultRunParallel = 1

	envPrefix = "SOURCERER"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".sourcerer.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

var (
	loadConfigOnce sync.Once
	// configErr is reported by the first command that runs.
	configErr error
)

// loadConfig sets the viper defaults and reads .env and sourcerer.yaml. It
// must run before any flag takes its default from viper.
func loadConfig() {
	loadConfigOnce.Do(readConfig)
}

func readConfig() {
	// A missing .env file is the common case.
	_ = godotenv.Load()

	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(httpMethodKey, defaultHTTPMethod)
	viper.SetDefault(httpHeadersKey, []string{})
	viper.SetDefault(httpTimeoutKey, defaultHTTPTimeout.String())
	viper.SetDefault(httpRateKey, defaultHTTPRate)
	viper.SetDefault(httpInsecureKey, false)
	viper.SetDefault(runParallelKey, defaultRunParallel)
	viper.SetDefault(keepVendorKey, false)
	viper.SetDefault(vendorMarkerKey, m.DefaultVendorMarker)
	viper.SetDefault(reportPathKey, "")
	viper.SetDefault(plainOutputKey, false)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	err := viper.ReadInConfig()
	if err == nil {
		return
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return
	}

	configErr = fmt.Errorf("read %s: %w", configFileName, err)
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configuredHeaders returns the raw "Name: Value" headers from flags, config
// or the environment. A single string value holds one header per line.
func configuredHeaders() []string {
	raw, ok := viper.Get(httpHeadersKey).(string)
	if !ok {
		return viper.GetStringSlice(httpHeadersKey)
	}

	var headers []string

	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			headers = append(headers, line)
		}
	}

	return headers
}

// configureLogger configures the global slog logger for one run.
//
// By default it logs at Info; if verbose is true it logs at Debug. Every
// record carries the run ID.
func configureLogger(logPath string, verbose bool, runID string) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler).With("run", runID)
	slog.SetDefault(globalLogger)
}
