/*
Package log is the module-scoped logger of provernet, based on zerolog (https://github.com/rs/zerolog).

The logger is configured by a toml file. Every field is optional:

	# default level for all modules: debug/info/warn/error/fatal/panic
	level = "info"

	# output formatter: console, console_no_color, json
	formatter = "json"

	# stdout, stderr or a file path
	out = "stderr"

	# print source file and line
	caller = false

	# time field layout, see time/format.go
	timefieldformat = "3:04 PM"

	# per module overrides (level and out)
	[staking]
	level = "debug"

	[bridge]
	out = "/var/log/provernet/bridge.log"

The file is looked up as ./provernetlog.toml, or at the path given by the
PROVERNET_LOGCONFIG environment variable. Configuration is read once, when the
first logger is created.
*/
package log

import (
	"errors"
	"os"
	"strings"
	"sync"

	colorable "github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	confFilePathKey     = "LOGCONFIG"
	confEnvPrefix       = "PROVERNET"
	defaultConfFileName = "provernetlog"
)

var (
	baseLogger  = zerolog.New(os.Stderr)
	baseLevel   = zerolog.InfoLevel
	logInitLock sync.Mutex
	isLogInit   = false
	viperConf   = viper.New()

	errEmptyName = errors.New("empty output name")
)

// Logger keeps configurations, and provides funcs to print logs.
type Logger struct {
	*zerolog.Logger
	name  string
	level zerolog.Level
}

func loadConfigFile() {
	viperConf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperConf.SetEnvPrefix(confEnvPrefix)
	viperConf.AutomaticEnv()

	viperConf.SetConfigType("toml")
	viperConf.SetConfigName(defaultConfFileName)
	viperConf.AddConfigPath(".")

	if confFilePath := viperConf.GetString(confFilePathKey); confFilePath != "" {
		viperConf.SetConfigFile(confFilePath)
		baseLogger.Info().Str("file", confFilePath).Msg("Init logger using a configuration file")
	}

	if err := viperConf.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			baseLogger.Error().Err(err).Msg("Fail to read a logger's config file")
		}
	}
}

func initLog() {
	if format := viperConf.GetString("timefieldformat"); format != "" {
		zerolog.TimeFieldFormat = format
	}

	out := os.Stderr
	if outputName := viperConf.GetString("out"); outputName != "" {
		o, err := getOutput(outputName)
		if err == nil {
			out = o
		} else {
			baseLogger.Warn().Err(err).Str("outputName", outputName).Msg("failed to open output writer. set to base out instead")
		}
	}
	baseLogger = baseLogger.Output(out)

	switch formatter := strings.ToLower(viperConf.GetString("formatter")); formatter {
	case "", "json":
	case "console":
		baseLogger = baseLogger.Output(
			zerolog.ConsoleWriter{Out: colorable.NewColorable(out), NoColor: false, TimeFormat: zerolog.TimeFieldFormat})
	case "console_no_color":
		baseLogger = baseLogger.Output(
			zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: zerolog.TimeFieldFormat})
	default:
		baseLogger.Warn().Str("formatter", formatter).Msg("Invalid formatter. Only allowed; console/console_no_color/json")
	}

	if viperConf.GetBool("caller") {
		baseLogger = baseLogger.With().Caller().Logger()
	}

	baseLevel = parseLevel(viperConf.GetString("level"), zerolog.InfoLevel)
	baseLogger = baseLogger.With().Timestamp().Logger().Level(baseLevel)
}

func parseLevel(level string, fallback zerolog.Level) zerolog.Level {
	if level == "" {
		return fallback
	}
	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		baseLogger.Warn().Err(err).Str("level", level).Msg("Fail to parse log level")
		return fallback
	}
	return zLevel
}

func ensureInit(withConfig bool) {
	if isLogInit {
		return
	}
	if withConfig {
		loadConfigFile()
	}
	initLog()
	isLogInit = true
}

// NewLogger creates a logger tagged with 'module'. Module sections of the
// config file override the level and output of the base logger.
func NewLogger(moduleName string) *Logger {
	logInitLock.Lock()
	defer logInitLock.Unlock()
	ensureInit(true)

	zLogger := baseLogger.With().Str("module", moduleName).Logger()
	zLevel := baseLevel
	if sub := viperConf.Sub(moduleName); sub != nil {
		if outputName := sub.GetString("out"); outputName != "" {
			if out, err := getOutput(outputName); err == nil {
				zLogger = zLogger.Output(out)
			} else {
				baseLogger.Warn().Err(err).Str("outputName", outputName).Str("module", moduleName).Msg("failed to open output writer. set to base out instead")
			}
		}
		if level := sub.GetString("level"); level != "" {
			zLevel = parseLevel(level, zerolog.InfoLevel)
			zLogger = zLogger.Level(zLevel)
		}
	}

	return &Logger{
		Logger: &zLogger,
		name:   moduleName,
		level:  zLevel,
	}
}

// Default returns the base logger, which has no module name.
func Default() *Logger {
	logInitLock.Lock()
	defer logInitLock.Unlock()
	ensureInit(false)

	return &Logger{
		Logger: &baseLogger,
		level:  baseLevel,
	}
}

// getOutput resolves stdout, stderr or a file path opened for append.
func getOutput(outName string) (*os.File, error) {
	switch outName {
	case "":
		return nil, errEmptyName
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(outName, os.O_WRONLY|os.O_CREATE|os.O_APPEND|os.O_SYNC, 0644)
	}
}

// IsDebugEnabled is used to skip building expensive debug fields.
func (logger *Logger) IsDebugEnabled() bool {
	return logger.level <= zerolog.DebugLevel
}

// Level returns current logger level
func (logger *Logger) Level() string {
	return logger.level.String()
}

// Name returns the module name of the logger.
func (logger *Logger) Name() string {
	return logger.name
}
