// Command waitfor replays listener scenarios and runs a demo bot built on the
// waitfor engine.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/amarnathcjd/waitfor/internal/utils"
	"github.com/amarnathcjd/waitfor/telegram"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	LogLevel string `env:"WAITFOR_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"WAITFOR_LOG_FILE"`

	Token     string        `env:"WAITFOR_BOT_TOKEN"`
	Transport string        `env:"WAITFOR_TRANSPORT" envDefault:"telebot"`
	APIServer string        `env:"WAITFOR_API_SERVER"`
	Timeout   time.Duration `env:"WAITFOR_ASK_TIMEOUT" envDefault:"2m"`

	WebhookAddr   string `env:"WAITFOR_WEBHOOK_ADDR" envDefault:":8443"`
	WebhookPath   string `env:"WAITFOR_WEBHOOK_PATH" envDefault:"/telegram"`
	WebhookSecret string `env:"WAITFOR_WEBHOOK_SECRET"`
}

func loadConfig(dotenv string) (*Config, error) {
	if err := godotenv.Load(dotenv); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "loading %s", dotenv)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parsing environment")
	}
	return cfg, nil
}

// newLogger writes to stderr and, when a log file is set, to a rotated file.
func newLogger(cfg *Config) *utils.Logger {
	log := utils.NewLogger("waitfor").SetLevel(utils.ParseLogLevel(cfg.LogLevel))
	if cfg.LogFile == "" {
		return log
	}
	file := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	return log.SetOutput(io.MultiWriter(os.Stderr, file))
}

func newClient(cfg *Config, log *utils.Logger, transport any) (*telegram.Client, error) {
	return telegram.NewClient(telegram.ClientConfig{
		Logger:    log,
		LogLevel:  cfg.LogLevel,
		Transport: transport,
	})
}

func rootCmd() *cobra.Command {
	var (
		dotenv   string
		logLevel string
		logFile  string
		cfg      *Config
	)
	root := &cobra.Command{
		Use:           "waitfor",
		Short:         "Conversational listeners for Telegram bots",
		Version:       telegram.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cfg, err = loadConfig(dotenv); err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-file") {
				cfg.LogFile = logFile
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dotenv, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn, error or disable")
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file, rotated")

	config := func() *Config { return cfg }
	root.AddCommand(replayCmd(config), serveCmd(config))
	return root
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "waitfor:", err)
		os.Exit(1)
	}
}
