package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quickcan/goquickcan"
)

var rootCmd = &cobra.Command{
	Use:               "quickcan",
	Short:             "QuickCAN serial adapter tool",
	Long:              `Send, receive and manage frames on a QuickCAN USB-CAN adapter.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagPort      = "port"
	flagBaudrate  = "baudrate"
	flagDebug     = "debug"
	flagConfig    = "config"
	flagLogFile   = "log-file"
	flagLogFormat = "log-format"
)

var (
	cfg     = viper.New()
	log     = logrus.New()
	logFile *lumberjack.Logger
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", "*", "com-port, * = print available, loopback = in memory echo")
	pf.IntP(flagBaudrate, "b", quickcan.DefaultBaudrate, "baudrate")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.String(flagConfig, "", "config file (yaml, toml or json)")
	pf.String(flagLogFile, "", "also write the log to this file, rotated at 10MB")
	pf.String(flagLogFormat, "text", "log format, text or json")

	if err := cfg.BindPFlags(pf); err != nil {
		panic(err)
	}
	cfg.SetEnvPrefix("QUICKCAN")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()
}

func initConfig(cmd *cobra.Command, args []string) error {
	if file := cfg.GetString(flagConfig); file != "" {
		cfg.SetConfigFile(file)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return setupLogging(cmd.ErrOrStderr())
}

func setupLogging(stderr io.Writer) error {
	switch f := cfg.GetString(flagLogFormat); f {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q (text, json)", f)
	}

	log.SetLevel(logrus.InfoLevel)
	if cfg.GetBool(flagDebug) {
		log.SetLevel(logrus.DebugLevel)
	}

	out := stderr
	if name := cfg.GetString(flagLogFile); name != "" {
		logFile = &lumberjack.Logger{
			Filename:   name,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			LocalTime:  true,
		}
		out = io.MultiWriter(stderr, logFile)
	}
	log.SetOutput(out)
	return nil
}
