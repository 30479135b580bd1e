package logger

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	User *UserLogger // Clean messages for users (stdout)
	Op   *OpLogger   // Detailed operational logs (stderr)
)

// init ensures loggers are never nil
func init() {
	Setup(false, false, false)
}

type UserLogger struct {
	logger *logrus.Logger
}

type OpLogger struct {
	logger *logrus.Logger
}

// UserLogger methods - clean output for workflow progress
func (u *UserLogger) Info(msg string) {
	u.logger.Info(msg)
}

func (u *UserLogger) Infof(format string, args ...interface{}) {
	u.logger.Infof(format, args...)
}

func (u *UserLogger) Error(msg string) {
	u.logger.Error(msg)
}

func (u *UserLogger) Errorf(format string, args ...interface{}) {
	u.logger.Errorf(format, args...)
}

func (u *UserLogger) Warn(msg string) {
	u.logger.Warn(msg)
}

func (u *UserLogger) Warnf(format string, args ...interface{}) {
	u.logger.Warnf(format, args...)
}

func (u *UserLogger) Starting(msg string) {
	u.logger.Info(msg)
}

func (u *UserLogger) Success(msg string) {
	u.logger.Info(msg)
}

func (u *UserLogger) Successf(format string, args ...interface{}) {
	u.logger.Infof(format, args...)
}

// OpLogger methods - detailed operational logs
func (o *OpLogger) Info(msg string) {
	o.logger.Info(msg)
}

func (o *OpLogger) Infof(format string, args ...interface{}) {
	o.logger.Infof(format, args...)
}

func (o *OpLogger) Error(msg string) {
	o.logger.Error(msg)
}

func (o *OpLogger) Errorf(format string, args ...interface{}) {
	o.logger.Errorf(format, args...)
}

func (o *OpLogger) Warn(msg string) {
	o.logger.Warn(msg)
}

func (o *OpLogger) Warnf(format string, args ...interface{}) {
	o.logger.Warnf(format, args...)
}

func (o *OpLogger) Debug(msg string) {
	o.logger.Debug(msg)
}

func (o *OpLogger) Debugf(format string, args ...interface{}) {
	o.logger.Debugf(format, args...)
}

func (o *OpLogger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return o.logger.WithFields(fields)
}

// CLIFormatter provides clean output for CLI applications
type CLIFormatter struct {
	DisableTimestamp bool
	DisableLevel     bool
	DisableColors    bool
}

func (f *CLIFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	// Simple clean format: just the message for user-facing logs
	if f.DisableLevel && f.DisableTimestamp {
		b.WriteString(entry.Message)
		f.writeFields(&b, entry)
		b.WriteByte('\n')
		return b.Bytes(), nil
	}

	if !f.DisableLevel {
		levelColor := ""
		resetColor := ""
		if !f.DisableColors {
			switch entry.Level {
			case logrus.ErrorLevel:
				levelColor = "\033[31m" // Red
			case logrus.WarnLevel:
				levelColor = "\033[33m" // Yellow
			case logrus.InfoLevel:
				levelColor = "\033[36m" // Cyan
			case logrus.DebugLevel:
				levelColor = "\033[37m" // White
			}
			resetColor = "\033[0m"
		}

		b.WriteString(levelColor)
		b.WriteString(strings.ToUpper(entry.Level.String()))
		b.WriteString(resetColor)
		b.WriteString(": ")
	}

	b.WriteString(entry.Message)
	f.writeFields(&b, entry)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *CLIFormatter) writeFields(b *bytes.Buffer, entry *logrus.Entry) {
	if len(entry.Data) == 0 {
		return
	}
	b.WriteString(" ")
	for k, v := range entry.Data {
		b.WriteString(fmt.Sprintf("%s=%v ", k, v))
	}
}

func Setup(verbose bool, jsonLogs bool, quiet bool) {
	// Environment variables override CLI flags
	if envLogMode := os.Getenv("LOG_MODE"); envLogMode != "" {
		switch envLogMode {
		case "quiet":
			quiet = true
			verbose = false
		case "verbose", "debug":
			verbose = true
			quiet = false
		}
	}

	if envLogFormat := os.Getenv("LOG_FORMAT"); envLogFormat != "" {
		switch envLogFormat {
		case "json":
			jsonLogs = true
		case "text":
			jsonLogs = false
		}
	}

	var level logrus.Level
	if quiet {
		level = logrus.ErrorLevel
	} else if verbose {
		level = logrus.DebugLevel
	} else {
		level = logrus.InfoLevel
	}

	userLogger := logrus.New()
	userLogger.SetOutput(os.Stdout)
	userLogger.SetLevel(level)

	opLogger := logrus.New()
	opLogger.SetOutput(os.Stderr)
	opLogger.SetLevel(level)

	if jsonLogs {
		userLogger.SetFormatter(&logrus.JSONFormatter{})
		opLogger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		userLogger.SetFormatter(&CLIFormatter{
			DisableTimestamp: true,
			DisableLevel:     true,
			DisableColors:    !isatty.IsTerminal(os.Stdout.Fd()),
		})

		if verbose {
			opLogger.SetFormatter(&logrus.TextFormatter{
				FullTimestamp: true,
				ForceColors:   isatty.IsTerminal(os.Stderr.Fd()),
			})
		} else {
			opLogger.SetFormatter(&CLIFormatter{
				DisableTimestamp: true,
				DisableLevel:     false,
				DisableColors:    !isatty.IsTerminal(os.Stderr.Fd()),
			})
		}
	}

	User = &UserLogger{logger: userLogger}
	Op = &OpLogger{logger: opLogger}
}
