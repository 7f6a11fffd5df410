// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// RequestIDKey is the field name used for request identifiers.
const RequestIDKey = "request_id"

type Fields = logrus.Fields

var (
	logger = logrus.New()
	once   sync.Once
)

// Setup configures the shared logger from cfg. Only the first call has an effect.
func Setup(cfg config.LogConfig) *logrus.Logger {
	once.Do(func() {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        cfg.File != "",
			TimestampFormat: "02 Jan 06 - 15:04:05",
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}
		if cfg.File != "" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.File,
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     14,
				MaxBackups: 5,
			})
		}
		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(level >= logrus.DebugLevel)
	})
	return logger
}

// Logger returns the shared logger.
func Logger() *logrus.Logger {
	return logger
}

func Debug(fields Fields, msg string) {
	logger.WithFields(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	logger.WithFields(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	logger.WithFields(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	logger.WithFields(fields).Error(msg)
}

// ErrorWithTraceID logs msg at error level and returns the trace id attached to it.
// The request id from fields is reused when present.
func ErrorWithTraceID(fields Fields, msg string) string {
	if fields == nil {
		fields = Fields{}
	}

	traceID, _ := fields[RequestIDKey].(string)
	if traceID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			traceID = "unknown"
		} else {
			traceID = id.String()
		}
	}

	fields["trace_id"] = traceID
	logger.WithFields(fields).Error(msg)
	return traceID
}

// Printf adapts the logger to interfaces expecting a Printf method.
type Printf struct{}

func (Printf) Printf(format string, args ...any) {
	logger.Infof(format, args...)
}
