package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/xid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置
// Output 为空时写 stderr，stdout 留给设备列表和参数报告。
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

var (
	baseLogger *zap.Logger
	sugar      *zap.SugaredLogger
	sessionID  atomic.Value
	streamSeq  atomic.Uint64
)

func init() {
	baseLogger = zap.NewNop()
	sugar = baseLogger.Sugar()
}

// Init replaces the no-op logger with one writing cfg.Format entries at
// cfg.Level or above to cfg.Output.
func Init(cfg Config) error {
	level := zap.NewAtomicLevel()
	name := strings.ToLower(strings.TrimSpace(cfg.Level))
	if name == "" {
		name = "info"
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	encoder, err := newEncoder(cfg.Format)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level)
	baseLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	sugar = baseLogger.Sugar()
	return nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	case "json":
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	}
	return nil, fmt.Errorf("invalid log format: %s", format)
}

func Sync() {
	_ = baseLogger.Sync()
}

func SetSessionID(id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	sessionID.Store(id)
}

// NewSessionID returns a fresh, sortable id for one command run.
func NewSessionID() string {
	return xid.New().String()
}

// StartStream bumps the stream sequence attached to every later log entry.
func StartStream() uint64 {
	return streamSeq.Add(1)
}

func Debugf(format string, args ...interface{}) {
	withFields().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	withFields().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	withFields().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	withFields().Errorf(format, args...)
}

func withFields() *zap.SugaredLogger {
	sid, _ := sessionID.Load().(string)
	if sid == "" {
		sid = "session-unknown"
	}
	return sugar.With(
		"session_id", sid,
		"stream_seq", streamSeq.Load(),
	)
}
