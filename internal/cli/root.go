package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/liuscraft/pacap/internal/config"
	"github.com/liuscraft/pacap/internal/logging"
	"github.com/liuscraft/pacap/internal/metrics"
)

// app 命令共享状态：全局参数、配置与音频后端
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	metricsAddr string

	cfg     *config.AppConfig
	backend backend
}

// Execute runs the pacap command line with args (os.Args[1:] in main).
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand(newPortAudioBackend())
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func newRootCommand(b backend) *cobra.Command {
	a := &app{backend: b}

	root := &cobra.Command{
		Use:   "pacap",
		Short: "PortAudio capability probe: list devices, check formats, play a tone, record",
		Long: `pacap inspects what the local audio devices can do.

It lists every device PortAudio sees, checks whether a stream with a given
channel count, sample format, latency and rate can be opened, plays a
stereo sine tone in any of the supported formats (f32, i32, i16, i8, u8)
and records from an input device into a WAV file.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			logging.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultPath, "config file (yaml or json)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: console or json")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while streaming")

	root.AddCommand(
		a.traverseCommand(),
		a.testFormatCommand(),
		a.playCommand(),
		a.recordCommand(),
		a.renderCommand(),
	)
	return root
}

// setup 加载配置并初始化日志；命令行参数优先于配置文件和环境变量
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.metricsAddr != "" {
		cfg.Metrics.Addr = a.metricsAddr
	}
	a.cfg = cfg

	logCfg := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cmd.ErrOrStderr()}
	if err := logging.Init(logCfg); err != nil {
		return err
	}
	logging.SetSessionID(logging.NewSessionID())
	logging.Debugf("CLI: %s started (config=%s)", cmd.CommandPath(), a.configPath)
	return nil
}

// withMetrics runs fn while the metrics server (if configured) is up.
func (a *app) withMetrics(ctx context.Context, fn func(context.Context) error) (err error) {
	if a.cfg.Metrics.Addr == "" {
		return fn(ctx)
	}

	srv, err := metrics.Listen(a.cfg.Metrics.Addr)
	if err != nil {
		return err
	}
	srvCtx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(srvCtx) }()

	defer func() {
		stop()
		if serr := <-done; serr != nil {
			err = errors.Join(err, fmt.Errorf("metrics server: %w", serr))
		}
	}()
	return fn(ctx)
}

// withAudio brackets fn with backend initialisation and termination.
func (a *app) withAudio(fn func() error) error {
	if err := a.backend.Initialize(); err != nil {
		return fmt.Errorf("initialize audio: %w", err)
	}
	defer func() {
		if err := a.backend.Terminate(); err != nil {
			logging.Errorf("CLI: error terminating audio: %v", err)
		}
	}()
	return fn()
}
