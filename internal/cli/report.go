package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/kubev2v/vminfo/internal/collector"
	"github.com/kubev2v/vminfo/internal/config"
	"github.com/kubev2v/vminfo/internal/fileio"
	"github.com/kubev2v/vminfo/internal/report/types"
	"github.com/kubev2v/vminfo/internal/service"
	"github.com/kubev2v/vminfo/internal/vsphere"
	"github.com/kubev2v/vminfo/pkg/log"
	"github.com/kubev2v/vminfo/pkg/metrics"
)

// Session is what a report run needs from a connected platform.
type Session interface {
	collector.Provider
	Endpoint() string
	Close(ctx context.Context) error
}

type ConnectFunc func(ctx context.Context, cfg *config.Config) (Session, error)

type ReportOptions struct {
	config   *config.Config
	envErr   error
	level    zap.AtomicLevel
	writer   *fileio.Writer
	connect  ConnectFunc
	password PasswordReader
	// restoreLogger undoes the switch to the log file, set by Complete.
	restoreLogger func()
}

func NewReportOptions(level zap.AtomicLevel) *ReportOptions {
	cfg, err := config.New()
	if err != nil {
		cfg = &config.Config{}
	}
	return &ReportOptions{
		config:   cfg,
		envErr:   err,
		level:    level,
		writer:   fileio.NewWriter(),
		connect:  connectVsphere,
		password: terminalPassword,
	}
}

func NewCmdReport(level zap.AtomicLevel) *cobra.Command {
	o := NewReportOptions(level)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Collect VM utilization and write a report",
		Example: "vminfo report " +
			"-s vcenter.example.com " +
			"-u administrator@vsphere.local " +
			"-f xlsx --output /tmp/vms.xlsx",
		RunE:         o.RunE,
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

// RunE completes, validates and runs the options, for use as a cobra RunE.
func (o *ReportOptions) RunE(cmd *cobra.Command, args []string) error {
	if err := o.Complete(cmd, args); err != nil {
		return err
	}
	if o.restoreLogger != nil {
		defer o.restoreLogger()
	}
	if err := o.Validate(args); err != nil {
		return err
	}
	return o.Run(cmd.Context(), args)
}

func (o *ReportOptions) Bind(fs *pflag.FlagSet) {
	c := o.config
	fs.StringVarP(&c.Host, "host", "s", c.Host, "vSphere host to connect to")
	fs.IntVarP(&c.Port, "port", "o", c.Port, "port to connect on")
	fs.StringVarP(&c.User, "user", "u", c.User, "user name to use when connecting to host")
	fs.StringVarP(&c.Password, "password", "p", c.Password, "password to use when connecting to host, prompted for when empty")
	fs.BoolVar(&c.Insecure, "insecure", c.Insecure, "skip verification of the server certificate")
	fs.IntVar(&c.WindowDays, "window-days", c.WindowDays, "number of days of performance history to summarize")
	fs.IntVar(&c.Workers, "workers", c.Workers, "number of VMs queried concurrently")
	fs.DurationVar(&c.VMTimeout, "vm-timeout", c.VMTimeout, "time budget for a single VM, 0 disables it")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "time budget for the whole run, 0 disables it")
	fs.Int32Var(&c.PageSize, "page-size", c.PageSize, "maximum VMs per property page, 0 lets the server decide")
	fs.Int32Var(&c.IntervalID, "interval-id", c.IntervalID, "performance sampling interval in seconds, 0 lets the server decide")
	fs.StringVarP(&c.Format, "format", "f", c.Format, fmt.Sprintf("report format, one of %s", strings.Join(types.SupportedFormats, ", ")))
	fs.StringVar(&c.Output, "output", c.Output, "report destination, default output.<format>, - for stdout")
	fs.StringVar(&c.MetricsFile, "metrics-file", c.MetricsFile, "write run metrics in the Prometheus text format to this file")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "write the log to this file as JSON lines instead of stderr")
}

func (o *ReportOptions) Complete(cmd *cobra.Command, args []string) error {
	if o.envErr != nil {
		return fmt.Errorf("failed to read environment: %w", o.envErr)
	}
	if err := log.SetLevel(o.level, o.config.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.config.LogLevel, err)
	}
	if o.config.LogFile != "" && o.restoreLogger == nil {
		logger, err := log.NewLogger(o.level, o.config.LogFile)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", o.config.LogFile, err)
		}
		undo := zap.ReplaceGlobals(logger)
		o.restoreLogger = func() {
			_ = logger.Sync()
			undo()
		}
	}
	if o.config.Output == "" && funk.Contains(types.SupportedFormats, o.config.Format) {
		o.config.Output = service.DefaultOutputPath(types.ReportFormat(o.config.Format))
	}
	if o.config.Password == "" && o.config.Host != "" && o.config.User != "" {
		password, err := o.password(o.config.Host, o.config.User)
		if err != nil {
			return err
		}
		o.config.Password = password
	}
	return nil
}

func (o *ReportOptions) Validate(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
	}
	return o.config.Validate()
}

func (o *ReportOptions) Run(ctx context.Context, args []string) error {
	logger := zap.S().Named("report")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	session, err := o.connect(ctx, o.config)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warnf("failed to close session: %v", err)
		}
	}()

	results, err := collector.NewCollector(session, collector.Options{
		WindowDays: o.config.WindowDays,
		Workers:    o.config.Workers,
		VMTimeout:  o.config.VMTimeout,
		PageSize:   o.config.PageSize,
		IntervalID: o.config.IntervalID,
	}).Run(ctx)
	if err != nil {
		if results != nil {
			logger.Warnf("run stopped after %d of %d vms, no report written", results.Completed(), results.Total())
		}
		return errors.Join(err, o.writeMetrics())
	}

	svc := service.NewReportService(o.writer)
	rep := svc.BuildReport(results, session.Endpoint())
	if err := svc.WriteReport(rep, types.ReportFormat(o.config.Format), o.config.Output); err != nil {
		return err
	}

	return o.writeMetrics()
}

func (o *ReportOptions) writeMetrics() error {
	if o.config.MetricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(o.writer.PathFor(o.config.MetricsFile)); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", o.config.MetricsFile, err)
	}
	return nil
}

func connectVsphere(ctx context.Context, cfg *config.Config) (Session, error) {
	u, err := vsphere.BuildURL(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if err != nil {
		return nil, err
	}
	client, err := vsphere.Connect(ctx, u, cfg.Insecure)
	if err != nil {
		return nil, err
	}
	return client, nil
}
