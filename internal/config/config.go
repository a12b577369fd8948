package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/thoas/go-funk"

	"github.com/kubev2v/vminfo/internal/report/types"
)

// Config holds the settings of a report run. Values come from the
// environment first and are then overridden by command line flags.
type Config struct {
	Host     string `envconfig:"VMINFO_HOST" validate:"required"`
	Port     int    `envconfig:"VMINFO_PORT" default:"443" validate:"min=1,max=65535"`
	User     string `envconfig:"VMINFO_USER" validate:"required"`
	Password string `envconfig:"VMINFO_PASSWORD"`
	Insecure bool   `envconfig:"VMINFO_INSECURE" default:"true"`

	WindowDays int           `envconfig:"VMINFO_WINDOW_DAYS" default:"30" validate:"min=1,max=366"`
	Workers    int           `envconfig:"VMINFO_WORKERS" default:"4" validate:"min=1,max=64"`
	VMTimeout  time.Duration `envconfig:"VMINFO_VM_TIMEOUT" default:"2m" validate:"nonnegative_duration"`
	Timeout    time.Duration `envconfig:"VMINFO_TIMEOUT" default:"0s" validate:"nonnegative_duration"`
	PageSize   int32         `envconfig:"VMINFO_PAGE_SIZE" default:"0" validate:"min=0"`
	IntervalID int32         `envconfig:"VMINFO_INTERVAL_ID" default:"0" validate:"min=0"`

	Format      string `envconfig:"VMINFO_FORMAT" default:"html" validate:"report_format"`
	Output      string `envconfig:"VMINFO_OUTPUT"`
	MetricsFile string `envconfig:"VMINFO_METRICS_FILE"`
	LogLevel    string `envconfig:"VMINFO_LOG_LEVEL" default:"info"`
	// LogFile receives the log as JSON lines instead of the console.
	LogFile string `envconfig:"VMINFO_LOG_FILE"`
}

// New reads the configuration from the environment.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	v := validator.New()
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

var rules = map[string]validator.Func{
	"report_format": func(fl validator.FieldLevel) bool {
		return funk.Contains(types.SupportedFormats, fl.Field().String())
	},
	"nonnegative_duration": func(fl validator.FieldLevel) bool {
		return fl.Field().Int() >= 0
	},
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), bound(fe.Tag()), fe.Param(), fe.Value())
	case "report_format":
		return fmt.Sprintf("format must be one of %s, got %q", strings.Join(types.SupportedFormats, ", "), fe.Value())
	case "nonnegative_duration":
		return fmt.Sprintf("%s must not be negative", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func bound(tag string) string {
	if tag == "min" {
		return "at least"
	}
	return "at most"
}
