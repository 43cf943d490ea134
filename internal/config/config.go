// Package config provides layered configuration for mailsend: built-in
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transport names accepted in Config.Transport.
const (
	TransportSendmail = "sendmail"
	TransportSES      = "ses"
	TransportGraph    = "graph"
	TransportGmail    = "gmail"
	TransportStdout   = "stdout"
)

// Config holds the complete application configuration.
type Config struct {
	// Transport selects the local delivery backend.
	Transport string         `yaml:"transport"`
	Sendmail  SendmailConfig `yaml:"sendmail"`
	SES       SESConfig      `yaml:"ses"`
	Graph     GraphConfig    `yaml:"graph"`
	Gmail     GmailConfig    `yaml:"gmail"`
	SMTP      SMTPConfig     `yaml:"smtp"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// SendmailConfig holds the local MTA binary location.
type SendmailConfig struct {
	Path string `yaml:"path"`
}

// SESConfig holds AWS SES configuration. Empty keys fall back to the
// default AWS credential chain.
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKeyID      string `yaml:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// GmailConfig holds Gmail API configuration. The credentials file is a
// service account key with domain-wide delegation for Sender.
type GmailConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	Sender          string `yaml:"sender"`
}

// SMTPConfig holds the authenticated-SMTP helper settings.
type SMTPConfig struct {
	HelperPath      string `yaml:"helper_path"`
	CredentialsFile string `yaml:"credentials_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables on top of defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. A missing file is an error.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvVars()

	return cfg, nil
}

// GraphConfigured returns true if all four Graph API settings are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != ""
}

// SMTPConfigured returns true if the helper can be used.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.HelperPath != "" && c.SMTP.CredentialsFile != ""
}

// Validate checks that the selected transport has what it needs.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportSendmail:
		if c.Sendmail.Path == "" {
			errs = append(errs, errors.New("sendmail.path is required"))
		}
	case TransportSES:
		if c.SES.Region == "" {
			errs = append(errs, errors.New("ses.region is required"))
		}
		if (c.SES.AccessKeyID == "") != (c.SES.SecretAccessKey == "") {
			errs = append(errs, errors.New("ses.access_key_id and ses.secret_access_key must be set together"))
		}
	case TransportGraph:
		if !c.GraphConfigured() {
			errs = append(errs, errors.New("graph.tenant_id, graph.client_id, graph.client_secret and graph.sender are required"))
		}
	case TransportGmail:
		if c.Gmail.CredentialsFile == "" || c.Gmail.Sender == "" {
			errs = append(errs, errors.New("gmail.credentials_file and gmail.sender are required"))
		}
	case TransportStdout:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	c.Transport = TransportSendmail
	c.Sendmail.Path = "/usr/sbin/sendmail"
	c.SMTP.HelperPath = "/usr/local/bin/smtp-send"
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with non-empty environment values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("MAIL_TRANSPORT"); v != "" {
		c.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("SENDMAIL_PATH"); v != "" {
		c.Sendmail.Path = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_CONFIGURATION_SET"); v != "" {
		c.SES.ConfigurationSet = v
	}

	if v := os.Getenv("GRAPH_TENANT_ID"); v != "" {
		c.Graph.TenantID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_ID"); v != "" {
		c.Graph.ClientID = v
	}
	if v := os.Getenv("GRAPH_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}
	if v := os.Getenv("GRAPH_SENDER"); v != "" {
		c.Graph.Sender = v
	}

	if v := os.Getenv("GMAIL_CREDENTIALS_FILE"); v != "" {
		c.Gmail.CredentialsFile = v
	}
	if v := os.Getenv("GMAIL_SENDER"); v != "" {
		c.Gmail.Sender = v
	}

	if v := os.Getenv("SMTP_HELPER_PATH"); v != "" {
		c.SMTP.HelperPath = v
	}
	if v := os.Getenv("SMTP_CREDENTIALS_FILE"); v != "" {
		c.SMTP.CredentialsFile = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
