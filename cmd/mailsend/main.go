// Package main is the mailsend command line entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shineum/mailsend-lite/internal/config"
	"github.com/shineum/mailsend-lite/internal/mailer"
	"github.com/shineum/mailsend-lite/internal/provider"
	"github.com/shineum/mailsend-lite/internal/provider/gmail"
	"github.com/shineum/mailsend-lite/internal/provider/graph"
	"github.com/shineum/mailsend-lite/internal/provider/sendmail"
	"github.com/shineum/mailsend-lite/internal/provider/ses"
	"github.com/shineum/mailsend-lite/internal/provider/stdout"
	"github.com/shineum/mailsend-lite/internal/smtp"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mailsend",
		Short:         "Compose and dispatch HTML mail with attachments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML configuration file (optional)")

	root.AddCommand(newSendCmd(&configPath), newSendersCmd(&configPath))
	return root
}

type sendOptions struct {
	to, from, subject string
	message           string
	messageFile       string
	attachments       []string
	useSMTP           bool
}

func newSendCmd(configPath *string) *cobra.Command {
	var opts sendOptions

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSend(cmd, *configPath, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.to, "to", "", `recipient, "email" or "Name <email>"`)
	f.StringVar(&opts.from, "from", "", `sender, "email" or "Name <email>"`)
	f.StringVar(&opts.subject, "subject", "", "subject line")
	f.StringVar(&opts.message, "message", "", "HTML body")
	f.StringVar(&opts.messageFile, "message-file", "", "read the HTML body from a file")
	f.StringArrayVar(&opts.attachments, "attach", nil, "file to attach (repeatable)")
	f.BoolVar(&opts.useSMTP, "smtp", false, "deliver through the authenticated SMTP helper")
	cmd.MarkFlagsMutuallyExclusive("message", "message-file")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func runSend(cmd *cobra.Command, configPath string, opts sendOptions) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return report(cmd, err)
	}
	setupLogger(cmd.ErrOrStderr(), cfg.Logging.Level)

	body := opts.message
	if opts.messageFile != "" {
		data, err := os.ReadFile(opts.messageFile)
		if err != nil {
			return report(cmd, fmt.Errorf("failed to read message file: %w", err))
		}
		body = string(data)
	}

	ctx := cmd.Context()

	var local provider.Provider
	if !opts.useSMTP {
		local, err = selectProvider(ctx, cfg, cmd.OutOrStdout())
		if err != nil {
			return report(cmd, err)
		}
	}

	var remote mailer.SMTPSender
	if opts.useSMTP {
		remote, err = newDelegate(cfg)
		if err != nil {
			return report(cmd, err)
		}
	}

	res, err := mailer.New(local, remote).Send(ctx, mailer.Request{
		To:          opts.to,
		From:        opts.from,
		Subject:     opts.subject,
		Message:     body,
		Attachments: opts.attachments,
		UseSMTP:     opts.useSMTP,
	})
	if err != nil {
		return report(cmd, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	return nil
}

func newSendersCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "senders",
		Short: "List sender identities known to the SMTP helper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return report(cmd, err)
			}
			if cfg.SMTP.CredentialsFile == "" {
				return report(cmd, errors.New("smtp.credentials_file is not configured"))
			}
			creds, err := smtp.LoadCredentials(cfg.SMTP.CredentialsFile)
			if err != nil {
				return report(cmd, err)
			}
			for _, key := range creds.Keys() {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

// report prints err as "kind: message" for mailer errors and returns it.
func report(cmd *cobra.Command, err error) error {
	var mErr *mailer.Error
	if errors.As(err, &mErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", mErr.Kind, mErr.Message)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	}
	return err
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogger configures the global slog logger with JSON output at the
// given level.
func setupLogger(w io.Writer, level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectProvider builds the local transport named by cfg.Transport.
func selectProvider(ctx context.Context, cfg *config.Config, out io.Writer) (provider.Provider, error) {
	switch cfg.Transport {
	case config.TransportSendmail:
		slog.Debug("using sendmail transport", "path", cfg.Sendmail.Path)
		return sendmail.New(cfg.Sendmail.Path), nil

	case config.TransportSES:
		slog.Debug("using AWS SES transport", "region", cfg.SES.Region)
		p, err := ses.New(ctx, ses.SESProviderConfig{
			Region:           cfg.SES.Region,
			AccessKeyID:      cfg.SES.AccessKeyID,
			SecretAccessKey:  cfg.SES.SecretAccessKey,
			ConfigurationSet: cfg.SES.ConfigurationSet,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case config.TransportGraph:
		slog.Debug("using Microsoft Graph transport", "sender", cfg.Graph.Sender)
		return graph.New(graph.GraphProviderConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		}), nil

	case config.TransportGmail:
		slog.Debug("using Gmail transport", "sender", cfg.Gmail.Sender)
		key, err := os.ReadFile(cfg.Gmail.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read gmail credentials: %w", err)
		}
		p, err := gmail.New(ctx, gmail.Config{CredentialsJSON: key, Sender: cfg.Gmail.Sender})
		if err != nil {
			return nil, err
		}
		return p, nil

	case config.TransportStdout:
		return stdout.NewWithWriter(out, false), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// newDelegate loads sender credentials and builds the SMTP helper delegate.
// It returns a nil sender when the helper is not configured, leaving the
// mailer to report error_send_smtp after the addresses are validated.
func newDelegate(cfg *config.Config) (mailer.SMTPSender, error) {
	if !cfg.SMTPConfigured() {
		slog.Warn("SMTP helper is not configured")
		return nil, nil
	}
	creds, err := smtp.LoadCredentials(cfg.SMTP.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return smtp.New(cfg.SMTP.HelperPath, creds), nil
}
