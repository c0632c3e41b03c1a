package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cheaterdxd/mail-client/internal/archive"
	"github.com/cheaterdxd/mail-client/internal/credential"
	"github.com/cheaterdxd/mail-client/internal/ledger"
	"github.com/cheaterdxd/mail-client/internal/mailbox"
	"github.com/cheaterdxd/mail-client/internal/model"
	"github.com/cheaterdxd/mail-client/internal/notify"
	"github.com/cheaterdxd/mail-client/internal/secure"
	"github.com/cheaterdxd/mail-client/internal/sync"
)

var (
	cfgPath         string
	profileOverride string
	verbose         bool

	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "mailclient",
	Short:         "Personal mail retrieval and offline archive utility",
	Long:          "Downloads new mail over POP3 or IMAP into per-message folders, sends mail over SMTP, and browses and tags the offline archive.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.TimeOnly,
		}).Level(level).With().Timestamp().Logger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgPath, "config", model.DefaultConfigPath(), "path to config file")
	rootCmd.PersistentFlags().StringVar(
		&profileOverride, "profile", "", "override security profile (strict|balanced|legacy)")
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig reads and validates the configuration, applying the --profile
// override and resolving a missing password through the system keyring.
func loadConfig() (*model.Config, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	if profileOverride != "" {
		cfg.SecurityProfile = profileOverride
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Password == "" {
		secret, err := credential.Get(cfg.Username)
		if err != nil {
			return nil, fmt.Errorf(
				"password not in config and keyring lookup failed: %w", err)
		}
		cfg.Password = secret
	}

	return cfg, nil
}

// newSyncer assembles the sync orchestrator from a validated config.
func newSyncer(cfg *model.Config) (*sync.Syncer, error) {
	profile, err := secure.ParseProfile(cfg.SecurityProfile)
	if err != nil {
		return nil, err
	}
	negotiator := secure.NewNegotiator(profile, logger)

	writer, err := archive.NewWriter(cfg.ArchiveRoot, logger)
	if err != nil {
		return nil, err
	}

	led, err := ledger.Open(cfg.ArchiveRoot)
	if err != nil {
		return nil, err
	}

	opener := &mailbox.Opener{
		Negotiator: negotiator,
		Host:       cfg.Host,
		Port:       cfg.Port,
		Logger:     logger,
	}

	return sync.New(
		opener, cfg.Username, cfg.Password,
		led, writer, notify.Desktop{}, logger,
	), nil
}
