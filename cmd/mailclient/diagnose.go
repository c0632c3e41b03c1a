package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cheaterdxd/mail-client/internal/secure"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Probe the mail server with each security profile",
	Long:  "Attempts a TLS handshake against the configured endpoint under every security profile and reports which succeed, as an aid for choosing security_profile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Probing %s:%d\n", cfg.Host, cfg.Port)
		results := secure.Diagnose(context.Background(), cfg.Host, cfg.Port, logger)

		var working []secure.Profile
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("  %-8s FAILED  %v\n", r.Profile, r.Err)
				continue
			}
			fmt.Printf("  %-8s OK\n", r.Profile)
			working = append(working, r.Profile)
		}

		if len(working) == 0 {
			return fmt.Errorf("no security profile completed a handshake against %s:%d", cfg.Host, cfg.Port)
		}

		fmt.Printf("Recommended: security_profile: %s\n", working[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}
