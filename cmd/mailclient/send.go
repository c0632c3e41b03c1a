package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cheaterdxd/mail-client/internal/secure"
	"github.com/cheaterdxd/mail-client/internal/smtp"
)

var (
	sendTo      string
	sendSubject string
	sendBody    string
	sendAttach  []string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message over SMTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		profile, err := secure.ParseProfile(cfg.SecurityProfile)
		if err != nil {
			return err
		}

		sender := smtp.NewSender(
			secure.NewNegotiator(profile, logger),
			cfg.SMTPHost, cfg.SMTPPort,
			cfg.Username, cfg.Password,
			logger,
		)

		if err := sender.Send(
			context.Background(), sendTo, sendSubject, sendBody, sendAttach,
		); err != nil {
			return err
		}

		fmt.Printf("Sent to %s\n", sendTo)
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	sendCmd.Flags().StringVar(&sendSubject, "subject", "", "message subject")
	sendCmd.Flags().StringVar(&sendBody, "body", "", "message body text")
	sendCmd.Flags().StringSliceVar(&sendAttach, "attach", nil, "file to attach (repeatable)")
	_ = sendCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(sendCmd)
}
