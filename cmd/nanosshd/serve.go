package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eisbaw/nanosshd/internal/sshd"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for and handle SSH connections",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindServeFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().String("addr", ":2222", "address to listen on")
	serveCmd.Flags().String("user", "user", "accepted username")
	serveCmd.Flags().String("password", "password123", "accepted password")
	serveCmd.Flags().Bool("once", false, "handle a single connection then exit")
}

func bindServeFlags(cmd *cobra.Command) error {
	for _, name := range []string{"addr", "user", "password", "once"} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func runServe() error {
	logger := newLogger()

	hostKey, err := sshd.NewHostKey()
	if err != nil {
		return fmt.Errorf("generating host key: %w", err)
	}
	logger.Info().Msg("generated ephemeral Ed25519 host key")

	srv := &sshd.Server{
		Addr:    viper.GetString("addr"),
		HostKey: hostKey,
		Credentials: sshd.Credentials{
			Username: viper.GetString("user"),
			Password: viper.GetString("password"),
		},
		Logger: logger,
		Once:   viper.GetBool("once"),
	}

	return srv.Serve()
}
