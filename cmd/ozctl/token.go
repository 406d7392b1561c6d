package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/all2prosperity/audio-svc/internal/auth"
)

var (
	tokenUser   string
	tokenDevice string
	tokenSecret string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := tokenSecret
		if secret == "" {
			secret = cfg.JWTSecret
		}
		signer, err := auth.NewSigner(secret)
		if err != nil {
			return err
		}

		var token string
		switch {
		case tokenUser != "" && tokenDevice != "":
			return errors.New("--user and --device are mutually exclusive")
		case tokenUser != "":
			token, err = signer.GenerateUserToken(tokenUser)
		case tokenDevice != "":
			token, err = signer.GenerateDeviceToken(tokenDevice)
		default:
			return errors.New("one of --user or --device is required")
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id")
	tokenCmd.Flags().StringVar(&tokenDevice, "device", "", "device id")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "signing secret, defaults to JWT_SECRET")
}
