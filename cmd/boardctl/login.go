package main

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"

	"boardsync/crud"
)

var loginToken string

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "access token issued by the board service")
	_ = loginCmd.MarkFlagRequired("token")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an access token",
	Long: `Sign in with an access token issued by the board service. The token is
checked against the service before it is stored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The service verifies the signature; locally the claims are only
		// decoded to learn who the token belongs to.
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(loginToken, claims); err != nil {
			return fmt.Errorf("not a valid token: %w", err)
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			return errors.New("token carries no subject")
		}

		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		client := crud.New(cfg.GetString(cfgKeyAPIURL), loginToken)
		if _, err := client.ListBoards(cmd.Context()); err != nil {
			return fmt.Errorf("token rejected by the service: %w", err)
		}

		if err := sessions.SaveCredentials(sub, loginToken); err != nil {
			return err
		}
		printSuccess("signed in as %s\n", sub)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessions.ClearCredentials(); err != nil {
			return err
		}
		printSuccess("signed out\n")
		return nil
	},
}
