package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nimbusstore/gateway/internal/cli/prompt"
	"github.com/nimbusstore/gateway/pkg/auth"
	"github.com/nimbusstore/gateway/pkg/config"
)

var (
	mintOperator bool
	mintSubuser  bool
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage bearer tokens for gateway accounts",
}

var accountMintCmd = &cobra.Command{
	Use:   "mint <account>",
	Short: "Mint a bearer token for an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountMint,
}

func init() {
	accountMintCmd.Flags().BoolVar(&mintOperator, "operator", false, "Mint an operator-privileged token")
	accountMintCmd.Flags().BoolVar(&mintSubuser, "subuser", false, "Mint a subuser-scoped token")
	accountCmd.AddCommand(accountMintCmd)
}

func runAccountMint(cmd *cobra.Command, args []string) error {
	account := args[0]

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set in %s", configPath)
	}

	validator, err := auth.NewValidator(auth.ConfigFrom(cfg.Auth))
	if err != nil {
		return fmt.Errorf("build validator: %w", err)
	}

	operator, subuser := mintOperator, mintSubuser
	if !cmd.Flags().Changed("operator") && !cmd.Flags().Changed("subuser") {
		role, err := prompt.SelectString("Token role for "+account, []string{"standard", "operator", "subuser"})
		if err != nil {
			return err
		}
		operator = role == "operator"
		subuser = role == "subuser"
	}

	var token string
	var expires time.Time
	if operator || subuser {
		token, expires, err = validator.MintWithRoles(account, operator, subuser)
	} else {
		token, expires, err = validator.Mint(account)
	}
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	fmt.Println(token)
	fmt.Printf("expires: %s\n", expires.Format(time.RFC3339))
	return nil
}
