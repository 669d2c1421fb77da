package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/formkeeper/formkeeper/internal/core/auth"
	"github.com/formkeeper/formkeeper/internal/core/config"
	"github.com/formkeeper/formkeeper/internal/core/db"
	"github.com/formkeeper/formkeeper/internal/types"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Mint a new API key for a tenant",
	Long:  `Generates an API key under the configured HMAC secret and stores its hash. The full key is printed once and cannot be recovered.`,
	RunE:  runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <api_key_id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysRevokeCmd)
	keysCreateCmd.Flags().String("tenant", "", "tenant ID the key belongs to")
	keysCreateCmd.Flags().String("secret-id", "", "HMAC secret ID to sign with (defaults to the only configured secret)")
	_ = keysCreateCmd.MarkFlagRequired("tenant")
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	tenantID, _ := cmd.Flags().GetString("tenant")
	secretID, _ := cmd.Flags().GetString("secret-id")

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set FK_HMAC_SECRET environment variable)")
	}

	if secretID == "" {
		if len(secrets) > 1 {
			return fmt.Errorf("multiple HMAC secrets configured, pass --secret-id")
		}
		for id := range secrets {
			secretID = id
		}
	}
	secret, ok := secrets[secretID]
	if !ok {
		return fmt.Errorf("unknown secret ID %q", secretID)
	}

	key, keyHash, err := auth.GenerateAPIKey(secretID, secret)
	if err != nil {
		return err
	}

	queries, cleanup, err := openQueries()
	if err != nil {
		return err
	}
	defer cleanup()

	keyID := types.NewAPIKeyID()
	if _, err := queries.Exec("create-api-key", keyID, tenantID, keyHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("api_key_id: %s\n", keyID)
	fmt.Printf("tenant_id:  %s\n", tenantID)
	fmt.Printf("api_key:    %s\n", key)
	fmt.Println("store the key now - it cannot be shown again")
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	queries, cleanup, err := openQueries()
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := queries.Exec("revoke-api-key", time.Now().UTC(), args[0])
	if err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no active key with ID %s", args[0])
	}
	fmt.Printf("revoked %s\n", args[0])
	return nil
}

// openQueries opens the configured database and loads the named queries.
func openQueries() (*db.Queries, func(), error) {
	cfg, err := loadEffectiveConfig(nil)
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return queries, func() { database.Close() }, nil
}
