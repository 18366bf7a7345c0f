package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/x0ba/habithing/internal/config"
	"github.com/x0ba/habithing/internal/database"
	"github.com/x0ba/habithing/internal/models"
)

// oidcFileConfig is the YAML shape accepted by --file. All fields mirror the
// corresponding flags; flags take precedence when both are given.
type oidcFileConfig struct {
	Issuer      string `yaml:"issuer"`
	ClientID    string `yaml:"clientId"`
	RedirectURI string `yaml:"redirectUri"`
	JWKSUrl     string `yaml:"jwksUrl"`
}

// NewOIDCCmd creates the OIDC configuration command
func NewOIDCCmd() *cobra.Command {
	var issuer, clientID, redirectURI, jwksURL, file string

	cmd := &cobra.Command{
		Use:   "oidc <provider-name>",
		Short: "Configure OIDC provider",
		Long:  "Configure an OIDC provider for authentication. Provider name can be any identifier (e.g., 'cognito', 'okta', 'auth0'). Settings can come from flags or a YAML file via --file; flags win on conflict.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if provider == "" {
				return fmt.Errorf("provider name cannot be empty")
			}

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read config file: %w", err)
				}
				var fc oidcFileConfig
				if err := yaml.Unmarshal(data, &fc); err != nil {
					return fmt.Errorf("failed to parse config file: %w", err)
				}
				if issuer == "" {
					issuer = fc.Issuer
				}
				if clientID == "" {
					clientID = fc.ClientID
				}
				if redirectURI == "" {
					redirectURI = fc.RedirectURI
				}
				if jwksURL == "" {
					jwksURL = fc.JWKSUrl
				}
			}

			if issuer == "" || clientID == "" || redirectURI == "" {
				return fmt.Errorf("required settings: --issuer, --client-id, --redirect-uri (via flags or --file)")
			}
			if jwksURL == "" {
				// Most providers serve JWKS under the issuer.
				jwksURL = issuer + "/.well-known/jwks.json"
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() {
				if err := db.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
				}
			}()

			oidcRepo := database.NewOIDCConfigRepository(db)
			ctx := context.Background()

			existing, err := oidcRepo.GetByProvider(ctx, provider)
			if err == nil && existing != nil {
				existing.Issuer = issuer
				existing.ClientID = clientID
				existing.RedirectURI = redirectURI
				existing.JWKSUrl = &jwksURL

				if err := oidcRepo.Update(ctx, existing); err != nil {
					return fmt.Errorf("failed to update OIDC config: %w", err)
				}
				fmt.Printf("Updated OIDC configuration for provider: %s\n", provider)
			} else {
				oc := &models.OIDCConfig{
					ID:          uuid.New(),
					Provider:    provider,
					Issuer:      issuer,
					ClientID:    clientID,
					RedirectURI: redirectURI,
					JWKSUrl:     &jwksURL,
				}
				if err := oidcRepo.Create(ctx, oc); err != nil {
					return fmt.Errorf("failed to create OIDC config: %w", err)
				}
				fmt.Printf("Created OIDC configuration for provider: %s\n", provider)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")
	cmd.Flags().StringVar(&jwksURL, "jwks-url", "", "JWKS URL (defaults to <issuer>/.well-known/jwks.json)")
	cmd.Flags().StringVar(&file, "file", "", "YAML file with issuer/clientId/redirectUri/jwksUrl")

	return cmd
}
