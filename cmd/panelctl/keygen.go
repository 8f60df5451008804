package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/panelkit/panel/internal/token"
)

func newKeygenCmd() *cobra.Command {
	var (
		bits   int
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA key pair for token signing",
		Long: `Generate an RSA key pair for JWT_PRIVATE_KEY and JWT_PUBLIC_KEY.

Without --out-dir both PEM blocks are written to stdout, private key first.
With --out-dir they are written to jwt_private.pem (mode 0600) and jwt_public.pem.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := token.GenerateKeyPair(bits)
			if err != nil {
				return err
			}
			privatePEM, publicPEM, err := token.EncodeKeyPair(key)
			if err != nil {
				return err
			}
			if outDir == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), privatePEM, publicPEM)
				return err
			}
			privPath := filepath.Join(outDir, "jwt_private.pem")
			if err := os.WriteFile(privPath, []byte(privatePEM), 0o600); err != nil {
				return fmt.Errorf("write private key: %w", err)
			}
			pubPath := filepath.Join(outDir, "jwt_public.pem")
			if err := os.WriteFile(pubPath, []byte(publicPEM), 0o644); err != nil {
				return fmt.Errorf("write public key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", privPath, pubPath)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", token.DefaultKeyBits, "RSA modulus size")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to write the PEM files to")
	return cmd
}
