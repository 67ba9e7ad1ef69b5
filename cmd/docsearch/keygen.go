package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/auth/apikey"
)

func newKeygenCmd() *cobra.Command {
	var hashOnly string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an admin key and the digest to put in auth.adminKeyHashes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if hashOnly != "" {
				fmt.Fprintln(out, apikey.HashKey(hashOnly))
				return nil
			}
			key, err := apikey.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "key:  %s\n", key)
			fmt.Fprintf(out, "hash: %s\n", apikey.HashKey(key))
			fmt.Fprintln(cmd.ErrOrStderr(), "store the key now, it cannot be recovered from the hash")
			return nil
		},
	}
	cmd.Flags().StringVar(&hashOnly, "hash", "", "print the digest of an existing key instead of generating one")
	return cmd
}
