package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/abduss/pinstore/internal/config"
)

var instantiateFile string

func init() {
	instantiateCmd.Flags().StringVar(&instantiateFile, "file", "", "YAML or JSON(C) instantiate document")
	_ = instantiateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(instantiateCmd)
}

var instantiateCmd = &cobra.Command{
	Use:   "instantiate",
	Short: "Create the bucket of a fresh state from a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if instantiateFile == "" {
			return errors.New("--file is required")
		}
		doc, err := config.LoadInstantiate(instantiateFile)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		resp, err := a.gateway.InstantiateBucket(cmd.Context(), "cli", doc.Input())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}
