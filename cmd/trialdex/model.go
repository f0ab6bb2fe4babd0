package main

import (
	"fmt"

	"github.com/helixml/trialdex/infrastructure/provider"
	"github.com/spf13/cobra"
)

func downloadModelCmd() *cobra.Command {
	var (
		envFile string
		model   string
		dest    string
	)

	cmd := &cobra.Command{
		Use:   "download-model",
		Short: "Download the local embedding model",
		Long: `Download an ONNX sentence embedding model from HuggingFace into the
models directory under DATA_DIR. The local model is used whenever no
EMBEDDING_ENDPOINT_MODEL is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dest == "" {
				cfg, err := loadConfig(envFile)
				if err != nil {
					return err
				}
				dest = cfg.ModelDir()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Downloading %s to %s...\n", model, dest)
			path, err := provider.DownloadModel(model, dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model downloaded to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&model, "model", provider.DefaultLocalModel, "HuggingFace model name")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination directory (default: {DATA_DIR}/models)")

	return cmd
}
