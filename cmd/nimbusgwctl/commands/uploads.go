package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimbusstore/gateway/internal/cli/output"
	"github.com/nimbusstore/gateway/pkg/config"
	"github.com/nimbusstore/gateway/pkg/mpu"
	"github.com/nimbusstore/gateway/pkg/registry"
)

var uploadsAccount string
var uploadsLimit int

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Inspect in-progress multipart uploads",
}

var uploadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an account's upload records",
	RunE:  runUploadsList,
}

func init() {
	uploadsListCmd.Flags().StringVar(&uploadsAccount, "account", "", "Account to list uploads for (required)")
	uploadsListCmd.Flags().IntVar(&uploadsLimit, "limit", 1000, "Maximum number of records to scan")
	_ = uploadsListCmd.MarkFlagRequired("account")

	uploadsCmd.AddCommand(uploadsListCmd)
}

func runUploadsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	store, err := registry.BuildMetadataStore(cfg.Metadata)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	defer func() { _ = store.Close() }()

	app := &mpu.Application{Metadata: store}
	results, err := mpu.ListUploads(context.Background(), app, mpu.ListRequest{Account: uploadsAccount, Limit: uploadsLimit})
	if err != nil {
		return fmt.Errorf("list uploads: %w", err)
	}

	table := output.NewTableData("UPLOAD ID", "STATE", "FINALIZING", "TARGET PATH")
	for _, r := range results {
		table.AddRow(r.UploadID, r.State.String(), r.FinalizingType.String(), r.TargetPath)
	}
	output.PrintTable(os.Stdout, table)
	return nil
}
