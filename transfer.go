package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/spbridge/internal/catalog"
	"github.com/tonimelisma/spbridge/internal/transfer"
)

// errTransferFailures signals that the report was printed but at least one
// file failed, so the process must exit non-zero.
var errTransferFailures = errors.New("one or more files failed to transfer")

func newTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer --drive DRIVE_ID --collection COLLECTION_ID [--site SITE_ID] FILE_ID...",
		Short: "Copy selected files into the S3 bucket",
		Long: `Copy the given files from one drive into the configured bucket under
{prefix}/collections/{collection}/blobs/{file_id}. Each file is reported as
success, failed or skipped. The exit status is 1 if any file failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runTransfer,
	}

	cmd.Flags().String("drive", "", "drive id the files belong to")
	cmd.Flags().String("collection", "", "destination collection id")
	cmd.Flags().String("site", "", "site id the drive must belong to")

	_ = cmd.MarkFlagRequired("drive")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}

func runTransfer(cmd *cobra.Command, args []string) error {
	cfg := resolvedCfg
	logger := buildLogger(cfg)

	if !cfg.Storage.Enabled {
		return errDestinationDisabled
	}

	req := catalog.TransferRequest{FileIDs: args}
	req.DriveID, _ = cmd.Flags().GetString("drive")
	req.CollectionID, _ = cmd.Flags().GetString("collection")
	req.SiteID, _ = cmd.Flags().GetString("site")

	if err := transfer.Validate(req); err != nil {
		return err
	}

	ctx, cancel := shutdownContext(cmd.Context(), logger)
	defer cancel()

	source, err := newRemoteStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sink, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	orch := transfer.New(source, sink, transferOptions(cfg), logger)

	report, err := orch.TransferSelected(ctx, req)
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}

	if flagJSON {
		if err := printJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		printTransferReport(os.Stdout, report)
	}

	statusf(flagQuiet, "%d transferred, %d failed, %d skipped (%s)\n",
		report.Successful, report.Failed, report.Skipped,
		humanize.IBytes(uint64(max(report.BytesTransferred, 0))))

	if report.Failed > 0 {
		return errTransferFailures
	}

	return nil
}

// printTransferReport writes one row per requested file, in request order.
func printTransferReport(w io.Writer, report *catalog.TransferReport) {
	rows := make([][]string, 0, len(report.Results))

	for i := range report.Results {
		r := &report.Results[i]

		size := "-"
		if r.Status == catalog.StatusSuccess {
			size = formatSize(&r.SizeBytes)
		}

		detail := r.DestinationURI
		if r.Status != catalog.StatusSuccess {
			detail = r.ErrorDetail
		}

		name := r.FileName
		if name == "" {
			name = "-"
		}

		rows = append(rows, []string{r.FileID, name, string(r.Status), size, detail})
	}

	printTable(w, []string{"FILE_ID", "NAME", "STATUS", "SIZE", "DETAIL"}, rows)
}
