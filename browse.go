package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/spbridge/internal/browse"
	"github.com/tonimelisma/spbridge/internal/catalog"
)

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List sites, drives, or the contents of a folder",
		Long: `List one level of the SharePoint hierarchy.

With no flags, lists the root site's default drive (or all sites when
browse.default_drive is false). --site lists a site's drives, --drive lists
a drive's root, and --folder (which needs --drive) lists one folder.
Only documents on the allow-list are shown.`,
		Args: cobra.NoArgs,
		RunE: runBrowse,
	}

	cmd.Flags().String("site", "", "site id")
	cmd.Flags().String("drive", "", "drive id")
	cmd.Flags().String("folder", "", "folder id (requires --drive)")

	return cmd
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := resolvedCfg
	logger := buildLogger(cfg)

	loc := browse.Location{}
	loc.SiteID, _ = cmd.Flags().GetString("site")
	loc.DriveID, _ = cmd.Flags().GetString("drive")
	loc.FolderID, _ = cmd.Flags().GetString("folder")

	store, err := newRemoteStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result, err := browse.NewNavigator(store, navigatorOptions(cfg), logger).Browse(ctx, loc)
	if err != nil {
		return fmt.Errorf("browsing: %w", err)
	}

	if flagJSON {
		return printJSON(os.Stdout, result)
	}

	printBrowseResult(os.Stdout, result)

	return nil
}

// printBrowseResult writes a header with the current and parent paths and a
// table with folders listed before files.
func printBrowseResult(w io.Writer, result *catalog.BrowseResult) {
	fmt.Fprintf(w, "Path:   %s\n", result.CurrentPath)

	if result.ParentPath != nil {
		fmt.Fprintf(w, "Parent: %s\n", *result.ParentPath)
	}

	fmt.Fprintln(w)

	if len(result.Folders) == 0 && len(result.Files) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}

	rows := make([][]string, 0, len(result.Folders)+len(result.Files))

	for _, n := range result.Folders {
		name := n.Name
		if n.Kind == catalog.KindFolder {
			name += "/"
		}

		rows = append(rows, []string{name, n.Kind.String(), "-", "-", n.ID})
	}

	for i := range result.Files {
		f := &result.Files[i]
		rows = append(rows, []string{f.Name, f.Kind.String(), formatSize(f.SizeBytes), formatTime(f.ModifiedAt), f.ID})
	}

	printTable(w, []string{"NAME", "KIND", "SIZE", "MODIFIED", "ID"}, rows)
}
