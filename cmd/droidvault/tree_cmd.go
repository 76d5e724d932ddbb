package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/droidvault/droidvault/internal/backup"
	"github.com/droidvault/droidvault/internal/workspace"
)

func init() {
	rootCmd.AddCommand(newTreeCmd())
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show every indexed file grouped by device folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			ws, err := workspace.NewWorkspace(cfg.BackupDir, cfg.User)
			if err != nil {
				return err
			}

			index, err := backup.OpenIndex(ws.IndexPath(), cfg.DeviceRoot)
			if err != nil {
				return err
			}
			if err := index.MigrateLegacy(ws.LegacyRecordPath(), ws.LegacyRestoreRecordPath()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			writeTree(out, index.Tree(), "")
			fmt.Fprintf(out, "\n%d files indexed\n", index.Count())
			return nil
		},
	}
}

// writeTree renders directories before their contents, files with the session
// roots that captured them.
func writeTree(w io.Writer, dir *backup.DirNode, indent string) {
	for _, name := range dir.SortedNames() {
		switch node := dir.Children[name].(type) {
		case *backup.DirNode:
			fmt.Fprintf(w, "%s%s\n", indent, cyan.Render(name+"/"))
			writeTree(w, node, indent+"  ")
		case *backup.FileNode:
			fmt.Fprintf(w, "%s%s %s\n", indent, name, gray.Render("["+strings.Join(node.Roots, " ")+"]"))
		}
	}
}
