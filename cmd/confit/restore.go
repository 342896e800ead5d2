package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/confit/pkg/backup"
	"github.com/arthur-debert/confit/pkg/errors"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List snapshots taken before destructive operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := newRunContext(nil)
		if err != nil {
			return err
		}

		manifests, err := backup.New(rc.fs, rc.paths).List()
		if err != nil {
			return err
		}
		if len(manifests) == 0 {
			fmt.Println("no snapshots")
			return nil
		}
		for _, m := range manifests {
			fmt.Printf("  %s  %s  %d target(s)\n",
				m.ID, m.CreatedAt.Format("2006-01-02 15:04:05"), len(m.Entries))
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [snapshot-id]",
	Short: "Restore a snapshot (the latest when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := newRunContext(nil)
		if err != nil {
			return err
		}
		manager := backup.New(rc.fs, rc.paths)

		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			latest, err := manager.Latest()
			if err != nil {
				return err
			}
			if latest == nil {
				return errors.New(errors.ErrInvalidInput, "no snapshots to restore")
			}
			id = latest.ID
		}

		if err := manager.Restore(id); err != nil {
			return err
		}
		fmt.Printf("restored snapshot %s\n", id)
		return nil
	},
}
