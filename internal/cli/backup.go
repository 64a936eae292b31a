package cli

import (
	"fmt"
	"fyrewiki/internal/backup"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func init() {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the database into the backup directory",
		Run:   runBackup,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, oldest first",
		Run:   runBackupList,
	}
	backupCmd.AddCommand(listCmd)

	rollbackCmd := &cobra.Command{
		Use:   "rollback [snapshot-id]",
		Short: "Replace the database with a snapshot (latest by default). Stop the server first.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runRollback,
	}

	RootCmd.AddCommand(backupCmd, rollbackCmd)
}

func openBackups() (*backup.Manager, *sqlx.DB) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		exitErr("open database", err)
	}
	return backup.NewManager(db, cfg.DB.DSN, cfg.Backup, newLogger(cfg)), db
}

func runBackup(cmd *cobra.Command, args []string) {
	m, db := openBackups()
	defer db.Close()

	snap, err := m.Backup(cmd.Context())
	if err != nil {
		exitErr("backup", err)
	}
	fmt.Println(snap.Path)
}

func runBackupList(cmd *cobra.Command, args []string) {
	m, db := openBackups()
	defer db.Close()

	snaps, err := m.List()
	if err != nil {
		exitErr("list backups", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tPATH")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.CreatedAt.Format(time.RFC3339), s.Path)
	}
	tw.Flush()
}

func runRollback(cmd *cobra.Command, args []string) {
	m, db := openBackups()
	// Close before the file is replaced.
	db.Close()

	var (
		snap backup.Snapshot
		err  error
	)
	if len(args) == 0 {
		snap, err = m.Latest()
	} else {
		snap, err = findSnapshot(m, args[0])
	}
	if err != nil {
		exitErr("rollback", err)
	}
	if err := m.Rollback(snap); err != nil {
		exitErr("rollback", err)
	}
	fmt.Printf("restored %s\n", snap.Path)
}

func findSnapshot(m *backup.Manager, id string) (backup.Snapshot, error) {
	snaps, err := m.List()
	if err != nil {
		return backup.Snapshot{}, err
	}
	for _, s := range snaps {
		if s.ID.String() == id {
			return s, nil
		}
	}
	return backup.Snapshot{}, fmt.Errorf("no snapshot with id %s", id)
}
