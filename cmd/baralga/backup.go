package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/baralga/internal/backup"
	"github.com/spf13/cobra"
)

var (
	backupForce         bool
	backupRestoreLatest bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backups of the data file",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a backup now",
	Args:  cobra.NoArgs,
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, latest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete backups beyond the retention limit",
	Args:  cobra.NoArgs,
	RunE:  runBackupPrune,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [BACKUP]",
	Short: "Replace the data file with a backup",
	Long: `Replace the data file with a backup. BACKUP is a backup file name or its
timestamp (yyyyMMdd_HHmmss) as shown by "backup list". The current data file is
kept as <data file>.Error.`,
	Example: `  baralga backup restore --latest
  baralga backup restore 20240305_170409`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackupRestore,
}

func init() {
	backupCreateCmd.Flags().BoolVarP(&backupForce, "force", "f", false, "Write a backup even if nothing changed")
	backupRestoreCmd.Flags().BoolVar(&backupRestoreLatest, "latest", false, "Restore the newest backup")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupPruneCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.backups.Create(cmd.Context(), backup.CreateOptions{Force: backupForce, Trigger: "manual"})
	if errors.Is(err, backup.ErrUnchanged) {
		fmt.Println("Nothing changed since the last backup (use --force to write one anyway)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	fmt.Printf("Backup written: %s\n", b.Path)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	backups := a.backups.List()
	if len(backups) == 0 {
		fmt.Println("No backups")
		return nil
	}

	green := color.New(color.FgGreen)
	for i, b := range backups {
		line := fmt.Sprintf("%s  %s", b.Date.Format("2006-01-02 15:04:05"), b.Name())
		if i == 0 {
			_, _ = green.Println(line + "  (latest)")
			continue
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d of %d backups kept in %s\n", len(backups), a.backups.Retention(), filepath.Dir(a.backups.DataFile()))
	return nil
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	deleted, err := a.backups.Cleanup()
	fmt.Printf("Deleted %d old backup(s)\n", deleted)
	if err != nil {
		return fmt.Errorf("some backups could not be deleted: %w", err)
	}
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !backupRestoreLatest {
		return errors.New("name a backup or pass --latest")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store.Path() == "" {
		return fmt.Errorf("restore needs file-backed storage, not %s", a.cfg.Storage.Type)
	}

	var target backup.Backup
	if backupRestoreLatest {
		target, err = a.backups.Latest()
		if err != nil {
			return err
		}
	} else {
		target, err = findBackup(a.backups.List(), args[0])
		if err != nil {
			return err
		}
	}

	// The data file must not be open while it is replaced
	a.closeStore()

	if err := a.backups.Restore(target); err != nil {
		return err
	}

	yellow := color.New(color.FgYellow, color.Bold)
	fmt.Printf("Restored backup from %s\n", target.Date.Format("2006-01-02 15:04:05"))
	_, _ = yellow.Printf("Previous data kept in %s\n", a.backups.ErrorFile())
	return nil
}

func findBackup(backups []backup.Backup, name string) (backup.Backup, error) {
	name = filepath.Base(name)
	for _, b := range backups {
		if b.Name() == name || strings.HasSuffix(b.Name(), "."+name) {
			return b, nil
		}
	}
	return backup.Backup{}, fmt.Errorf("no backup named %s (see: baralga backup list)", name)
}
