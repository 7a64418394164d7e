package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"knot-go/internal/app"
	"knot-go/internal/knot"

	"github.com/spf13/cobra"
)

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a snapshot to the vault",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd, "backup create")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		snap, err := a.Backup(boolPair(cmd, "encrypt"))
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		writeSnapshots(cmd.OutOrStdout(), []knot.Snapshot{*snap})
		return nil
	},
}

var backupLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List snapshots in the vault",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newAppWithOptions(cmd, "backup ls", app.Options{SkipVaultCheck: true})
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		snaps, err := a.Service().ListBackups()
		if err != nil {
			return err
		}
		writeSnapshots(cmd.OutOrStdout(), snaps)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [SNAPSHOT]",
	Short: "Download a snapshot",
	Long: `Download a snapshot (default: the newest) next to the database. The
current database is left in place; replace it with the restored file to
finish the restore.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newAppWithOptions(cmd, "backup restore", app.Options{SkipVaultCheck: true})
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		var name string
		if len(args) > 0 {
			name = args[0]
		} else {
			snaps, err := a.Service().ListBackups()
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				return errors.New("vault has no snapshots")
			}
			name = snaps[0].Name
		}

		dest, _ := cmd.Flags().GetString("to")
		if dest == "" {
			dest = defaultRestorePath(a, name)
		}

		var passphrase string
		if (knot.Snapshot{Name: name}).Encrypted() {
			passphrase, err = readPassphrase(cmd, "Passphrase: ", false)
			if err != nil {
				return err
			}
		}

		if err := a.Service().RestoreBackup(name, passphrase, dest); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s to %s\n", name, dest)
		return nil
	},
}

// defaultRestorePath places the restored file beside the live database.
func defaultRestorePath(a *app.KnotApp, snapshot string) string {
	dir := a.Config().Database.DataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "restored-"+strings.TrimSuffix(snapshot, knot.EncryptedSuffix))
}

var backupKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Create the backup encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		show, _ := cmd.Flags().GetBool("show")

		a, err := newApp(cmd, "backup keys")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if !show {
			if a.KeysConfigured() {
				return errors.New("backup keys already exist")
			}
			passphrase, err := readPassphrase(cmd, "New passphrase: ", true)
			if err != nil {
				return err
			}
			if err := a.SetupKeys(passphrase); err != nil {
				return err
			}
		}

		key, err := a.PublicKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Public key: %s\n", key)
		return nil
	},
}

var backupCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newAppWithOptions(cmd, "backup check", app.Options{SkipVaultCheck: true})
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.ValidateVault(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Vault OK")
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded operations",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "history")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		ops, err := a.Service().GetHistory(limit)
		if err != nil {
			return err
		}
		writeHistory(cmd.OutOrStdout(), ops)
		return nil
	},
}

func init() {
	addBoolPair(backupCreateCmd, "encrypt", "Encrypt the snapshot")
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupLsCmd)
	backupRestoreCmd.Flags().String("to", "", "Destination file")
	backupCmd.AddCommand(backupRestoreCmd)
	backupKeysCmd.Flags().Bool("show", false, "Print the existing public key")
	backupCmd.AddCommand(backupKeysCmd)
	backupCmd.AddCommand(backupCheckCmd)
	rootCmd.AddCommand(backupCmd)

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(historyCmd)
}
