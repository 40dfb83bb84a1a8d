package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"ged-go/internal/app"
	"ged-go/internal/config"
	"ged-go/internal/editor"
	"ged-go/internal/encryption"
	"ged-go/internal/textedit"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an EditorApp. The caller must defer
// app.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.EditorApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewEditorApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

// parseLine parses a 1-based line number argument.
func parseLine(arg, name string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid %s line number: %q", name, arg)
	}
	return n, nil
}

// readContentArg returns the positional content argument, reading stdin
// when it is "-".
func readContentArg(arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func printEditResult(res *editor.EditResult) {
	fmt.Printf("Applied: %s\n", res.OperationLabel)
	fmt.Printf("File:    %s\n", res.FilePath)
	fmt.Printf("Lines:   %d\n", res.LinesAffected)
	fmt.Printf("Token:   %s\n", res.NewVersionToken)
	fmt.Printf("Change:  %s\n", res.ChangeID)
	if res.BackupID != "" {
		fmt.Printf("Backup:  %s\n", res.BackupID)
	}
}

func printPendingEdit(edit *editor.PendingEdit) {
	fmt.Printf("Staged: %s\n", edit.OperationLabel)
	fmt.Printf("File:   %s\n", edit.FilePath)
	fmt.Printf("Lines:  %d\n", edit.LinesAffected)
	fmt.Printf("Expires: %s\n", edit.ExpiresAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("\nPreview:\n%s\n", textedit.RenderPreview(edit.PreviewContent))
	fmt.Printf("To apply: ged approve %s --confirm %s\n", edit.ApprovalToken, editor.Confirmation)
}

var rootCmd = &cobra.Command{
	Use:   "ged",
	Short: "Guarded file editor with staged approvals and undo history",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Backup.Encrypted = encrypt

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		if encrypt {
			enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
			if err != nil {
				return fmt.Errorf("creating encryptor: %w", err)
			}
			pass, err := readPassphrase("Passphrase for backup key: ")
			if err != nil {
				return err
			}
			if err := enc.Setup(pass); err != nil {
				return fmt.Errorf("generating backup keys: %w", err)
			}
			fmt.Printf("Backup key pair written under %s\n", cfg.Encryption.PublicKeyPath)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Ledger:     %s (%s)\n", cfg.Ledger.Type, cfg.Ledger.DataDir)
		fmt.Printf("Backups:    %s (encrypted: %v)\n", cfg.Backup.Dir, cfg.Backup.Encrypted)
		fmt.Printf("Edit TTL:   %d minute(s)\n", cfg.Pending.TTLMinutes)
		if len(cfg.Filesystem.Protected) > 0 {
			fmt.Printf("Protected:  %s\n", strings.Join(cfg.Filesystem.Protected, ", "))
		}
		return nil
	},
}

// token command
var tokenCmd = &cobra.Command{
	Use:   "token FILE",
	Short: "Print a file's version token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("token")
		if err != nil {
			return err
		}
		defer a.Close()

		token, err := a.ComputeToken(args[0])
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

// find command
var findCmd = &cobra.Command{
	Use:   "find FILE PATTERN",
	Short: "Find lines matching a pattern",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		useRegex, _ := cmd.Flags().GetBool("regex")
		ignoreCase, _ := cmd.Flags().GetBool("ignore-case")

		a, err := newApp("find")
		if err != nil {
			return err
		}
		defer a.Close()

		lines, err := a.FindMatches(args[0], args[1], useRegex, !ignoreCase)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, n := range lines {
			fmt.Println(n)
		}
		return nil
	},
}

// stage command and its operation subcommands
var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Stage an edit for approval",
}

var stageReplaceCmd = &cobra.Command{
	Use:   "replace FILE START END TEXT",
	Short: "Stage a line-range replacement",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := replaceOp(args)
		if err != nil {
			return err
		}
		return runStage(cmd, args[0], op)
	},
}

var stageInsertCmd = &cobra.Command{
	Use:   "insert FILE LINE TEXT",
	Short: "Stage an insertion after a line (0 for top of file)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := insertOp(cmd, args)
		if err != nil {
			return err
		}
		return runStage(cmd, args[0], op)
	},
}

var stageDeleteCmd = &cobra.Command{
	Use:   "delete FILE START END",
	Short: "Stage a line-range deletion",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := deleteOp(args)
		if err != nil {
			return err
		}
		return runStage(cmd, args[0], op)
	},
}

var stageSubCmd = &cobra.Command{
	Use:   "sub FILE PATTERN REPLACEMENT",
	Short: "Stage a pattern substitution",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, args[0], subOp(cmd, args))
	},
}

// apply command mirrors stage but writes in one step.
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply an edit immediately, without staging",
}

var applyReplaceCmd = &cobra.Command{
	Use:   "replace FILE START END TEXT",
	Short: "Replace a line range",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := replaceOp(args)
		if err != nil {
			return err
		}
		return runApply(cmd, args[0], op)
	},
}

var applyInsertCmd = &cobra.Command{
	Use:   "insert FILE LINE TEXT",
	Short: "Insert after a line (0 for top of file)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := insertOp(cmd, args)
		if err != nil {
			return err
		}
		return runApply(cmd, args[0], op)
	},
}

var applyDeleteCmd = &cobra.Command{
	Use:   "delete FILE START END",
	Short: "Delete a line range",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := deleteOp(args)
		if err != nil {
			return err
		}
		return runApply(cmd, args[0], op)
	},
}

var applySubCmd = &cobra.Command{
	Use:   "sub FILE PATTERN REPLACEMENT",
	Short: "Substitute a pattern",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApply(cmd, args[0], subOp(cmd, args))
	},
}

func replaceOp(args []string) (textedit.Operation, error) {
	start, err := parseLine(args[1], "start")
	if err != nil {
		return nil, err
	}
	end, err := parseLine(args[2], "end")
	if err != nil {
		return nil, err
	}
	text, err := readContentArg(args[3])
	if err != nil {
		return nil, err
	}
	return textedit.ReplaceLines{Start: start, End: end, Text: text}, nil
}

func insertOp(cmd *cobra.Command, args []string) (textedit.Operation, error) {
	line, err := parseLine(args[1], "insert")
	if err != nil {
		return nil, err
	}
	text, err := readContentArg(args[2])
	if err != nil {
		return nil, err
	}
	indent, _ := cmd.Flags().GetBool("indent")
	return textedit.InsertAfterLine{Line: line, Text: text, MaintainIndentation: indent}, nil
}

func deleteOp(args []string) (textedit.Operation, error) {
	start, err := parseLine(args[1], "start")
	if err != nil {
		return nil, err
	}
	end, err := parseLine(args[2], "end")
	if err != nil {
		return nil, err
	}
	return textedit.DeleteLines{Start: start, End: end}, nil
}

func subOp(cmd *cobra.Command, args []string) textedit.Operation {
	useRegex, _ := cmd.Flags().GetBool("regex")
	ignoreCase, _ := cmd.Flags().GetBool("ignore-case")
	return textedit.PatternReplace{
		Pattern:       args[1],
		Replacement:   args[2],
		UseRegex:      useRegex,
		CaseSensitive: !ignoreCase,
	}
}

func runStage(cmd *cobra.Command, rawPath string, op textedit.Operation) error {
	token, _ := cmd.Flags().GetString("token")
	withBackup, _ := cmd.Flags().GetBool("backup")

	a, err := newApp("stage")
	if err != nil {
		return err
	}
	defer a.Close()

	edit, err := a.StageEdit(rawPath, op, token, withBackup)
	if err != nil {
		return err
	}
	printPendingEdit(edit)
	return nil
}

func runApply(cmd *cobra.Command, rawPath string, op textedit.Operation) error {
	token, _ := cmd.Flags().GetString("token")
	withBackup, _ := cmd.Flags().GetBool("backup")

	a, err := newApp("apply")
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.ApplyEdit(rawPath, op, token, withBackup)
	if err != nil {
		return err
	}
	printEditResult(res)
	return nil
}

// approve command
var approveCmd = &cobra.Command{
	Use:   "approve TOKEN",
	Short: "Apply a staged edit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetString("confirm")

		a, err := newApp("approve")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.ApproveEdit(args[0], confirm)
		if err != nil {
			return err
		}
		printEditResult(res)
		return nil
	},
}

// cancel command
var cancelCmd = &cobra.Command{
	Use:   "cancel TOKEN",
	Short: "Discard a staged edit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("cancel")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.CancelEdit(args[0]) {
			return fmt.Errorf("no pending edit with token %s", args[0])
		}
		fmt.Println("Cancelled.")
		return nil
	},
}

// pending command
var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List staged edits awaiting approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("pending")
		if err != nil {
			return err
		}
		defer a.Close()

		edits := a.ListPending()
		if len(edits) == 0 {
			fmt.Println("No pending edits.")
			return nil
		}
		for _, e := range edits {
			fmt.Printf("%s  %-30s  %s  expires %s\n",
				e.ApprovalToken,
				e.OperationLabel,
				e.FilePath,
				e.ExpiresAt.Format("15:04:05"),
			)
		}
		return nil
	},
}

// write command
var writeCmd = &cobra.Command{
	Use:   "write FILE CONTENT",
	Short: "Create or overwrite a file (CONTENT may be - for stdin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		withBackup, _ := cmd.Flags().GetBool("backup")

		content, err := readContentArg(args[1])
		if err != nil {
			return err
		}

		a, err := newApp("write")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.WriteFile(args[0], content, token, withBackup)
		if err != nil {
			return err
		}
		printEditResult(res)
		return nil
	},
}

// append command
var appendCmd = &cobra.Command{
	Use:   "append FILE TEXT",
	Short: "Append text to a file (TEXT may be - for stdin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		withBackup, _ := cmd.Flags().GetBool("backup")

		text, err := readContentArg(args[1])
		if err != nil {
			return err
		}

		a, err := newApp("append")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.AppendToFile(args[0], text, withBackup)
		if err != nil {
			return err
		}
		printEditResult(res)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history [FILE]",
	Short: "View change history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		undoable, _ := cmd.Flags().GetBool("undoable")
		redoable, _ := cmd.Flags().GetBool("redoable")

		a, err := newApp("history")
		if err != nil {
			return err
		}
		defer a.Close()

		var recs []*editor.ChangeRecord
		switch {
		case undoable:
			recs, err = a.ListUndoable(limit)
		case redoable:
			recs, err = a.ListRedoable(limit)
		default:
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			recs, err = a.History(path, limit)
		}
		if err != nil {
			return err
		}

		if len(recs) == 0 {
			fmt.Println("No changes recorded.")
			return nil
		}
		for _, r := range recs {
			state := ""
			if r.Undone {
				state = "  [undone]"
			}
			fmt.Printf("%s  %-6s  %s  %-30s  %s%s\n",
				r.ID,
				r.Kind,
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.OperationLabel,
				r.FilePath,
				state,
			)
		}
		return nil
	},
}

// undo command
var undoCmd = &cobra.Command{
	Use:   "undo CHANGE_ID",
	Short: "Revert a recorded change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("undo")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Undo(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Undone. File: %s\n", res.FilePath)
		fmt.Printf("Token: %s\n", res.NewVersionToken)
		fmt.Printf("\nRestored content:\n%s", res.RestoredPreview)
		return nil
	},
}

// redo command
var redoCmd = &cobra.Command{
	Use:   "redo CHANGE_ID",
	Short: "Reapply an undone change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("redo")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Redo(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Redone. File: %s\n", res.FilePath)
		fmt.Printf("Token: %s\n", res.NewVersionToken)
		fmt.Printf("\nRestored content:\n%s", res.RestoredPreview)
		return nil
	},
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune history and backups",
}

var cleanupHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Truncate the change ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")

		a, err := newApp("cleanup-history")
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.CleanupHistory(keep)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d change record(s), kept the %d most recent.\n", deleted, keep)
		return nil
	},
}

var cleanupBackupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Delete old backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		pattern, _ := cmd.Flags().GetString("pattern")

		a, err := newApp("cleanup-backups")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.CleanupBackups(dir, olderThan, pattern)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d backup(s), %d byte(s) reclaimed.\n", stats.DeletedCount, stats.TotalBytes)
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backups",
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore BACKUP_ID",
	Short: "Print the content of a stored backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("backup-restore")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if strings.HasSuffix(args[0], ".age") {
			passphrase, err = readPassphrase("Passphrase for backup key: ")
			if err != nil {
				return err
			}
		}

		content, err := a.RestoreBackup(args[0], passphrase)
		if err != nil {
			return err
		}

		if output == "" {
			os.Stdout.Write(content)
			return nil
		}
		res, err := a.WriteFile(output, string(content), "", false)
		if err != nil {
			return err
		}
		printEditResult(res)
		return nil
	},
}

func addEditFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.Flags().String("token", "", "Version token from 'ged token'")
		c.Flags().BoolP("backup", "b", false, "Back up the file before writing")
	}
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().Bool("encrypt", false, "Generate keys and encrypt backups")

	// find flags
	findCmd.Flags().BoolP("regex", "r", false, "Treat PATTERN as a regular expression")
	findCmd.Flags().BoolP("ignore-case", "i", false, "Case-insensitive matching")

	// stage subcommands
	stageCmd.AddCommand(stageReplaceCmd)
	stageCmd.AddCommand(stageInsertCmd)
	stageCmd.AddCommand(stageDeleteCmd)
	stageCmd.AddCommand(stageSubCmd)
	addEditFlags(stageReplaceCmd, stageInsertCmd, stageDeleteCmd, stageSubCmd)
	stageInsertCmd.Flags().Bool("indent", false, "Inherit indentation from the anchor line")
	stageSubCmd.Flags().BoolP("regex", "r", false, "Treat PATTERN as a regular expression")
	stageSubCmd.Flags().BoolP("ignore-case", "i", false, "Case-insensitive matching")

	// apply subcommands
	applyCmd.AddCommand(applyReplaceCmd)
	applyCmd.AddCommand(applyInsertCmd)
	applyCmd.AddCommand(applyDeleteCmd)
	applyCmd.AddCommand(applySubCmd)
	addEditFlags(applyReplaceCmd, applyInsertCmd, applyDeleteCmd, applySubCmd)
	applyInsertCmd.Flags().Bool("indent", false, "Inherit indentation from the anchor line")
	applySubCmd.Flags().BoolP("regex", "r", false, "Treat PATTERN as a regular expression")
	applySubCmd.Flags().BoolP("ignore-case", "i", false, "Case-insensitive matching")

	// approve flags
	approveCmd.Flags().String("confirm", "", "Confirmation literal (must be "+editor.Confirmation+")")

	// write and append flags
	writeCmd.Flags().String("token", "", "Version token (required when overwriting)")
	writeCmd.Flags().BoolP("backup", "b", false, "Back up the file before writing")
	appendCmd.Flags().BoolP("backup", "b", false, "Back up the file before writing")

	// history flags
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of changes to show")
	historyCmd.Flags().Bool("undoable", false, "Show only changes eligible for undo")
	historyCmd.Flags().Bool("redoable", false, "Show only changes eligible for redo")

	// cleanup subcommands
	cleanupCmd.AddCommand(cleanupHistoryCmd)
	cleanupCmd.AddCommand(cleanupBackupsCmd)
	cleanupHistoryCmd.Flags().IntP("keep", "k", 100, "Number of records to keep")
	cleanupBackupsCmd.Flags().String("dir", "", "Backup directory (default: configured dir)")
	cleanupBackupsCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete backups older than this")
	cleanupBackupsCmd.Flags().String("pattern", "*", "Glob pattern for backup names")

	// backup subcommands
	backupCmd.AddCommand(backupRestoreCmd)
	backupRestoreCmd.Flags().StringP("output", "o", "", "Write restored content to FILE instead of stdout")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(appendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(redoCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(backupCmd)
}
