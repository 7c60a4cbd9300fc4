package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library-desk/api"
	"library-desk/config"
	"library-desk/library"
	"library-desk/logger"
)

const shutdownTimeout = 10 * time.Second

// app bundles what every command needs.
type app struct {
	cfg *config.Config
	log *zap.Logger
	lm  *library.LibraryManager
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	lm, err := library.NewLibraryManager(ctx, store, library.Options{
		Logger:           log.Named("library"),
		FeedLimit:        cfg.NotificationLimit,
		LoanDurationDays: cfg.LoanDurationDays,
		JournalKeyword:   cfg.JournalKeyword,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, lm: lm}, nil
}

func (a *app) Close() {
	if err := a.lm.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// withApp opens the application around fn.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, args)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library-desk",
		Short:         "Library circulation desk: catalog, accounts, loans and backups",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          withApp(runShell),
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Interactive desk shell (default)",
			Args:  cobra.NoArgs,
			RunE:  withApp(runShell),
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API and run the background scheduler",
			Args:  cobra.NoArgs,
			RunE:  withApp(runServe),
		},
		&cobra.Command{
			Use:   "backup [file]",
			Short: "Write a backup of every collection",
			Args:  cobra.MaximumNArgs(1),
			RunE:  withApp(runBackup),
		},
		&cobra.Command{
			Use:   "restore <file>",
			Short: "Restore the collections present in a backup file",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runRestore),
		},
		newImportCmd(),
	)
	return root
}

func newImportCmd() *cobra.Command {
	imp := &cobra.Command{
		Use:   "import",
		Short: "Bulk import from an .xlsx spreadsheet",
	}
	imp.AddCommand(
		&cobra.Command{
			Use:   "books <file.xlsx>",
			Short: "Add every book listed in the first sheet",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, args []string) error {
				n, err := importBooks(ctx, a.lm, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d book(s) from %s\n", n, args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "users <file.xlsx>",
			Short: "Add every user listed in the first sheet",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, a *app, args []string) error {
				n, err := importUsers(ctx, a.lm, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d user(s) from %s\n", n, args[0])
				return nil
			}),
		},
	)
	return imp
}

func runServe(ctx context.Context, a *app, _ []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewHandler(a.lm, a.log.Named("api")), a.log.Named("http"))
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched := library.NewScheduler(a.lm, a.cfg.WorkerInterval, a.cfg.BackupDir)
	go sched.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runBackup(ctx context.Context, a *app, args []string) error {
	path := filepath.Join(a.cfg.BackupDir, library.BackupFileName(time.Now()))
	if len(args) == 1 {
		path = args[0]
	}
	b, err := writeBackupFile(ctx, a.lm, path)
	if err != nil {
		return err
	}
	fmt.Printf("Backup written to %s (%d books, %d users, %d loans)\n", path, len(b.Books), len(b.Users), len(b.Loans))
	return nil
}

func runRestore(ctx context.Context, a *app, args []string) error {
	if err := restoreFile(ctx, a.lm, args[0]); err != nil {
		return err
	}
	fmt.Printf("Restored from %s\n", args[0])
	return nil
}

// writeBackupFile writes the export to path, creating parent directories.
func writeBackupFile(ctx context.Context, lm *library.LibraryManager, path string) (library.Backup, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return library.Backup{}, fmt.Errorf("create backup dir: %w", err)
		}
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return library.Backup{}, err
	}
	b, err := lm.WriteBackup(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
	}
	return b, err
}

func restoreFile(ctx context.Context, lm *library.LibraryManager, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()
	return lm.Restore(ctx, f)
}

func importBooks(ctx context.Context, lm *library.LibraryManager, path string) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	books, err := library.ParseBooksSheet(f)
	if err != nil {
		return 0, err
	}
	return len(books), lm.AddBooks(ctx, books)
}

func importUsers(ctx context.Context, lm *library.LibraryManager, path string) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	users, err := library.ParseUsersSheet(f)
	if err != nil {
		return 0, err
	}
	return len(users), lm.AddUsers(ctx, users)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
