package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abamen95/CRUD-COPASI/internal/config"
	"github.com/abamen95/CRUD-COPASI/internal/database"
	"github.com/abamen95/CRUD-COPASI/internal/handler"
	"github.com/abamen95/CRUD-COPASI/internal/service"
	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	EnvFile string
	DBPath  string
	Addr    string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "crud-copasi",
		Short:        "Student records desk",
		Long:         "Serves the student records window: a grid of students with add, delete, update, search and show-all actions.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional file of KEY=value settings")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", config.DefaultDBPath, "sqlite database file")
	cmd.Flags().StringVar(&opts.Addr, "addr", config.DefaultAddr, "address to serve the window on")

	cmd.AddCommand(newImportCommand(opts))

	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import students from a name,surname,document,grade CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			store, err := database.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			report, err := service.NewImportService(store).ImportCSV(file.Name(), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d imported, %d skipped\n", report.Imported, report.Skipped)
			return nil
		},
	}
}

// loadConfig reads the environment, then lets explicitly set flags win.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = opts.DBPath
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.HTTPAddr = opts.Addr
	}
	return cfg, nil
}

func serve(cfg config.Config) error {
	store, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	notices := handler.NewWebNotifier()
	form := service.NewFormController(store, notices)
	if err := form.Reload(); err != nil {
		log.Println("Initial load failed:", err)
	}

	r := handler.NewRouter(form, service.NewImportService(store), notices)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stdout, r)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Student records window on http://%s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
