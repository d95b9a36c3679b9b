package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/facegate/internal/log"
	"github.com/andresmejia3/facegate/internal/store"
	"github.com/spf13/cobra"
)

// Options holds shared configuration for the login and snapshot commands
type Options struct {
	Server         string
	Endpoint       string
	Redirect       string
	Username       string
	Device         string
	Backend        string
	Width          int
	Height         int
	Framerate      int
	CameraTimeout  string
	RequestTimeout string
	OpenBrowser    bool
}

var (
	// DB is the attempt history shared by subcommands; nil when history is off
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// logLevel controls diagnostic output
	logLevel string
)

// Version is the application version.
const Version = "0.1.0"

const defaultDBURL = "postgres://localhost:5432/facegate"

var rootCmd = &cobra.Command{
	Use:     "facegate",
	Short:   "Webcam face login client",
	Version: Version, // This enables the --version flag
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Init(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeStore()
	},
}

// closeStore is safe to call twice; cobra skips PersistentPostRun when RunE fails.
func closeStore() {
	if DB != nil {
		// Use Background here because the main context might be cancelled already (due to Ctrl+C)
		// and we still need to send the "Close" command to the DB.
		DB.Close(context.Background())
		DB = nil
	}
}

// resolveDBURL returns the connection string from the flag or the POSTGRES_* environment.
// It returns "" when neither is set.
func resolveDBURL() string {
	if dbURL != "" {
		return dbURL
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	name := os.Getenv("POSTGRES_DB")
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}

// openStore connects the attempt history. When required is false and nothing is
// configured, history stays off and DB remains nil.
func openStore(ctx context.Context, required bool) error {
	url := resolveDBURL()
	if url == "" {
		if !required {
			return nil
		}
		// Fallback to local default if no env vars are present
		url = defaultDBURL
	}

	var err error
	DB, err = store.New(ctx, url)
	if err != nil {
		DB = nil
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	err := rootCmd.ExecuteContext(ctx)
	closeStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string for the attempt history (default: POSTGRES_* env, history off for login)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Diagnostic log level: debug, info, warn, error")
}
