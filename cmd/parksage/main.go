package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parksage/parksage/internal/profile"
	"github.com/parksage/parksage/internal/version"
	"github.com/parksage/parksage/server"
	"github.com/parksage/parksage/store"
	"github.com/parksage/parksage/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "parksage",
	Short: `A RAG-powered question-answering service for U.S. National Parks.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env from the current directory (ignore error if
		// the file doesn't exist).
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			cancel()
			slog.Error("failed to create db driver", "error", err)
			return
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			cancel()
			slog.Error("failed to migrate", "error", err)
			return
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			cancel()
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM. SIGTERM is what
		// most process managers (systemd, Kubernetes) send first.
		signal.Notify(c, terminationSignals...)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)

		if err := s.Start(ctx); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("failed to start server", "error", err)
			}
			cancel()
		}

		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "postgres")
	viper.SetDefault("port", 8000)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8000, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "postgres", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("parksage")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("ParkSage %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)

	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
		fmt.Printf("Access ParkSage at: http://localhost:%d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
