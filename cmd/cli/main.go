package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/guesswho/cmd/cli/questions"
	"github.com/myrjola/guesswho/cmd/cli/sweep"
	"github.com/spf13/cobra"
)

func init() {
	// The .env file is optional.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defaultURL, ok := os.LookupEnv("GUESSWHO_SQLITE_URL")
	if !ok {
		defaultURL = "./guesswho.sqlite3"
	}
	rootCmd.PersistentFlags().String("sqlite-url", defaultURL, "SQLite database URL")

	rootCmd.AddGroup(questions.Group)
	rootCmd.AddCommand(questions.Command)
	rootCmd.AddGroup(sweep.Group)
	rootCmd.AddCommand(sweep.Command)
}

var rootCmd = &cobra.Command{
	Use:          "guesswho-cli",
	Long:         `Command line utilities for operating Guess Who https://github.com/myrjola/guesswho`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
