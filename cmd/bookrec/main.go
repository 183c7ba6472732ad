package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/bookrec/internal/config"
	"github.com/kailas-cloud/bookrec/internal/version"
)

func main() {
	var env string

	rootCmd := &cobra.Command{
		Use:           "bookrec",
		Short:         "Semantic book recommendations with tone re-ranking",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "Config environment (config/<env>.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), env)
		},
	}

	var rebuild bool
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Populate the vector index from tagged descriptions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), env, rebuild)
		},
	}
	indexCmd.Flags().BoolVar(&rebuild, "rebuild", false, "Drop the index and rebuild it from scratch")

	var csvPath, sqlitePath string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Copy the catalog CSV into a SQLite database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd.Context(), env, csvPath, sqlitePath)
		},
	}
	importCmd.Flags().StringVar(&csvPath, "csv", "", "Path to books_with_emotions.csv (default: catalog.csv_path)")
	importCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Target SQLite database (default: catalog.sqlite_path)")

	var opts recommendOptions
	recommendCmd := &cobra.Command{
		Use:   "recommend <query>",
		Short: "Print recommendations for a query as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.query = args[0]
			return runRecommend(cmd.Context(), env, opts, cmd.OutOrStdout())
		},
	}
	recommendCmd.Flags().StringVar(&opts.category, "category", "All", "Category filter")
	recommendCmd.Flags().StringVar(&opts.tone, "tone", "All", "Tone to re-rank by")
	recommendCmd.Flags().IntVar(&opts.initialTopK, "initial-top-k", 0, "Candidates fetched from the index (default 50)")
	recommendCmd.Flags().IntVar(&opts.finalTopK, "final-top-k", 0, "Recommendations returned (default 16)")

	rootCmd.AddCommand(serveCmd, indexCmd, importCmd, recommendCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
