// Package questions implements the commands for curating the question catalog.
package questions

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/myrjola/guesswho/internal/ai"
	"github.com/myrjola/guesswho/internal/catalog"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/logging"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/repositories"
	"github.com/myrjola/guesswho/internal/sqlite"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "catalog",
	Title: "Question catalog",
}

var Command = &cobra.Command{
	Use:     "catalog",
	Short:   "Import, list and draft the questions players can ask",
	GroupID: Group.ID,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a YAML catalog and upsert its categories and questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "read catalog file", slog.String("file", args[0]))
		}
		categories, err := catalog.Parse(data)
		if err != nil {
			return errors.Wrap(err, "parse catalog", slog.String("file", args[0]))
		}
		return withQuestions(cmd, func(ctx context.Context, repo *repositories.QuestionRepository) error {
			n, importErr := catalog.Import(ctx, repo, categories)
			if importErr != nil {
				return importErr
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions in %d categories\n", n, len(categories))
			return errors.Wrap(err, "print result")
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the stored catalog as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withQuestions(cmd, func(ctx context.Context, repo *repositories.QuestionRepository) error {
			categories, err := repo.ListCatalog(ctx)
			if err != nil {
				return errors.Wrap(err, "list catalog")
			}
			return printYAML(cmd, categories)
		})
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <category>",
	Short: "Draft new questions for a category with a language model and print them as YAML for review",
	Long: `Draft new questions for a category with an OpenAI compatible API configured with OPENAI_API_KEY,
OPENAI_BASE_URL and OPENAI_MODEL. Review the output and add it to a catalog file before importing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := cmd.Flags().GetInt("count")
		if err != nil {
			return errors.Wrap(err, "count flag")
		}
		return withQuestions(cmd, func(ctx context.Context, repo *repositories.QuestionRepository) error {
			categories, listErr := repo.ListCatalog(ctx)
			if listErr != nil {
				return errors.Wrap(listErr, "list catalog")
			}
			i := slices.IndexFunc(categories, func(c models.QuestionCategory) bool { return c.ID == args[0] })
			if i < 0 {
				return errors.Wrap(errors.ErrNotFound, "unknown category", slog.String("category_id", args[0]))
			}

			client := ai.NewClient(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL"),
				os.Getenv("OPENAI_MODEL"), logger(cmd))
			drafted, suggestErr := client.SuggestQuestions(ctx, categories[i], count)
			if suggestErr != nil {
				return errors.Wrap(suggestErr, "suggest questions")
			}
			draft := categories[i]
			draft.Questions = drafted
			return printYAML(cmd, []models.QuestionCategory{draft})
		})
	},
}

func init() {
	suggestCmd.Flags().Int("count", 5, "number of questions to draft") //nolint:mnd // a handful to review
	Command.AddCommand(importCmd, listCmd, suggestCmd)
}

// logger writes to stderr so that stdout stays valid YAML.
func logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewLogger(cmd.ErrOrStderr(), slog.LevelWarn, nil)
}

func withQuestions(
	cmd *cobra.Command,
	fn func(ctx context.Context, repo *repositories.QuestionRepository) error,
) error {
	url, err := cmd.Flags().GetString("sqlite-url")
	if err != nil {
		return errors.Wrap(err, "sqlite-url flag")
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	l := logger(cmd)
	db, err := sqlite.NewDatabase(ctx, url, l)
	if err != nil {
		return errors.Wrap(err, "open database", slog.String("url", url))
	}
	defer func() {
		_ = db.Close()
	}()
	return fn(ctx, repositories.NewQuestionRepository(db, l))
}

func printYAML(cmd *cobra.Command, categories []models.QuestionCategory) error {
	out, err := catalog.Marshal(categories)
	if err != nil {
		return errors.Wrap(err, "marshal catalog")
	}
	_, err = cmd.OutOrStdout().Write(out)
	return errors.Wrap(err, "print catalog")
}
