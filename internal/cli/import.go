package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/domain"
	pgsource "trivia-quiz-service/internal/infra/postgres"
	"trivia-quiz-service/internal/logger"
)

// NewImportCmd copies questions from the Open Trivia DB into the Postgres question bank.
func NewImportCmd(configPath *string) *cobra.Command {
	var (
		category   int
		difficulty string
		amount     int
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import Open Trivia DB questions into the Postgres question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := domain.Difficulty(difficulty)
			if !d.Valid() {
				return fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, difficulty)
			}
			inserted, err := runImport(cmd.Context(), *configPath, category, d, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions\n", inserted)
			return nil
		},
	}
	cmd.Flags().IntVar(&category, "category", 9, "Open Trivia DB category id")
	cmd.Flags().StringVar(&difficulty, "difficulty", string(domain.DifficultyMedium), "easy, medium or hard")
	cmd.Flags().IntVar(&amount, "amount", 50, "number of questions to request (max 50)")
	return cmd
}

func runImport(ctx context.Context, configPath string, category int, difficulty domain.Difficulty, amount int) (int, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return 0, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return 0, err
	}
	defer log.Sync()

	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return 0, err
	}
	db, err := openBunDB(cfg)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	rt := &runtime{cfg: cfg, log: log}
	questions, err := rt.openTDB().FetchQuestions(ctx, category, difficulty, amount)
	if err != nil {
		return 0, err
	}

	inserted, err := pgsource.NewImporter(db).Import(ctx, category, difficulty, questions)
	if err != nil {
		return 0, err
	}
	log.Info("question bank import finished",
		zap.Int("category", category),
		zap.String("difficulty", string(difficulty)),
		zap.Int("fetched", len(questions)),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}
