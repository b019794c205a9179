package main

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/database"
	"github.com/stemsi/exstem-practice/internal/logger"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/repository"
)

const examSlug = "a-level-math"

type seedQuestion struct {
	stem       string
	choices    [4]string
	correct    int
	difficulty model.Difficulty
	subject    string
}

var questions = []seedQuestion{
	{"What is the derivative of x^2 + 3x at x = 2?", [4]string{"7", "10", "4", "5"}, 0, model.DifficultyEasy, "calculus"},
	{"Solve 2x + 5 = 17.", [4]string{"5", "6", "7", "11"}, 1, model.DifficultyEasy, "algebra"},
	{"What is the integral of 2x dx from 0 to 3?", [4]string{"6", "3", "9", "12"}, 2, model.DifficultyMedium, "calculus"},
	{"What is the sum of the first 10 positive integers?", [4]string{"45", "50", "55", "100"}, 2, model.DifficultyEasy, "sequences"},
	{"What is the value of log2(64)?", [4]string{"5", "6", "8", "32"}, 1, model.DifficultyEasy, "logarithms"},
	{"What is sin(pi/6)?", [4]string{"1/2", "sqrt(3)/2", "sqrt(2)/2", "1"}, 0, model.DifficultyMedium, "trigonometry"},
	{"How many real roots does x^2 - 4x + 5 = 0 have?", [4]string{"0", "1", "2", "Infinitely many"}, 0, model.DifficultyMedium, "algebra"},
	{"What is the derivative of e^(3x)?", [4]string{"e^(3x)", "3e^(3x)", "3xe^(3x-1)", "e^(3x)/3"}, 1, model.DifficultyMedium, "calculus"},
	{"What is the sum to infinity of 1 + 1/3 + 1/9 + ...?", [4]string{"4/3", "3/2", "2", "3"}, 1, model.DifficultyHard, "sequences"},
	{"What is the integral of 1/x dx from 1 to e?", [4]string{"0", "1", "e", "1/e"}, 1, model.DifficultyHard, "calculus"},
	{"For which k does x^2 + kx + 9 = 0 have a repeated root (k > 0)?", [4]string{"3", "6", "9", "18"}, 1, model.DifficultyHard, "algebra"},
	{"What is the coefficient of x^2 in (1 + 2x)^5?", [4]string{"10", "20", "40", "80"}, 2, model.DifficultyHard, "binomial"},
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	catalogRepo := repository.NewCatalogRepository(pool)

	fmt.Printf("=== Seeding exam %q ===\n", examSlug)

	description := "Pure mathematics practice: calculus, algebra, sequences and trigonometry."
	duration, passing, attempts, target := 45, 70, 3, 10
	exam := &model.Exam{
		Slug:                examSlug,
		Title:               "A-Level Mathematics",
		Description:         &description,
		Tags:                []string{"practice", "math", "a-level"},
		DurationMinutes:     &duration,
		PassingScore:        &passing,
		AttemptsAllowed:     &attempts,
		TargetQuestionCount: &target,
	}
	if err := catalogRepo.UpsertExam(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to upsert exam")
	}

	labels := [4]string{"A", "B", "C", "D"}
	seeded := 0
	for i, sq := range questions {
		id := fmt.Sprintf("%s-%02d", examSlug, i+1)
		q := &model.Question{
			ID:         id,
			VersionID:  id + "-v1",
			ExamSlug:   examSlug,
			Stem:       sq.stem,
			Difficulty: sq.difficulty,
			Subject:    sq.subject,
			OrderNum:   i + 1,
		}
		for j, text := range sq.choices {
			choiceID := fmt.Sprintf("%s-%s", id, labels[j])
			q.Choices = append(q.Choices, model.Choice{ID: choiceID, Label: labels[j], Text: text})
			if j == sq.correct {
				q.CorrectChoiceIDs = []string{choiceID}
			}
		}

		if err := catalogRepo.UpsertQuestion(ctx, q); err != nil {
			log.Error().Err(err).Str("question_id", id).Msg("Failed to upsert question")
			continue
		}
		seeded++
		fmt.Printf("Seeded %s (%s, %s)\n", id, sq.subject, sq.difficulty)
	}

	fmt.Printf("=== Done: %d/%d questions ===\n", seeded, len(questions))
}
