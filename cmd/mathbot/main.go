package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/integrations/openai"
	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/repository"
	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/tokens"
	"github.com/CarnegieLearningWeb/math-bot-qa-gsm8k/internal/usecase"
)

const (
	defaultModel      = "gpt-4"
	defaultStrategy   = "dialogue"
	defaultMaxAnswers = 10
)

func main() {
	ctx := context.Background()

	// Values may come from a local .env file; missing file is fine.
	_ = godotenv.Load()

	// ---- Configuration (read only here) ----
	dataFilename := mustEnv("TEST_DATA_FILENAME")
	spreadsheetURL := mustEnv("SPREADSHEET_URL")
	apiKey := mustEnv("OPENAI_API_KEY")
	serviceAccountFile := mustEnv("SERVICE_ACCOUNT_FILENAME")
	model := envStr("OPENAI_MODEL", defaultModel)
	strategy := envStr("MATHBOT_STRATEGY", defaultStrategy)

	// ---- Clients ----
	sheetsService, err := sheets.NewService(ctx,
		option.WithCredentialsFile(serviceAccountFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		slog.Error("failed to create sheets service", "err", err)
		os.Exit(1)
	}

	repo, err := repository.New(sheetsService, spreadsheetURL)
	if err != nil {
		slog.Error("failed to create sheet repository", "err", err)
		os.Exit(1)
	}

	counter := tokens.NewCounter()
	llm, err := openai.NewClient(apiKey, counter)
	if err != nil {
		slog.Error("failed to create openai client", "err", err)
		os.Exit(1)
	}

	answerer, err := newAnswerer(strategy, llm, model)
	if err != nil {
		slog.Error("failed to create answerer", "err", err)
		os.Exit(1)
	}

	batch, err := usecase.NewBatchService(repo, answerer, counter)
	if err != nil {
		slog.Error("failed to create batch service", "err", err)
		os.Exit(1)
	}

	run(ctx, batch, counter, dataFilename)
}

// newAnswerer selects the tutoring strategy. Both strategies share the same
// gateway and expression validation; only the conversation shape differs.
func newAnswerer(strategy string, llm usecase.LLMClient, model string) (usecase.Answerer, error) {
	switch strategy {
	case "dialogue":
		return usecase.NewDialogueService(llm, model)
	case "classify":
		return usecase.NewRouterService(llm, model)
	}
	return nil, fmt.Errorf("unknown MATHBOT_STRATEGY %q (want dialogue or classify)", strategy)
}

func run(ctx context.Context, batch *usecase.BatchService, counter *tokens.Counter, dataFilename string) {
	in := bufio.NewReader(os.Stdin)

	if promptYesNo(in, "Do you want to write the test data to the spreadsheet?\n(Note: this will clear the existing spreadsheet content) y/N: ") {
		if err := seed(ctx, batch, dataFilename); err != nil {
			slog.Error("seeding failed", "err", err)
			fmt.Println("\nAn error occurred while writing the test data to the spreadsheet.")
		} else {
			fmt.Println("\nTest data has been successfully written to the spreadsheet.")
		}
	}

	max := promptInt(in, "\nEnter the number of questions you want MathBot to answer (default: 10): ", defaultMaxAnswers)
	if err := batch.Answer(ctx, max); err != nil {
		slog.Error("batch failed", "err", err)
		fmt.Println("\nAn error occurred while MathBot was answering the questions.")
		return
	}

	fmt.Printf("\nSuccessfully answered %d questions and the responses have been written to the spreadsheet.\n", max)
	fmt.Printf("\nA total of %s tokens have been used.\n", groupThousands(counter.Total()))
}

func seed(ctx context.Context, batch *usecase.BatchService, dataFilename string) error {
	records, err := repository.ReadSeedFile(dataFilename)
	if err != nil {
		return err
	}
	return batch.Seed(ctx, records)
}

func promptYesNo(in *bufio.Reader, prompt string) bool {
	fmt.Print(prompt)
	line, _ := in.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// promptInt falls back to the default on any non-numeric or negative input.
func promptInt(in *bufio.Reader, prompt string, def int) int {
	fmt.Print(prompt)
	line, _ := in.ReadString('\n')
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// groupThousands renders n with comma separators for the usage summary.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	out := strings.Join(groups, ",")
	if neg {
		out = "-" + out
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
