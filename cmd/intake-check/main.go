package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/growthspect/contact-intake/internal/adapters/smtp"
	"github.com/growthspect/contact-intake/internal/compose"
	"github.com/growthspect/contact-intake/internal/config"
	"github.com/growthspect/contact-intake/internal/core"
	"github.com/growthspect/contact-intake/internal/factory"
	"github.com/growthspect/contact-intake/internal/logging"
	"go.uber.org/zap"
)

// intake-check validates a submission payload offline, renders both
// outbound emails and can optionally push a live test send through the
// configured relay. Useful for checking templates and relay credentials
// without touching the website.
var (
	inputFile = flag.String("file", "", "Submission JSON file (use stdin if not specified)")
	showHTML  = flag.Bool("html", false, "Print the rendered HTML bodies")
	liveSend  = flag.Bool("send", false, "Actually dispatch both emails through the configured relay")
	spamCheck = flag.Bool("spam", false, "Score the submission with the configured spam screen")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.New()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Read submission from file or stdin
	var reader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		reader = file
		logger.Info("Reading submission from file", zap.String("file", *inputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading submission from stdin")
	}

	var req core.SubmissionRequest
	if err := json.NewDecoder(reader).Decode(&req); err != nil {
		logger.Fatal("Failed to parse submission JSON", zap.Error(err))
	}

	submission, err := core.NewValidator().Validate(&req)
	if err != nil {
		fmt.Printf("\n=== Validation ===\nInvalid: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("\n=== Submission ===\n")
	fmt.Printf("ID: %s\n", submission.ID)
	fmt.Printf("Name: %s %s\n", submission.FirstName, submission.LastName)
	fmt.Printf("Email: %s\n", submission.Email)
	fmt.Printf("Message length: %d bytes\n", len(submission.Message))

	if *spamCheck {
		runSpamCheck(cfg, logger, submission)
	}

	smtpCfg, err := cfg.GetSMTP()
	if err != nil {
		logger.Fatal("Invalid smtp configuration", zap.Error(err))
	}
	composer, err := compose.NewComposer(compose.Options{
		FromAddress:   smtpCfg.FromAddress,
		FromName:      smtpCfg.FromName,
		NotifyAddress: smtpCfg.NotifyAddress,
		SiteName:      smtpCfg.FromName,
	})
	if err != nil {
		logger.Fatal("Failed to create composer", zap.Error(err))
	}

	ack, err := composer.ComposeClientAck(submission)
	if err != nil {
		logger.Fatal("Failed to compose acknowledgment", zap.Error(err))
	}
	notice, err := composer.ComposeTeamNotice(submission)
	if err != nil {
		logger.Fatal("Failed to compose team notice", zap.Error(err))
	}

	fmt.Printf("\n=== Composed ===\n")
	fmt.Printf("Acknowledgment: to=%s subject=%q body=%d bytes\n", ack.To, ack.Subject, len(ack.HTMLBody))
	fmt.Printf("Team notice: to=%s reply_to=%s subject=%q body=%d bytes\n", notice.To, notice.ReplyTo, notice.Subject, len(notice.HTMLBody))

	if *showHTML {
		fmt.Printf("\n--- Acknowledgment HTML ---\n%s\n", ack.HTMLBody)
		fmt.Printf("\n--- Team notice HTML ---\n%s\n", notice.HTMLBody)
	}

	if *liveSend {
		dispatcher, err := smtp.NewDispatcher(smtpCfg, logger)
		if err != nil {
			logger.Fatal("Failed to create dispatcher", zap.Error(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		start := time.Now()
		if err := dispatcher.Send(ctx, ack); err != nil {
			logger.Fatal("Acknowledgment dispatch failed", zap.Error(err))
		}
		if err := dispatcher.Send(ctx, notice); err != nil {
			logger.Fatal("Team notice dispatch failed", zap.Error(err))
		}
		fmt.Printf("\n=== Dispatched ===\nBoth messages accepted by relay in %v\n", time.Since(start))
	}
}

// runSpamCheck scores the submission with the configured screen
func runSpamCheck(cfg *config.Config, logger *zap.Logger, submission *core.ContactSubmission) {
	client, err := factory.NewSpamFactory(cfg, logger).CreateSpamClient()
	if err != nil {
		logger.Fatal("Failed to create spam client", zap.Error(err))
	}
	if client == nil {
		fmt.Printf("\n=== Spam screen ===\nDisabled in configuration\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	score, err := client.ScoreSubmission(ctx, submission)
	if err != nil {
		logger.Fatal("Spam screening failed", zap.Error(err))
	}
	fmt.Printf("\n=== Spam screen ===\n")
	fmt.Printf("Is spam: %t\n", score.IsSpam)
	fmt.Printf("Score: %.4f\n", score.Score)
	fmt.Printf("Confidence: %.4f\n", score.Confidence)
	fmt.Printf("Explanation: %s\n", score.Explanation)
	fmt.Printf("Model used: %s\n", score.ModelUsed)
}
