package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/letsssgooo/chembot/internal/bot"
	"github.com/letsssgooo/chembot/internal/client"
	"github.com/letsssgooo/chembot/internal/content"
	"github.com/letsssgooo/chembot/internal/lib/slogcustom"
	"github.com/letsssgooo/chembot/internal/quiz"
	"github.com/letsssgooo/chembot/internal/report"
	"github.com/letsssgooo/chembot/internal/storage"
	"github.com/letsssgooo/chembot/internal/storage/postgres"
)

const questionTimeLimit = 180 * time.Second

func main() {
	// .env нужен для локального запуска, в проде переменные приходят
	// из окружения.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	log := setupLogger()
	slog.SetDefault(log)
	slog.Info("starting chemistry quiz bot...")

	flagToken := pflag.String("token", envOr("BOT_TOKEN", ""), "token of telegram bot")
	flagDatabaseURL := pflag.String("database-url", envOr("DATABASE_URL", ""), "postgres connection string")
	flagAPIBaseURL := pflag.String("api-base-url", envOr("API_BASE_URL", ""), "base URL of the question bank API")
	flagStateFile := pflag.String("state-file", envOr("STATE_FILE", "chembot_state.json"), "file persisting conversation states across restarts")
	flagSMTPHost := pflag.String("smtp-host", envOr("SMTP_HOST", ""), "SMTP server host")
	flagSMTPPort := pflag.Int("smtp-port", envOrInt("SMTP_PORT", 587), "SMTP server port")
	flagSMTPUser := pflag.String("smtp-user", envOr("SMTP_USER", ""), "SMTP username")
	flagSMTPPassword := pflag.String("smtp-password", envOr("SMTP_PASSWORD", ""), "SMTP password")
	flagReportFrom := pflag.String("report-from", envOr("REPORT_FROM", ""), "sender address of weekly reports")
	flagReportTo := pflag.String("report-to", envOr("REPORT_TO", ""), "comma separated recipients of weekly reports")
	pflag.Parse()

	if *flagToken == "" {
		slog.Error("bot token is required: pass --token or set BOT_TOKEN")
		os.Exit(1)
	}
	if *flagAPIBaseURL == "" {
		slog.Error("question bank API URL is required: pass --api-base-url or set API_BASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st := setupStorage(ctx, *flagDatabaseURL)

	mailer := setupMailer(report.MailConfig{
		Host:       *flagSMTPHost,
		Port:       *flagSMTPPort,
		Username:   *flagSMTPUser,
		Password:   *flagSMTPPassword,
		From:       *flagReportFrom,
		Recipients: splitRecipients(*flagReportTo),
	})

	reports := report.New(st, mailer)

	go report.NewScheduler(reports).Run(ctx)

	b := bot.New(
		client.NewHTTPClient(*flagToken),
		quiz.NewManager(questionTimeLimit),
		content.NewClient(*flagAPIBaseURL),
		st,
		reports,
		*flagStateFile,
	)

	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("bot stopped", "err", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

// setupStorage подключается к Postgres. Без строки подключения бот
// работает на хранилище в памяти — режим для локальной разработки.
func setupStorage(ctx context.Context, dsn string) storage.Storage {
	if dsn == "" {
		slog.Warn("DATABASE_URL is not set, falling back to in-memory storage")
		return storage.NewMemoryStorage()
	}

	pg, err := postgres.NewStorage(ctx, dsn)
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		os.Exit(1)
	}

	if err := pg.Setup(ctx); err != nil {
		slog.Error("failed to set up database schema", "err", err)
		os.Exit(1)
	}

	return pg
}

func setupMailer(cfg report.MailConfig) *report.Mailer {
	if cfg.Host == "" {
		slog.Warn("SMTP is not configured, weekly reports will not be emailed")
		return nil
	}

	mailer, err := report.NewMailer(cfg)
	if err != nil {
		slog.Error("invalid mail config", "err", err)
		os.Exit(1)
	}

	return mailer
}

func setupLogger() *slog.Logger {
	return slog.New(slogcustom.NewCustomHandler(os.Stdout, slog.LevelDebug))
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func envOrInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}

	return value
}

func splitRecipients(raw string) []string {
	var recipients []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			recipients = append(recipients, part)
		}
	}

	return recipients
}
