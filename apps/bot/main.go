package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/academibot/apps/api/echo"
	"github.com/trezcool/academibot/channels/inbox"
	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/core/assignment"
	"github.com/trezcool/academibot/core/bot"
	"github.com/trezcool/academibot/core/command"
	"github.com/trezcool/academibot/core/course"
	"github.com/trezcool/academibot/core/format"
	"github.com/trezcool/academibot/core/grading"
	"github.com/trezcool/academibot/core/user"
	"github.com/trezcool/academibot/services/email"
	"github.com/trezcool/academibot/services/logger"
	"github.com/trezcool/academibot/storage/database"
	"github.com/trezcool/academibot/storage/database/sqlx"
	"github.com/trezcool/academibot/storage/replies"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	conf, err := core.LoadConfig(wd)
	if err != nil {
		log.Fatal(err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "BOT : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	if conf.Mail.Backend == "sendgrid" && conf.Mail.APIKey == "" {
		if conf.Mail.APIKey, err = promptAPIKey(); err != nil {
			logger.Fatal("reading the mail API key", err)
		}
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	archive, err := replies.Open(conf.ReplyArchive)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening reply archive: %v", err), err)
	}
	defer func() {
		if err = archive.Close(); err != nil {
			dbLogger.Error("Failed to close reply archive", err)
		}
	}()

	// set up services
	checker, err := core.NewChecker(conf.Credentials)
	if err != nil {
		logger.Fatal("credentials", err)
	}
	mailSvc := emailsvc.New(conf, logger)
	grader := grading.NewGrader(grading.FlatPenalty(conf.LatePenalty))
	svc := command.Services{
		Users:       user.NewService(sqlxrepos.NewUserRepository(db), checker, conf.TempAuthInterval),
		Courses:     course.NewService(sqlxrepos.NewCourseRepository(db), checker),
		Assignments: assignment.NewService(sqlxrepos.NewAssignmentRepository(db)),
		Grader:      grader,
	}

	processor := command.NewProcessor(svc, command.Config{
		AppName: conf.AppName,
		Sigil:   conf.Sigil,
		Parser:  format.Parser{MaxDepth: conf.MaxParseDepth},
		Printer: format.Printer{LineLength: conf.LineLength},
	}, logger)

	box := inbox.New(inbox.Config{
		AppName: conf.AppName,
		Sigil:   conf.Sigil,
		Archive: archive,
		Mail:    mailSvc,
		Logger:  logger,
	})

	runner := bot.NewRunner(bot.Config{
		Channels:    []bot.Channel{box},
		Processor:   processor,
		Tokens:      svc.Users,
		Maintenance: grading.NewMaintainer(svc.Assignments, grader, logger, grading.NewMailNotifier(mailSvc, conf.AppName)),
		Logger:      logger,
		Interval:    conf.Interval,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:   conf,
		Logger: logger,
		Inbox:  box,
	})
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Start Bot

	botErrors := make(chan error, 1)
	go func() {
		botErrors <- runner.Run(ctx)
	}()

	// =========================================================================
	// Shutdown

	botDone := false
	select {
	case err = <-serverErrors:
		if err != nil {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}
	case err = <-botErrors:
		botDone = true
		if err != nil {
			logger.Error(fmt.Sprintf("bot error: %v", err), err)
		}
	case <-server.ShutdownSignal():
		logger.Info("shutdown requested by a handler")
	case <-ctx.Done():
		logger.Info("Start shutdown...")
	}
	stop()

	// give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err = server.Stop(shutdownCtx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}

	if botDone {
		return
	}
	// let the current cycle finish
	select {
	case <-botErrors:
	case <-shutdownCtx.Done():
		logger.Warn("bot cycle did not finish in time")
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	db, err := database.Open(conf.Database)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// promptAPIKey reads the key from the terminal without echoing it.
func promptAPIKey() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("mail.apiKey is not set and stdin is not a terminal")
	}
	fmt.Print("Enter the mail API key:")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(key), nil
}
