package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/api"
	"github.com/rpupo63/portfolio-backend/config"
	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rpupo63/portfolio-backend/services"
)

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	c := config.New()
	setupLogging(c)

	ctx := context.Background()

	if parameterPath := config.GetString(c, "SSM_PARAMETER_PATH", ""); parameterPath != "" {
		n, err := config.LoadSSMParameters(ctx, c, parameterPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", parameterPath).Msg("failed to load SSM parameters")
		}
		log.Info().Int("parameters", n).Str("path", parameterPath).Msg("loaded SSM parameters")
	}

	log.Info().Str("dbType", config.GetString(c, "DB_TYPE", "postgres")).Msg("connecting to database")
	db, err := database.Connect(c)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}

	// If generating models, run generation and exit
	if config.GetBool(c, "GENERATE_MODELS", false) {
		fmt.Println("Generating models and query helpers...")
		if err := models.GenerateModels(db, "./generated"); err != nil {
			log.Fatal().Err(err).Msg("model generation failed")
		}
		return
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(c, "GENERATE_COLUMN_REPORT", false) {
		fmt.Println("Generating column mismatch report...")
		report, err := models.ColumnMismatchReport(db)
		if err != nil {
			log.Fatal().Err(err).Msg("column report failed")
		}
		models.WriteColumnMismatchReport(os.Stdout, report)
		return
	}

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	currentDB := database.New(db)
	bootstrap(c, currentDB)

	storage, err := services.NewStorage(ctx, c)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing file storage")
	}
	mailer, err := services.NewMailer(c)
	if err != nil {
		log.Fatal().Err(err).Msg("error initializing mailer")
	}

	// buffered for both senders: the listener and the signal watcher
	errChannel := make(chan error, 2)

	server, err := api.NewServer(currentDB, c, storage, mailer)
	if err != nil {
		fmt.Printf("Error initializing server: %v\n", err)
		os.Exit(1)
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	fmt.Printf("Closing server: %v\n", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

func setupLogging(c map[string]string) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(c, "LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// bootstrap seeds the staff account from ADMIN_* and drops expired sessions.
func bootstrap(c map[string]string, db database.Database) {
	username := config.GetString(c, "ADMIN_USERNAME", "")
	email := config.GetString(c, "ADMIN_EMAIL", "")
	password := config.GetString(c, "ADMIN_PASSWORD", "")
	if username != "" && email != "" && password != "" {
		created, err := db.UserRepo().EnsureStaff(username, email, password)
		if err != nil {
			log.Fatal().Err(err).Str("username", username).Msg("failed to ensure admin user")
		}
		log.Info().Str("username", username).Bool("created", created).Msg("admin user ready")
	}

	purged, err := db.SessionRepo().DeleteExpired(time.Now().UTC())
	if err != nil {
		log.Warn().Err(err).Msg("failed to purge expired sessions")
		return
	}
	log.Debug().Int64("sessions", purged).Msg("purged expired sessions")
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-ch)
}
