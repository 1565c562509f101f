package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mnee-gate/gatekeeper/internal/blockchain"
	"github.com/mnee-gate/gatekeeper/internal/bot"
	"github.com/mnee-gate/gatekeeper/internal/config"
	"github.com/mnee-gate/gatekeeper/internal/gatekeeper"
	"github.com/mnee-gate/gatekeeper/internal/http_api"
	"github.com/mnee-gate/gatekeeper/internal/repository"
	"github.com/mnee-gate/gatekeeper/internal/telegram"
	"github.com/mnee-gate/gatekeeper/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "gatekeeper",
		Usage: "Gatekeeper sells access to private Telegram channels for on-chain MNEE payments",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.StringFlag{Name: "ethereum-rpc-url", Aliases: []string{"e"}, Usage: "Ethereum RPC URL"},
			&cli.StringFlag{Name: "token-contract", Aliases: []string{"c"}, Usage: "MNEE token contract address"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "API port"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("ethereum-rpc-url") {
		cfg.EthereumRPCURL = c.String("ethereum-rpc-url")
	}
	if c.IsSet("token-contract") {
		cfg.TokenContractAddress = c.String("token-contract")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Initialize database
	db, err := repository.Dial(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize blockchain client and transfer verifier
	chainClient := blockchain.NewClient(cfg.EthereumRPCURL, log)
	if err := chainClient.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Ethereum RPC: %v", err)
	}
	defer chainClient.Close()

	verifier, err := blockchain.NewVerifier(chainClient, cfg.TokenContractAddress, log)
	if err != nil {
		return fmt.Errorf("failed to initialize transfer verifier: %v", err)
	}

	// Initialize Telegram messenger
	messenger, err := telegram.NewMessenger(cfg.TelegramBotToken, log)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram messenger: %v", err)
	}

	// Create Gatekeeper instance and command dispatcher
	gatekeeperApp := gatekeeper.NewGatekeeper(db, verifier, messenger, log, cfg.BotUsername)
	dispatcher := bot.NewDispatcher(db, messenger, log, cfg.BotUsername, cfg.AppURL)

	// Initialize API server
	apiServer := http_api.NewHTTPServer(gatekeeperApp, dispatcher, db, cfg.APIPort, cfg.CronSecret, log)
	go apiServer.Start()

	// Wait for a termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return apiServer.Shutdown()
}
