package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"dropwatch/bot"
	"dropwatch/brandfilter"
	"dropwatch/config"
	"dropwatch/db"
	"dropwatch/fetcher"
	"dropwatch/models"
	"dropwatch/parser"
	"dropwatch/pipeline"
	"dropwatch/scheduler"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	// Parse command line arguments
	pageURL := flag.String("url", "", "Catalog page URL to scan once (optional, if not provided, runs as Telegram bot)")
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// If URL is provided, run a single scan and print to console
	if *pageURL != "" {
		runCLIMode(*pageURL, *configPath)
		return
	}

	// Otherwise, run as Telegram bot
	runTelegramBot(*configPath)
}

// runCLIMode fetches one catalog page, extracts products and prints the
// matches to the console. No database or Telegram involved.
func runCLIMode(pageURL, configPath string) {
	cfg := loadConfig(configPath)

	client := fetcher.NewClient()
	defer client.Close()

	html, err := client.Fetch(pageURL)
	if err != nil {
		log.Fatalf("Fetch failed: %v\n", err)
	}

	p, err := parser.NewParser("cli", pageURL)
	if err != nil {
		log.Fatalf("Invalid URL: %v\n", err)
	}

	products, err := p.ParseHTML(html)
	if err != nil {
		log.Fatalf("Parsing failed: %v\n", err)
	}

	var matched []models.Product
	for _, product := range products {
		if brandfilter.Matches(product, cfg.Brands) {
			matched = append(matched, product)
		}
	}

	fmt.Printf("Found %d products before filtering\n", len(products))
	fmt.Printf("Found %d products after filtering\n", len(matched))
	fmt.Println("---")

	if len(matched) == 0 {
		fmt.Println("No products match the brand filters.")
		return
	}

	for i, product := range matched {
		fmt.Printf("\n%d. %s\n", i+1, product.Title)
		if product.Link != "" {
			fmt.Printf("   Link: %s\n", product.Link)
		}
		if product.Price != "" {
			fmt.Printf("   Price: %s\n", product.Price)
		} else {
			fmt.Printf("   Price: Not available\n")
		}
		if product.Description != "" {
			fmt.Printf("   Description: %s\n", product.Description)
		}
	}
}

// runTelegramBot runs the watcher as a Telegram bot
func runTelegramBot(configPath string) {
	// Get bot token from environment
	botToken := os.Getenv("DROPWATCH_TG_TOKEN")
	if botToken == "" {
		log.Fatalf("Error: DROPWATCH_TG_TOKEN environment variable is not set")
	}

	// Load configuration
	cfg := loadConfig(configPath)

	// Initialize bot
	notifier, err := bot.New(botToken)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v\n", err)
	}
	api := notifier.API()
	log.Printf("Authorized on account %s\n", api.Self.UserName)

	// Initialize database (runs migrations)
	database, err := db.NewDB()
	if err != nil {
		log.Fatalf("Error: Failed to initialize database: %v\n", err)
	}
	defer database.Close()
	log.Println("Database initialized successfully")

	ledger := db.NewLedger(database, cfg.MaxAge())

	pipe, err := pipeline.New(cfg, ledger)
	if err != nil {
		log.Fatalf("Error: Failed to build pipeline: %v\n", err)
	}

	// Initialize and start scheduler (browsers are created on-demand)
	sched := scheduler.NewScheduler(database, notifier, pipe, cfg.ScanInterval())
	sched.Start()
	log.Printf("Scheduler started, scanning every %s\n", cfg.ScanInterval())
	defer sched.Stop()

	// Set up update configuration - start from latest update to skip old ones
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updateConfig.Offset = -1

	updates := api.GetUpdatesChan(updateConfig)

	// Handle updates
	for update := range updates {
		if update.Message == nil {
			continue
		}

		if !update.Message.IsCommand() {
			msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Use /start to subscribe to new product alerts, /stop to unsubscribe.")
			api.Send(msg)
			continue
		}

		userID := update.Message.From.ID
		chatID := update.Message.Chat.ID

		switch update.Message.Command() {
		case "start":
			from := update.Message.From
			if err := database.UpsertSubscriber(userID, from.UserName, from.FirstName, from.LastName); err != nil {
				log.Printf("Error subscribing user %d: %v\n", userID, err)
				api.Send(tgbotapi.NewMessage(chatID, "Failed to subscribe, please try again later."))
				continue
			}
			log.Printf("User %d subscribed\n", userID)
			welcome := fmt.Sprintf(
				"Subscribed! You will be notified about new products from %s.\nUse /stop to unsubscribe.",
				sourceNames(cfg))
			api.Send(tgbotapi.NewMessage(chatID, welcome))
		case "stop":
			removed, err := database.Unsubscribe(userID)
			if err != nil {
				log.Printf("Error unsubscribing user %d: %v\n", userID, err)
				api.Send(tgbotapi.NewMessage(chatID, "Failed to unsubscribe, please try again later."))
				continue
			}
			if removed {
				log.Printf("User %d unsubscribed\n", userID)
				api.Send(tgbotapi.NewMessage(chatID, "Unsubscribed. Use /start to subscribe again."))
			} else {
				api.Send(tgbotapi.NewMessage(chatID, "You were not subscribed."))
			}
		case "status":
			subscribed, err := database.IsSubscribed(userID)
			if err != nil {
				log.Printf("Error checking subscription for user %d: %v\n", userID, err)
				api.Send(tgbotapi.NewMessage(chatID, "Failed to check status, please try again later."))
				continue
			}
			if subscribed {
				api.Send(tgbotapi.NewMessage(chatID, "You are subscribed to new product alerts."))
			} else {
				api.Send(tgbotapi.NewMessage(chatID, "You are not subscribed. Use /start to subscribe."))
			}
		case "help":
			helpText := "Commands:\n/start - Subscribe to new product alerts\n/stop - Unsubscribe\n/status - Check subscription status\n/help - Show this help"
			api.Send(tgbotapi.NewMessage(chatID, helpText))
		default:
			api.Send(tgbotapi.NewMessage(chatID, "Unknown command. Use /help for available commands."))
		}
	}
}

// loadConfig loads configuration from file or returns defaults
func loadConfig(configPath string) *config.Config {
	var cfg *config.Config
	if _, err := os.Stat(configPath); err == nil {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			log.Printf("Warning: Failed to load config file: %v. Using defaults.\n", err)
			cfg = config.GetDefaultConfig()
		}
	} else {
		log.Println("Config file not found. Using default configuration.")
		cfg = config.GetDefaultConfig()
	}
	return cfg
}

func sourceNames(cfg *config.Config) string {
	names := make([]string, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		names = append(names, src.Name)
	}
	return strings.Join(names, ", ")
}
