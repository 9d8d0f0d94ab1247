// Package bot delivers product notifications to Telegram subscribers.
package bot

import (
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dropwatch/currency"
	"dropwatch/models"
)

// Delay between API calls so fan-out stays under Telegram's rate limits.
const (
	perUserDelay    = 50 * time.Millisecond
	PerProductDelay = 1 * time.Second
)

// Bot wraps the Telegram API for product dispatch.
type Bot struct {
	api       *tgbotapi.BotAPI
	converter *currency.Converter
}

// New creates a Bot from an API token.
func New(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	return &Bot{api: api, converter: currency.NewConverter()}, nil
}

// API exposes the underlying client for the command update loop.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// FormatProduct renders one product as an HTML Telegram message.
func (b *Bot) FormatProduct(p models.Product) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<b>%s</b>\n\n", p.Title))

	if p.Price != "" {
		// Korean catalogs list prices in KRW unless stated otherwise.
		sb.WriteString(fmt.Sprintf("Price: %s\n", b.converter.FormatWithConversion(p.Price, "KRW")))
	}

	if p.Description != "" {
		desc := p.Description
		if utf8.RuneCountInString(desc) > 200 {
			desc = string([]rune(desc)[:200]) + "..."
		}
		sb.WriteString(desc + "\n")
	}

	if p.Link != "" {
		sb.WriteString(fmt.Sprintf("\n<a href='%s'>View item</a>", p.Link))
	}

	return sb.String()
}

// SendProduct delivers one product to one user, as a photo with caption
// when an image URL exists, falling back to a plain message.
func (b *Bot) SendProduct(userID int64, p models.Product) error {
	text := b.FormatProduct(p)

	if p.Image != "" {
		photo := tgbotapi.NewPhoto(userID, tgbotapi.FileURL(p.Image))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(photo); err == nil {
			return nil
		} else {
			log.Printf("Photo send failed for user %d, retrying as text: %v\n", userID, err)
		}
	}

	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send product to user %d: %w", userID, err)
	}
	return nil
}

// BroadcastProduct sends one product to every user and reports whether at
// least one delivery succeeded.
func (b *Bot) BroadcastProduct(userIDs []int64, p models.Product) bool {
	delivered := false
	for _, userID := range userIDs {
		if err := b.SendProduct(userID, p); err != nil {
			log.Printf("Error delivering to user %d: %v\n", userID, err)
		} else {
			delivered = true
		}
		time.Sleep(perUserDelay)
	}
	return delivered
}

// SendText sends a plain HTML message to one user.
func (b *Bot) SendText(userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}
