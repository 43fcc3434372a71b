package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramConfig struct {
	BotToken    string `mapstructure:"botToken"`
	AdminChatID int64  `mapstructure:"adminChatID"`
	Debug       bool   `mapstructure:"debug"`
}

// Sender is the part of the bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier forwards new withdrawal requests to the admin's Telegram chat.
type TelegramNotifier struct {
	bot    Sender
	chatID int64
}

func NewTelegramNotifier(config TelegramConfig) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = config.Debug

	return NewTelegramNotifierWithSender(bot, config.AdminChatID), nil
}

func NewTelegramNotifierWithSender(bot Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
	}
}

func (n *TelegramNotifier) Notify(_ context.Context, event model.Event) {
	if event.Type != model.EventWithdrawalRequested {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, withdrawalText(event.Payload))
	if _, err := n.bot.Send(msg); err != nil {
		logger.Logger().Error("failed to send telegram notification",
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

func withdrawalText(p map[string]any) string {
	var b strings.Builder
	b.WriteString("New withdrawal request\n")
	fmt.Fprintf(&b, "ID: %v\n", p["request_id"])
	fmt.Fprintf(&b, "User: %v (%v)\n", p["name"], p["username"])
	fmt.Fprintf(&b, "Amount: %v\n", p["amount"])
	fmt.Fprintf(&b, "Destination: %v", p["destination"])
	return b.String()
}
