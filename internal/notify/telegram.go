package notify

import (
	"fmt"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"megasena/internal/models"
)

// Telegram announces draw results to the administrator chat. The chat is
// registered when the admin sends /start to the bot. With no token the
// notifier stays disabled and every call is a no-op.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID atomic.Int64
	log    zerolog.Logger
}

func NewTelegram(token string, log zerolog.Logger) (*Telegram, error) {
	t := &Telegram{log: log}
	if token == "" {
		return t, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	t.bot = bot
	log.Info().Str("account", bot.Self.UserName).Msg("telegram bot authorized")

	go t.listenForCommands()
	return t, nil
}

func (t *Telegram) listenForCommands() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for update := range t.bot.GetUpdatesChan(u) {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		if update.Message.Command() == "start" {
			chatID := update.Message.Chat.ID
			t.chatID.Store(chatID)
			msg := tgbotapi.NewMessage(chatID, "Chat registered. Draw results will be announced here.")
			t.bot.Send(msg)
			t.log.Info().Int64("chat_id", chatID).Msg("admin chat registered")
		}
	}
}

// DrawCompleted sends the drawn numbers and winner totals for a finished
// contest.
func (t *Telegram) DrawCompleted(contest models.Contest, counts models.WinnerCounts) {
	numbers := make([]string, len(contest.DrawnNumbers))
	for i, n := range contest.DrawnNumbers {
		numbers[i] = fmt.Sprintf("%02d", n)
	}
	text := fmt.Sprintf("🎱 Contest #%d drawn: %s\nSena: %d | Quina: %d | Quadra: %d",
		contest.Number, strings.Join(numbers, " "), counts.Sena, counts.Quina, counts.Quadra)
	t.send(text)
}

func (t *Telegram) send(text string) {
	chatID := t.chatID.Load()
	if t.bot == nil || chatID == 0 {
		t.log.Debug().Msg("telegram notifier disabled or chat unknown")
		return
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		t.log.Error().Err(err).Msg("telegram notification failed")
	}
}
