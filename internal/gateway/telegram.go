package gateway

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"overseer/internal/observability"
)

// telegramMessageLimit is Telegram's hard cap per message; replies are
// chunked below it.
const telegramMessageLimit = 4000

// TelegramGateway treats every plain message as an objective. Runs
// execute one at a time per chat; the final report is sent back in
// chunks.
type TelegramGateway struct {
	bot    *tgbotapi.BotAPI
	runner Runner
	logger *observability.Logger
}

func NewTelegramGateway(token string, runner Runner, logger *observability.Logger) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return &TelegramGateway{bot: bot, runner: runner, logger: logger}, nil
}

func (g *TelegramGateway) Name() string { return "telegram" }

func (g *TelegramGateway) Start(ctx context.Context) error {
	log.Printf("telegram gateway online as @%s", g.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := g.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			g.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram update channel closed")
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go g.handle(ctx, update.Message)
		}
	}
}

func (g *TelegramGateway) handle(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/start") || strings.HasPrefix(text, "/help") {
		g.reply(msg.Chat.ID, "Send me an objective and I will plan it, work through the subtasks and report back with the results.")
		return
	}

	g.reply(msg.Chat.ID, "On it. I will report back when the run finishes.")

	state, err := g.runner.Run(ctx, text)
	if err != nil {
		g.reply(msg.Chat.ID, "Run aborted: "+err.Error())
		return
	}
	g.reply(msg.Chat.ID, state.FinalResult)
}

func (g *TelegramGateway) reply(chatID int64, text string) {
	for _, chunk := range chunkMessage(text, telegramMessageLimit) {
		m := tgbotapi.NewMessage(chatID, chunk)
		if _, err := g.bot.Send(m); err != nil {
			log.Printf("telegram send failed: %v", err)
			return
		}
	}
}

// chunkMessage splits on line boundaries where possible.
func chunkMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
