package reporter

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/athrvakulkarni11/auto-mail-sender/internal/models"
)

// TelegramReporter pushes a completion summary per finished request, so
// the operator sees pipeline outcomes without polling the API.
type TelegramReporter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramReporter(token string, chatID int64) (*TelegramReporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	return &TelegramReporter{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (t *TelegramReporter) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "HTML" //use HTML for bold/italic
	_, err := t.bot.Send(msg)
	return err
}

// ReportRequest summarizes a finished request.
func (t *TelegramReporter) ReportRequest(req *models.ApplicationRequest) error {
	c := req.Count()
	text := fmt.Sprintf(
		"📬 <b>Application run %s</b>\n"+
			"Status: <b>%s</b>\n"+
			"🔎 Jobs found: %d\n"+
			"✅ Emails sent: %d\n"+
			"📝 Composed: %d\n"+
			"🗑 Filtered out: %d\n"+
			"⚠️ Errors: %d",
		req.ID,
		req.Status,
		c.JobsFound,
		c.EmailsSent,
		c.Composed,
		c.FilteredOut,
		c.Errors,
	)
	if req.Error != "" {
		text += fmt.Sprintf("\n❌ %s", req.Error)
	}
	return t.SendMessage(text)
}

func (t *TelegramReporter) SendError(errReq error) error {
	text := fmt.Sprintf("⚠️ <b>Auto Mail Sender Error</b>:\n%v", errReq)
	return t.SendMessage(text)
}
