package telegram

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/camuig/miner-advisor/internal/advisor"
	"github.com/camuig/miner-advisor/internal/config"
	"github.com/camuig/miner-advisor/internal/logger"
)

type Notifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	enabled bool
	logger  *logger.Logger
}

func NewNotifier(cfg *config.Config, log *logger.Logger) *Notifier {
	if !cfg.Telegram.Enabled {
		return &Notifier{enabled: false, logger: log}
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("failed to create telegram bot", "error", err)
		return &Notifier{enabled: false, logger: log}
	}

	log.Info("telegram bot connected", "username", bot.Self.UserName)

	return &Notifier{
		bot:     bot,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		logger:  log,
	}
}

// NotifyAnalysis posts a per-ticker summary of one analysis run.
func (n *Notifier) NotifyAnalysis(results map[string]*advisor.TickerResult, macroBias string) {
	if !n.enabled || len(results) == 0 {
		return
	}

	tickers := make([]string, 0, len(results))
	for t := range results {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var b strings.Builder
	b.WriteString("📊 *Daily analysis*\n")
	for _, ticker := range tickers {
		res := results[ticker]
		if res.Error != "" {
			fmt.Fprintf(&b, "%s: %s\n", ticker, res.Error)
			continue
		}
		fmt.Fprintf(&b, "%s %s $%.2f — *%s* (%s)\n",
			recEmoji(res.Recommendation), ticker, res.CurrentPrice,
			res.Recommendation, strings.ToLower(res.Confidence))
		if res.PositionGuidance != nil && res.PositionGuidance.Shares > 0 {
			fmt.Fprintf(&b, "    %s %d shares (~$%.0f)\n",
				strings.ToLower(res.PositionGuidance.Action),
				res.PositionGuidance.Shares, res.PositionGuidance.Amount)
		}
	}
	if macroBias != "" {
		b.WriteString("\n🌍 " + macroBias)
	}
	n.send(b.String())
}

func (n *Notifier) NotifyError(context string, err error) {
	n.send(fmt.Sprintf("⚠️ *Error* [%s]\n%v", context, err))
}

func (n *Notifier) NotifyStatus(message string) {
	n.send(message)
}

func recEmoji(rec string) string {
	switch rec {
	case "BUY":
		return "🟢"
	case "SELL":
		return "🔴"
	default:
		return "⚪"
	}
}

func (n *Notifier) send(text string) {
	if !n.enabled {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("send telegram message", "error", err)
	}
}
