package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"signal_engine/internal/models"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sink получает события жизненного цикла сигналов.
type Sink interface {
	NewSignal(s *models.Signal)
	TPHit(s *models.Signal, level models.TPLevel, fill models.Fill)
	StopHit(s *models.Signal, fill models.Fill)
	SignalClosed(s *models.Signal)
	Sendf(format string, args ...any)
}

// ActiveLister — реестр для команды /signals.
type ActiveLister interface {
	ListActive() []*models.Signal
}

// Telegram — пассивный нотифайер + обработка одной команды /signals.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	active ActiveLister
}

func NewTelegram(token string, chatID int64, active ActiveLister) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID, active: active}, nil
}

func (t *Telegram) send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.send(fmt.Sprintf(format, args...)) }

func (t *Telegram) NewSignal(s *models.Signal) {
	t.send(fmt.Sprintf(
		"🆕 %s %s %s\nВход: %v\nСтоп: %v\nЦели: %v / %v / %v\nСценарий: %s",
		dirEmoji(s.Direction), s.Symbol, s.Direction,
		s.EntryPrice, s.StopLoss, s.TP1, s.TP2, s.TP3, s.ScenarioName))
}

func (t *Telegram) TPHit(s *models.Signal, level models.TPLevel, fill models.Fill) {
	t.send(fmt.Sprintf(
		"%s %s TP%d по %v\nЗакрыто %.0f%% (+%.2f%%), ROI %.2f%%",
		strings.Repeat("🎯", int(level)), s.Symbol, level, fill.Price,
		fill.Fraction*100, fill.Contribution, s.CurrentROI))
}

func (t *Telegram) StopHit(s *models.Signal, fill models.Fill) {
	t.send(fmt.Sprintf(
		"🛑 %s стоп по %v\nЗакрыт остаток %.0f%% (%.2f%%), ROI %.2f%%",
		s.Symbol, fill.Price, fill.Fraction*100, fill.Contribution, s.CurrentROI))
}

func (t *Telegram) SignalClosed(s *models.Signal) {
	emoji := "✅"
	if s.Status == models.StatusStopped {
		emoji = "🛑"
	}
	t.send(fmt.Sprintf("%s %s закрыт: %s, итог %.2f%%", emoji, s.Symbol, s.Status, s.CurrentROI))
}

// /signals — вывод активных сигналов из реестра.
func (t *Telegram) handleSignals() {
	if t.active == nil {
		t.send("❗️ Реестр недоступен")
		return
	}
	signals := t.active.ListActive()
	if len(signals) == 0 {
		t.send("📭 Активных сигналов нет")
		return
	}

	var b strings.Builder
	b.WriteString("📊 Активные сигналы:\n")
	for _, s := range signals {
		fmt.Fprintf(&b, "- %s [%s] вход %v, сейчас %v, ROI %.2f%%, закрыто %.0f%%\n",
			s.Symbol, s.Direction, s.EntryPrice, s.CurrentPrice, s.CurrentROI, s.ClosedFraction()*100)
	}
	t.send(b.String())
}

// Start: long-polling для команд.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message != nil && upd.Message.Chat != nil &&
					upd.Message.Chat.ID == t.chatID && upd.Message.IsCommand() {

					switch upd.Message.Command() {
					case "signals":
						go t.handleSignals()
					}
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {}

func dirEmoji(d models.Direction) string {
	if d == models.DirectionShort {
		return "🔻"
	}
	return "🔺"
}

// Stdout — заглушка, всё пишет в лог. Используется без токена.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }

func (s *Stdout) NewSignal(sig *models.Signal) {
	log.Printf("NEW %s %s entry=%v sl=%v tp=%v/%v/%v",
		sig.Symbol, sig.Direction, sig.EntryPrice, sig.StopLoss, sig.TP1, sig.TP2, sig.TP3)
}

func (s *Stdout) TPHit(sig *models.Signal, level models.TPLevel, fill models.Fill) {
	log.Printf("TP%d %s @ %v (+%.2f%%)", level, sig.Symbol, fill.Price, fill.Contribution)
}

func (s *Stdout) StopHit(sig *models.Signal, fill models.Fill) {
	log.Printf("SL %s @ %v (%.2f%%)", sig.Symbol, fill.Price, fill.Contribution)
}

func (s *Stdout) SignalClosed(sig *models.Signal) {
	log.Printf("CLOSED %s %s roi=%.2f%%", sig.Symbol, sig.Status, sig.CurrentROI)
}
