package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/imagebot/internal/cache/memory"
	"github.com/kitbuilder587/imagebot/internal/imagesearch"
	"github.com/kitbuilder587/imagebot/internal/metrics"
)

const (
	maxBatchCount     = 50
	defaultSessionTTL = time.Hour
	telegramMaxLen    = 4096
)

type BotConfig struct {
	Token      string
	Debug      bool
	BatchSize  int
	SessionTTL time.Duration
}

// SearcherFactory создает клиента для нового чата.
type SearcherFactory func() imagesearch.ImageSearcher

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// session - состояние одного чата. mu сериализует запросы чата,
// потому что клиент поиска не потокобезопасен.
type session struct {
	mu        sync.Mutex
	searcher  imagesearch.ImageSearcher
	lastQuery string
}

type Bot struct {
	api    *tgbotapi.BotAPI
	sender sender

	sessions    *memory.Cache[*session]
	newSearcher SearcherFactory
	sessionTTL  time.Duration
	batchSize   int

	logger  *zap.Logger
	metrics *metrics.Metrics
	handler *Handler
	wg      sync.WaitGroup
}

func New(cfg BotConfig, newSearcher SearcherFactory, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	bot := newBot(cfg, api, newSearcher, logger, m)
	bot.api = api

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(cfg BotConfig, s sender, newSearcher SearcherFactory, logger *zap.Logger, m *metrics.Metrics) *Bot {
	if cfg.BatchSize <= 0 || cfg.BatchSize > maxBatchCount {
		cfg.BatchSize = 5
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	bot := &Bot{
		sender:      s,
		sessions:    memory.New[*session](),
		newSearcher: newSearcher,
		sessionTTL:  cfg.SessionTTL,
		batchSize:   cfg.BatchSize,
		logger:      logger,
		metrics:     m,
	}
	bot.handler = NewHandler(bot)
	m.TrackActiveSessions(bot.sessions.Len)
	return bot
}

func (b *Bot) Run(ctx context.Context) error {
	defer b.sessions.Stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("all handlers finished")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	startTime := time.Now()
	command, _ := ParseCommand(update.Message.Text)
	if command == "" {
		command = "text"
	}

	defer func() {
		if r := recover(); r != nil {
			chatID := int64(0)
			if update.Message.Chat != nil {
				chatID = update.Message.Chat.ID
			}
			b.logger.Error("panic in update handler",
				zap.Any("panic", r),
				zap.Int64("chat_id", chatID),
			)
			b.metrics.RecordCommand(command, "panic", time.Since(startTime))
		}
	}()

	b.handler.HandleMessage(ctx, update.Message)

	b.metrics.RecordCommand(command, "processed", time.Since(startTime))
}

// session returns the chat's session, creating a fresh client when the
// previous one expired.
func (b *Bot) session(chatID int64) *session {
	s, existed := b.sessions.GetOrCreate(chatID, b.sessionTTL, func() *session {
		return &session{searcher: b.newSearcher()}
	})
	if !existed {
		b.logger.Debug("new chat session", zap.Int64("chat_id", chatID))
	}
	return s
}

func (b *Bot) Send(chatID int64, text string) error {
	if b.sender == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.sender.Send(msg)
	return err
}

// SendPhoto lets Telegram fetch the image by URL.
func (b *Bot) SendPhoto(chatID int64, url, caption string) error {
	if b.sender == nil {
		return nil
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(url))
	photo.Caption = caption
	_, err := b.sender.Send(photo)
	return err
}

func (b *Bot) SendTyping(chatID int64) {
	if b.sender == nil {
		return
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadPhoto)
	b.sender.Send(action)
}
