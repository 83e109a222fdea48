package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/imagebot/internal/imagesearch"
	"github.com/kitbuilder587/imagebot/internal/ratelimit"
)

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	command, args := ParseCommand(msg.Text)

	userID := int64(0)
	if msg.From != nil {
		userID = msg.From.ID
	}
	h.bot.logger.Info("received message",
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", msg.Chat.ID),
		zap.String("command", command),
	)

	switch command {
	case "":
		h.handleImage(ctx, msg, args)
	case "start", "help":
		h.handleHelp(msg)
	case "img":
		h.handleImage(ctx, msg, args)
	case "more":
		h.handleMore(ctx, msg)
	case "imgs":
		h.handleBatch(ctx, msg, args)
	case "quota":
		h.handleQuota(msg)
	default:
		h.bot.Send(msg.Chat.ID, "Неизвестная команда. Используйте /help для справки.")
	}
}

func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	helpText := fmt.Sprintf(`<b>Поиск картинок</b>

/img запрос - одна картинка по запросу
/more - следующая картинка по последнему запросу
/imgs [N] запрос - список из N картинок (по умолчанию %d, максимум %d)
/quota - сколько запросов осталось
/help - эта справка

Можно просто написать запрос без команды - это то же самое, что /img.
Повтор того же запроса выдает следующую картинку.`, h.bot.batchSize, maxBatchCount)

	h.bot.Send(msg.Chat.ID, helpText)
}

func (h *Handler) handleImage(ctx context.Context, msg *tgbotapi.Message, query string) {
	if query == "" {
		h.bot.Send(msg.Chat.ID, "Напишите, что искать: /img котики")
		return
	}

	s := h.bot.session(msg.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastQuery = query
	h.sendSingle(ctx, msg.Chat.ID, s, query)
}

func (h *Handler) handleMore(ctx context.Context, msg *tgbotapi.Message) {
	s := h.bot.session(msg.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastQuery == "" {
		h.bot.Send(msg.Chat.ID, "Сначала найдите что-нибудь: /img котики")
		return
	}
	h.sendSingle(ctx, msg.Chat.ID, s, s.lastQuery)
}

// sendSingle expects s.mu to be held.
func (h *Handler) sendSingle(ctx context.Context, chatID int64, s *session, query string) {
	h.bot.SendTyping(chatID)

	url, err := s.searcher.GetSingleImageURL(ctx, query)
	if err != nil {
		h.bot.logger.Error("image search failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("query", query),
		)
		h.bot.Send(chatID, mapErrorToMessage(err))
		return
	}

	if url == "" {
		h.bot.Send(chatID, FormatNotFound(query))
		return
	}

	if err := h.bot.SendPhoto(chatID, url, query); err != nil {
		// телеграм не смог скачать картинку - отдаем ссылкой
		h.bot.logger.Warn("failed to send photo, falling back to link",
			zap.Error(err),
			zap.String("url", url),
		)
		h.bot.Send(chatID, FormatImageLink(url))
	}
}

func (h *Handler) handleBatch(ctx context.Context, msg *tgbotapi.Message, args string) {
	query, count := ParseBatchArgs(args, h.bot.batchSize)
	if query == "" {
		h.bot.Send(msg.Chat.ID, "Напишите, что искать: /imgs 5 котики")
		return
	}

	s := h.bot.session(msg.Chat.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	h.bot.SendTyping(msg.Chat.ID)

	urls, err := s.searcher.GetMultipleImageURLs(ctx, query, count)
	if err != nil {
		h.bot.logger.Error("batch image search failed",
			zap.Error(err),
			zap.Int64("chat_id", msg.Chat.ID),
			zap.String("query", query),
			zap.Int("count", count),
		)
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	if len(urls) == 0 {
		h.bot.Send(msg.Chat.ID, FormatNotFound(query))
		return
	}

	for _, m := range SplitMessage(FormatImageList(query, urls), telegramMaxLen) {
		if err := h.bot.Send(msg.Chat.ID, m); err != nil {
			h.bot.logger.Error("failed to send message", zap.Error(err))
		}
	}
}

func (h *Handler) handleQuota(msg *tgbotapi.Message) {
	s := h.bot.session(msg.Chat.ID)
	s.mu.Lock()
	used, threshold, left := s.searcher.QueryCount(), s.searcher.QueryThreshold(), s.searcher.QueryRemaining()
	s.mu.Unlock()

	h.bot.Send(msg.Chat.ID, FormatQuota(used, threshold, left))
}

func mapErrorToMessage(err error) string {
	var qe *ratelimit.QuotaExceededError
	switch {
	case errors.As(err, &qe):
		return fmt.Sprintf("Лимит запросов исчерпан (%d). Попробуйте позже.", qe.Threshold)
	case errors.Is(err, ratelimit.ErrQuotaExceeded):
		return "Лимит запросов исчерпан. Попробуйте позже."
	case errors.Is(err, imagesearch.ErrProviderQuotaExceeded):
		return "Месячный лимит поиска исчерпан."
	case errors.Is(err, imagesearch.ErrRateLimited):
		return "Слишком много запросов. Подождите немного."
	case errors.Is(err, imagesearch.ErrEmptyQuery):
		return "Пустой запрос. Напишите, что искать."
	case errors.Is(err, context.DeadlineExceeded):
		return "Поиск занял слишком много времени. Попробуйте еще раз."
	default:
		return "Произошла ошибка. Попробуйте позже."
	}
}
