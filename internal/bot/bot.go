package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"example.com/crypto-profit-bot/internal/portfolio"
	"example.com/crypto-profit-bot/internal/storage"
)

const startMessage = `Привет! Я помогу следить за прибылью по криптоактивам.

Добавить транзакцию можно двумя способами:

1) сообщением по шаблону:
` + "`2024-12-03 BTC 73000 0.1`" + `
2) csv файлом, где каждая строка по шаблону:
` + "`2024-12-03,BTC,73000,0.1`" + `

*Команды:*
/general_info - общая сводка по портфелю
/positions - разбивка по активам
/chart - диаграмма стоимости позиций
/export - выгрузить транзакции в csv
/clear - удалить все транзакции`

// deleteActionPrefix префикс callback-данных кнопки удаления транзакции
const deleteActionPrefix = "delete-transaction:"

type commandHandler func(ctx context.Context, msg *tgbotapi.Message)

// Bot инкапсулирует работу с Telegram API.
type Bot struct {
	api    *tgbotapi.BotAPI
	txs    storage.TransactionStore
	svc    *portfolio.Service
	client *http.Client

	// Явная таблица диспетчеризации команда -> обработчик.
	commands map[string]commandHandler
}

// New создает экземпляр бота.
func New(token string, txs storage.TransactionStore, svc *portfolio.Service) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = false
	logrus.WithField("username", api.Self.UserName).Info("telegram bot authorized")

	b := &Bot{
		api:    api,
		txs:    txs,
		svc:    svc,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	b.commands = map[string]commandHandler{
		"start":        b.cmdStart,
		"help":         b.cmdStart,
		"export":       b.cmdExport,
		"general_info": b.cmdGeneralInfo,
		"positions":    b.cmdPositions,
		"chart":        b.cmdChart,
		"clear":        b.cmdClear,
	}
	return b, nil
}

// Start запускает обработку апдейтов до завершения контекста.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("telegram api is not initialized")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		b.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}

	msg := upd.Message
	switch {
	case msg.IsCommand():
		if handler, ok := b.commands[msg.Command()]; ok {
			handler(ctx, msg)
		}
		// Неизвестные команды игнорируем
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	case msg.Text != "":
		b.handleText(ctx, msg)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		logrus.WithError(err).Warn("send message failed")
	}
}

// cmdStart регистрирует пользователя и показывает справку
func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.txs.EnsureUser(ctx, msg.From.ID); err != nil {
		logrus.WithError(err).WithField("user_id", msg.From.ID).Warn("ensure user failed")
	}
	b.reply(msg.Chat.ID, startMessage)
}

// cmdExport выгружает все транзакции пользователя csv файлом
func (b *Bot) cmdExport(ctx context.Context, msg *tgbotapi.Message) {
	txs, err := b.txs.ListByUser(ctx, msg.From.ID)
	if err != nil {
		logrus.WithError(err).Warn("export failed")
		b.reply(msg.Chat.ID, "Не получилось выгрузить транзакции, попробуйте позже")
		return
	}
	if len(txs) == 0 {
		b.reply(msg.Chat.ID, "У вас нет транзакций для выгрузки")
		return
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  "export.csv",
		Bytes: []byte(ExportCSV(txs)),
	})
	if _, err := b.api.Send(doc); err != nil {
		logrus.WithError(err).Warn("send document failed")
	}
}

// cmdGeneralInfo показывает сводку: потрачено, текущая стоимость, прибыль
func (b *Bot) cmdGeneralInfo(ctx context.Context, msg *tgbotapi.Message) {
	info, err := b.svc.SummaryByUser(ctx, msg.From.ID)
	if err != nil {
		logrus.WithError(err).Warn("summary failed")
		b.reply(msg.Chat.ID, "Не получилось посчитать сводку, попробуйте позже")
		return
	}
	if info == nil {
		b.reply(msg.Chat.ID, "У вас нет транзакций для отображения информации")
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(
		"*Потрачено*: %.2f USD\n*Текущая стоимость*: %.2f USD\n*Прибыль*: %.2f%%",
		info.TotalSpent, info.TotalValue, info.ProfitPercent))
}

// cmdPositions показывает разбивку по активам
func (b *Bot) cmdPositions(ctx context.Context, msg *tgbotapi.Message) {
	positions, err := b.svc.PositionsByUser(ctx, msg.From.ID)
	if err != nil {
		logrus.WithError(err).Warn("positions failed")
		b.reply(msg.Chat.ID, "Не получилось посчитать позиции, попробуйте позже")
		return
	}
	if len(positions) == 0 {
		b.reply(msg.Chat.ID, "У вас нет транзакций для отображения информации")
		return
	}

	var sb strings.Builder
	sb.WriteString("Ваши позиции:\n\n")
	for _, p := range positions {
		sb.WriteString(fmt.Sprintf("*%s*\n", p.Symbol))
		sb.WriteString(fmt.Sprintf("   Количество: %s\n", FormatPrice(p.HeldAmount)))
		sb.WriteString(fmt.Sprintf("   Потрачено: %.2f USD\n", p.TotalSpent))
		sb.WriteString(fmt.Sprintf("   Средняя цена: %s\n", FormatPrice(p.AvgPrice)))
		if p.HasPrice {
			sb.WriteString(fmt.Sprintf("   Текущая цена: %s\n", FormatPrice(p.CurrentPrice)))
			sb.WriteString(fmt.Sprintf("   Текущая стоимость: %.2f USD\n\n", p.CurrentValue))
		} else {
			sb.WriteString("   Текущая цена: нет данных\n\n")
		}
	}
	b.reply(msg.Chat.ID, sb.String())
}

// cmdChart отправляет диаграмму стоимости позиций
func (b *Bot) cmdChart(ctx context.Context, msg *tgbotapi.Message) {
	positions, err := b.svc.PositionsByUser(ctx, msg.From.ID)
	if err != nil {
		logrus.WithError(err).Warn("positions failed")
		b.reply(msg.Chat.ID, "Не получилось посчитать позиции, попробуйте позже")
		return
	}

	png, err := RenderValueChart(positions)
	if err != nil {
		b.reply(msg.Chat.ID, "Нет позиций с известной ценой для диаграммы")
		return
	}

	photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  "portfolio.png",
		Bytes: png,
	})
	if _, err := b.api.Send(photo); err != nil {
		logrus.WithError(err).Warn("send photo failed")
	}
}

// cmdClear удаляет все транзакции пользователя
func (b *Bot) cmdClear(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.txs.DeleteAllByUser(ctx, msg.From.ID); err != nil {
		logrus.WithError(err).Warn("clear failed")
		b.reply(msg.Chat.ID, "Не получилось удалить транзакции, попробуйте позже")
		return
	}
	b.reply(msg.Chat.ID, "Транзакции удалены")
}

// handleText создает транзакцию из сообщения по шаблону
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	tx, err := ParseTransaction(msg.Text)
	if err != nil {
		b.reply(msg.Chat.ID, "Не удалось разобрать транзакцию ("+err.Error()+")\nФормат: `2024-12-03 BTC 73000 0.1`")
		return
	}
	tx.UserID = msg.From.ID

	id, err := b.txs.CreateTransaction(ctx, tx)
	if err != nil {
		logrus.WithError(err).Warn("create transaction failed")
		b.reply(msg.Chat.ID, "Не получилось сохранить транзакцию, попробуйте позже")
		return
	}

	confirm := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
		"Актив: %s\nЦена: %s\nКоличество: %s",
		tx.AssetSymbol, FormatPrice(tx.Price), FormatPrice(tx.Amount)))
	confirm.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Удалить транзакцию",
				fmt.Sprintf("%s%d", deleteActionPrefix, id)),
		),
	)
	if _, err := b.api.Send(confirm); err != nil {
		logrus.WithError(err).Warn("send message failed")
	}

	// Убираем исходное сообщение, подтверждение его заменяет
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		logrus.WithError(err).Debug("delete source message failed")
	}
}

// handleDocument импортирует транзакции из csv файла
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	content, err := b.downloadDocument(ctx, msg.Document.FileID)
	if err != nil {
		logrus.WithError(err).Warn("document download failed")
		b.reply(msg.Chat.ID, "Не получилось скачать файл, попробуйте позже")
		return
	}

	txs, rowErrs := ParseCSV(content)
	for i := range txs {
		txs[i].UserID = msg.From.ID
	}

	if len(txs) > 0 {
		if _, err := b.txs.CreateTransactions(ctx, txs); err != nil {
			logrus.WithError(err).Warn("batch create failed")
			b.reply(msg.Chat.ID, "Не получилось сохранить транзакции, попробуйте позже")
			return
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Создано транзакций: %d", len(txs)))
	if len(rowErrs) > 0 {
		sb.WriteString(fmt.Sprintf("\nПропущено строк: %d", len(rowErrs)))
		for _, re := range rowErrs {
			sb.WriteString(fmt.Sprintf("\n  строка %d: %v", re.Line, re.Err))
		}
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) downloadDocument(ctx context.Context, fileID string) (string, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("file download http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// handleCallback обрабатывает кнопку удаления транзакции. Чужая транзакция
// молча игнорируется: кнопка доступна только из собственного сообщения.
func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			logrus.WithError(err).Debug("answer callback failed")
		}
	}()

	if !strings.HasPrefix(cq.Data, deleteActionPrefix) {
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(cq.Data, deleteActionPrefix), 10, 64)
	if err != nil {
		logrus.WithField("data", cq.Data).Warn("bad callback data")
		return
	}

	owned, err := b.txs.CheckOwnership(ctx, id, cq.From.ID)
	if err != nil {
		logrus.WithError(err).Warn("ownership check failed")
		return
	}
	if owned {
		if err := b.txs.DeleteTransaction(ctx, id); err != nil {
			logrus.WithError(err).WithField("transaction_id", id).Warn("delete transaction failed")
			return
		}
	}

	if cq.Message != nil {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)); err != nil {
			logrus.WithError(err).Debug("delete message failed")
		}
	}
}
