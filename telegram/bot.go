package telegram

import (
	"fmt"
	"log"
	"strings"

	"evcp/entity"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// TgBot pushes security events and fatal errors to subscribed operators.
type TgBot struct {
	api         *tgbotapi.BotAPI
	subscribers map[int64]bool
	event       chan MessageContent
	send        chan MessageContent
}

type MessageContent struct {
	ChatID int64
	Text   string
}

func NewBot(apiKey string) (*TgBot, error) {
	tgBot := &TgBot{
		subscribers: make(map[int64]bool),
		event:       make(chan MessageContent, 100),
		send:        make(chan MessageContent, 100),
	}
	api, err := tgbotapi.NewBotAPI(apiKey)
	if err != nil {
		return nil, err
	}
	tgBot.api = api
	return tgBot, nil
}

func (b *TgBot) Start() {
	go b.sendPump()
	go b.eventPump()
	go b.updatesPump()
}

func (b *TgBot) updatesPump() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		log.Printf("bot: error getting updates: %v", err)
		return
	}
	for update := range updates {
		if update.Message == nil {
			continue
		}
		if !update.Message.IsCommand() {
			continue
		}
		switch update.Message.Command() {
		case "start":
			b.subscribers[update.Message.Chat.ID] = true
			msg := fmt.Sprintf("Hello *%v*, you are now subscribed to station alerts", update.Message.From.UserName)
			b.send <- MessageContent{ChatID: update.Message.Chat.ID, Text: msg}
		case "stop":
			delete(b.subscribers, update.Message.Chat.ID)
			b.send <- MessageContent{ChatID: update.Message.Chat.ID, Text: "Your subscription has been removed"}
		case "status":
			msg := fmt.Sprintf("Active subscriptions: %v", len(b.subscribers))
			b.send <- MessageContent{ChatID: update.Message.Chat.ID, Text: msg}
		}
	}
}

func (b *TgBot) eventPump() {
	for {
		if event, ok := <-b.event; ok {
			for chatId := range b.subscribers {
				b.sendMessage(chatId, event.Text)
			}
		}
	}
}

func (b *TgBot) sendPump() {
	for {
		if event, ok := <-b.send; ok {
			b.sendMessage(event.ChatID, event.Text)
		}
	}
}

func (b *TgBot) sendMessage(id int64, text string) {
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = "MarkdownV2"
	_, err := b.api.Send(msg)
	if err != nil {
		msg = tgbotapi.NewMessage(id, fmt.Sprintf("Error: %v", err))
		_, err = b.api.Send(msg)
		if err != nil {
			log.Printf("bot: error sending message: %v", err)
		}
	}
}

// OnError implements errorlistener.Notifier.
func (b *TgBot) OnError(data *entity.ErrorData) {
	if data.Severity > entity.SeverityAlert {
		return
	}
	msg := fmt.Sprintf("*%v*: `%v`\n", sanitize(data.Origin), sanitize(data.Type))
	if data.SubType != "" {
		msg += fmt.Sprintf("Sub type: %v\n", sanitize(data.SubType))
	}
	msg += fmt.Sprintf("Severity: %v\n", data.Severity)
	msg += fmt.Sprintf("%v\n", sanitize(data.Message))
	b.event <- MessageContent{Text: msg}
}

func (b *TgBot) OnSecurityEvent(eventType, techInfo string) {
	msg := fmt.Sprintf("Security event: `%v`\n", sanitize(eventType))
	if techInfo != "" {
		msg += fmt.Sprintf("%v\n", sanitize(techInfo))
	}
	b.event <- MessageContent{Text: msg}
}

func sanitize(input string) string {
	reservedChars := "\\`*_{}[]()#+-.!|"
	sanitized := ""
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized += "\\" + string(char)
		} else {
			sanitized += string(char)
		}
	}
	return sanitized
}
