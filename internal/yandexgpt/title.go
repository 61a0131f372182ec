package yandexgpt

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const (
	titleTemperature = 0.7
	titleMaxTokens   = 50

	// FallbackTitle is used whenever title generation fails for any reason.
	FallbackTitle = "Новый интересный диалог"

	titleSystemPrompt = "Ты должен создать короткое название для диалога из трех слов, основываясь на сообщении пользователя и ответе ассистента. Название должно отражать суть разговора. Используй существительные и прилагательные. Ответ - только три слова через пробел."
)

// SuggestTitle asks the model for a three-word conversation title based
// on the opening user/assistant exchange. It never returns an error:
// any failure degrades silently to FallbackTitle.
func (c *Client) SuggestTitle(ctx context.Context, apiKey, userMessage, assistantMessage string) string {
	messages := []Message{
		{Role: "system", Text: titleSystemPrompt},
		{
			Role: "user",
			Text: fmt.Sprintf("Создай название диалога из трех слов, основываясь на этом разговоре:\nПользователь: %s\nАссистент: %s", userMessage, assistantMessage),
		},
	}

	title, err := c.complete(ctx, apiKey, messages, titleTemperature, titleMaxTokens)
	if err != nil {
		log.Printf("WARN [yandexgpt] SuggestTitle: falling back to default title: %v", err)
		return FallbackTitle
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return FallbackTitle
	}
	return title
}
