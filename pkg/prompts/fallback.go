package prompts

import (
	"fmt"
	"math/rand"
)

// Canned replies used when the dialog model is unavailable. Child-friendly,
// in the bot's working language.
var fallbackReplies = []string{
	"Интересный вопрос! Давай подумаем об этом вместе.",
	"Хм, это хорошая тема для обсуждения!",
	"Отличный вопрос! Что ты думаешь об этом?",
	"Давай разберем это пошагово.",
	"Это важная тема! Расскажи, что ты уже знаешь об этом?",
}

var rateLimitReplies = []string{
	"🚦 Слишком много вопросов! Подожди немного и попробуй снова.",
	"⏳ Я получил слишком много запросов. Давай подождем минуту!",
	"🔄 Сейчас у меня много работы. Попробуй через минуту!",
}

var genericErrorReplies = []string{
	"😔 Извини, у меня возникла проблема с обработкой твоего сообщения. Попробуй еще раз или напиши что-то другое!",
	"🤷‍♂️ Что-то пошло не так. Попробуй переформулировать вопрос!",
	"😅 Упс! Попробуй задать вопрос по-другому!",
}

// FallbackReply returns an apology reply for a failed generation. When a
// topic is known the reply stays on it.
func FallbackReply(topic *string) string {
	if topic != nil && *topic != "" {
		return fmt.Sprintf("Отличный вопрос о %s! Давай обсудим это подробнее. Что именно тебя интересует?", *topic)
	}
	return fallbackReplies[rand.Intn(len(fallbackReplies))]
}

// RateLimitReply returns the "please wait" wording for rate-limit rejections.
func RateLimitReply() string {
	return rateLimitReplies[rand.Intn(len(rateLimitReplies))]
}

// GenericErrorReply covers failures with no more specific wording.
func GenericErrorReply() string {
	return genericErrorReplies[rand.Intn(len(genericErrorReplies))]
}
