package bot

import (
	"fmt"
	"time"

	"gembot/internal/quota"
)

const (
	msgEmptyChatPrompt  = "Send a prompt after the command, for example: /chat tell me a joke"
	msgEmptyImagePrompt = "Send a description after the command, for example: /img a red fox in the snow"
	msgRateLimited      = "The model is busy right now. Please try again shortly."
	msgGenericFailure   = "Something went wrong while generating. Please try again."
	msgEmptyReply       = "The model returned an empty reply. Try rephrasing your prompt."
	msgNoImage          = "The model declined to produce an image for that prompt. Try a different description."
	msgUnknownText      = "I respond to commands. Use /chat <prompt> to talk to me, or /start for help."
)

func msgGreeting(imageEnabled bool) string {
	s := "Hi! I forward your prompts to Gemini.\n\n" +
		"/chat <prompt> - generate a text reply\n"
	if imageEnabled {
		s += "/img [W:H] <description> - generate an image\n"
	}
	s += "/usage - show your remaining daily quota"
	return s
}

func msgPromptTooLong(max int) string {
	return fmt.Sprintf("That prompt is too long. Keep it under %d characters.", max)
}

func msgQuotaExceeded(used, limit int, now time.Time) string {
	reset := quota.NextReset(now)
	return fmt.Sprintf("Daily quota reached: %d/%d tokens used. It resets at %s.",
		used, limit, reset.Format("2006-01-02 15:04 UTC"))
}

func msgUsage(used, limit int, now time.Time) string {
	reset := quota.NextReset(now)
	return fmt.Sprintf("You have used %d of %d tokens today. The counter resets at %s.",
		used, limit, reset.Format("2006-01-02 15:04 UTC"))
}
