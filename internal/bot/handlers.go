// Package bot wires the user-facing command handlers: prompt validation,
// quota gating, provider calls, and reply delivery.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gembot/core/buildinfo"
	"gembot/core/logger"
	tg "gembot/core/telegram"
	"gembot/core/telegram/commands"
	tghelpers "gembot/core/telegram/helpers"
	"gembot/internal/gen"
	"gembot/internal/quota"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Ledger is the quota gate the handlers consult around every provider call.
type Ledger interface {
	CheckAllowance(ctx context.Context, userID int64, limit int) (quota.Allowance, error)
	Charge(ctx context.Context, userID int64, amount, limit int) (int, error)
}

// Provider generates text and images from prompts.
type Provider interface {
	Chat(ctx context.Context, prompt string) (string, error)
	Image(ctx context.Context, prompt, aspectRatio string) (gen.ImageResult, error)
}

// Options configures the handler set.
type Options struct {
	Ledger   Ledger
	Provider Provider

	DailyTokenLimit     int
	MaxPromptChars      int
	MaxImagePromptChars int

	ImageEnabled       bool
	DefaultAspectRatio string

	// Now overrides the wall clock in quota messages. Defaults to time.Now.
	Now func() time.Time

	startedAt time.Time
}

// Handlers owns the bot command implementations.
type Handlers struct {
	opts Options
}

// New builds the handler set.
func New(opts Options) *Handlers {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.startedAt = time.Now()
	return &Handlers{opts: opts}
}

// Register binds all commands and the text fallback onto the registry.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.handleStart,
		Description: "Greeting and usage help",
	})
	reg.RegisterCommand("/chat", commands.Command{
		Handler:     h.handleChat,
		Description: "Generate a text reply for a prompt",
		Aliases:     []string{"ask"},
	})
	if h.opts.ImageEnabled {
		reg.RegisterCommand("/img", commands.Command{
			Handler:     h.handleImage,
			Description: "Generate an image from a description",
			Aliases:     []string{"image"},
		})
	}
	reg.RegisterCommand("/usage", commands.Command{
		Handler:     h.handleUsage,
		Description: "Show today's token usage",
	})
	reg.RegisterCommand("/ping", commands.Command{
		Handler:     h.handlePing,
		Description: "Liveness check",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.SetTextFallback(h.handleUnknownText)
}

func (h *Handlers) handleStart(c tele.Context) error {
	return tghelpers.SendText(c, msgGreeting(h.opts.ImageEnabled))
}

func (h *Handlers) handleUnknownText(c tele.Context) error {
	return tghelpers.SendText(c, msgUnknownText)
}

func (h *Handlers) handlePing(c tele.Context) error {
	uptime := time.Since(h.opts.startedAt).Round(time.Second)
	return tghelpers.SendText(c, fmt.Sprintf("pong - %s, up %s", buildinfo.Version, uptime))
}

func (h *Handlers) handleUsage(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "usage")
	userID := senderID(c)

	allowance, err := h.opts.Ledger.CheckAllowance(ctx, userID, h.opts.DailyTokenLimit)
	if err != nil {
		_ = tghelpers.SendText(c, msgGenericFailure)
		return err
	}
	return tghelpers.SendText(c, msgUsage(allowance.Used, h.opts.DailyTokenLimit, h.opts.Now()))
}

func (h *Handlers) handleChat(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "chat")
	reply, err := h.processChat(ctx, senderID(c), promptFromText(c.Text()))
	if reply != "" {
		_ = tghelpers.SendText(c, reply)
	}
	return err
}

func (h *Handlers) handleImage(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "img")
	res, reply, err := h.processImage(ctx, senderID(c), promptFromText(c.Text()))
	if res != nil {
		_ = tghelpers.SendPhoto(c, res.Bytes, res.Caption)
	} else if reply != "" {
		_ = tghelpers.SendText(c, reply)
	}
	return err
}

// processChat runs the full chat flow and returns the user-visible reply.
// A non-nil error means the underlying failure should surface in the handler
// summary; the reply is still suitable for sending.
func (h *Handlers) processChat(ctx context.Context, userID int64, prompt string) (string, error) {
	if prompt == "" {
		return msgEmptyChatPrompt, nil
	}
	if len(prompt) > h.opts.MaxPromptChars {
		return msgPromptTooLong(h.opts.MaxPromptChars), nil
	}

	allowance, err := h.opts.Ledger.CheckAllowance(ctx, userID, h.opts.DailyTokenLimit)
	if err != nil {
		return msgGenericFailure, err
	}
	if !allowance.Allowed {
		logger.Info(ctx, "bot", "quota.blocked",
			slog.String("status", "quota"),
			slog.Int64("user_id", userID),
			slog.Int("used", allowance.Used),
			slog.Int("limit", h.opts.DailyTokenLimit),
		)
		return msgQuotaExceeded(allowance.Used, h.opts.DailyTokenLimit, h.opts.Now()), nil
	}

	text, err := h.opts.Provider.Chat(ctx, prompt)
	if err != nil {
		if errors.Is(err, gen.ErrRateLimited) {
			return msgRateLimited, err
		}
		return msgGenericFailure, err
	}

	// Charge even for an empty reply: the amount is 0 but the rollover side
	// effect still applies.
	words := quota.WordCount(text)
	if _, err := h.opts.Ledger.Charge(ctx, userID, words, h.opts.DailyTokenLimit); err != nil {
		return msgGenericFailure, err
	}

	if text == "" {
		return msgEmptyReply, nil
	}
	return text, nil
}

// processImage runs the image flow. Exactly one of the result or the reply
// message is set on success paths; errors carry a reply as well.
func (h *Handlers) processImage(ctx context.Context, userID int64, raw string) (*gen.ImageResult, string, error) {
	prompt, ratio := splitAspectRatio(raw)
	if ratio == "" {
		ratio = h.opts.DefaultAspectRatio
	}

	if prompt == "" {
		return nil, msgEmptyImagePrompt, nil
	}
	if len(prompt) > h.opts.MaxImagePromptChars {
		return nil, msgPromptTooLong(h.opts.MaxImagePromptChars), nil
	}

	allowance, err := h.opts.Ledger.CheckAllowance(ctx, userID, h.opts.DailyTokenLimit)
	if err != nil {
		return nil, msgGenericFailure, err
	}
	if !allowance.Allowed {
		logger.Info(ctx, "bot", "quota.blocked",
			slog.String("status", "quota"),
			slog.Int64("user_id", userID),
			slog.Int("used", allowance.Used),
			slog.Int("limit", h.opts.DailyTokenLimit),
		)
		return nil, msgQuotaExceeded(allowance.Used, h.opts.DailyTokenLimit, h.opts.Now()), nil
	}

	res, err := h.opts.Provider.Image(ctx, prompt, ratio)
	if err != nil {
		if errors.Is(err, gen.ErrRateLimited) {
			return nil, msgRateLimited, err
		}
		if errors.Is(err, gen.ErrNoImage) {
			// Soft failure: the provider answered but produced nothing.
			return nil, msgNoImage, nil
		}
		return nil, msgGenericFailure, err
	}

	words := quota.WordCount(res.Caption)
	if _, err := h.opts.Ledger.Charge(ctx, userID, words, h.opts.DailyTokenLimit); err != nil {
		return nil, msgGenericFailure, err
	}

	return &res, "", nil
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}
