package telegram

import (
	"os"
	"testing"

	"gembot/core/logger"
	"gembot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

func noopHandler(tele.Context) error { return nil }

func newPopulatedRegistry() *Registry {
	reg := NewRegistry()
	reg.RegisterCommand("/chat", commands.Command{
		Handler:     noopHandler,
		Description: "chat",
		Aliases:     []string{"ask"},
	})
	reg.RegisterCommand("/ping", commands.Command{
		Handler:     noopHandler,
		Description: "ping",
		AdminOnly:   true,
		Hidden:      true,
	})
	return reg
}

func TestLookupCommand(t *testing.T) {
	reg := newPopulatedRegistry()

	key, _, ok := reg.LookupCommand("/chat")
	if !ok || key != "/chat" {
		t.Fatalf("lookup /chat = %q, %v", key, ok)
	}

	key, _, ok = reg.LookupCommand("/chat tell me a joke")
	if !ok || key != "/chat" {
		t.Fatalf("lookup with payload = %q, %v; payload must not break resolution", key, ok)
	}

	key, _, ok = reg.LookupCommand("/ask something")
	if !ok || key != "/chat" {
		t.Fatalf("alias lookup = %q, %v; expected canonical /chat", key, ok)
	}

	if _, _, ok = reg.LookupCommand("/nope"); ok {
		t.Fatal("unexpected match for unregistered command")
	}
}

func TestRegisterCommandRejectsInvalid(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("chat", commands.Command{Handler: noopHandler, Description: "no slash"})
	reg.RegisterCommand("/nodesc", commands.Command{Handler: noopHandler})
	reg.RegisterCommand("/nohandler", commands.Command{Description: "x"})

	if n := len(reg.Commands()); n != 0 {
		t.Fatalf("registered %d invalid commands, expected 0", n)
	}
}

func TestListCommandsHidesAdminAndHidden(t *testing.T) {
	reg := newPopulatedRegistry()

	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "/chat" {
		t.Fatalf("visible = %v, expected only /chat", visible)
	}

	all := reg.ListCommands(false)
	if len(all) != 2 {
		t.Fatalf("all = %v, expected both commands", all)
	}
}
