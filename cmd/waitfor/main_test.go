package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarnathcjd/waitfor/telegram"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("WAITFOR_TRANSPORT=telego\nWAITFOR_ASK_TIMEOUT=30s\n"), 0o600))
	t.Setenv("WAITFOR_BOT_TOKEN", "123:abc")

	cfg, err := loadConfig(dotenv)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Token)
	assert.Equal(t, "telego", cfg.Transport)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)

	_, err = loadConfig(filepath.Join(dir, "missing.env"))
	assert.NoError(t, err, "a missing dotenv file is fine")
}

const passing = `
name: smoke
settle: 20ms
listeners:
  - chat_id: 1
    expect_message_id: 2
events:
  - message: {chat_id: 1, user_id: 3, message_id: 2, text: hi}
`

func TestReplayCommand(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.yaml")
	require.NoError(t, os.WriteFile(ok, []byte(passing), 0o600))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("settle: 10ms\nlisteners:\n  - chat_id: 9\n    timeout: 5ms\n"), 0o600))

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := rootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--env-file", filepath.Join(dir, "none"), "--log-level", "disable"}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("replay", ok)
	require.NoError(t, err)
	assert.Contains(t, out, "scenario smoke")
	assert.Contains(t, out, "PASS listener-1")

	out, err = run("replay", ok, bad)
	assert.ErrorIs(t, err, errScenarioFailed)
	assert.Contains(t, out, "FAIL listener-1")
	assert.Contains(t, out, "expected matched, got timed_out")

	_, err = run("serve", "--transport", "carrier-pigeon")
	assert.Error(t, err)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	refs []int32
}

func (s *recordingSender) SendMessage(_ context.Context, chatID int64, text string, replyTo int32) (*telegram.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	s.refs = append(s.refs, replyTo)
	return &telegram.Message{ID: int32(1000 + len(s.sent)), Chat: &telegram.Chat{ID: chatID}, Text: text}, nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func message(id int32, text string) *telegram.Message {
	return &telegram.Message{
		ID:   id,
		Chat: &telegram.Chat{ID: 5, Type: telegram.ChatPrivate},
		From: &telegram.User{ID: 5},
		Text: text,
	}
}

func startDemo(t *testing.T) (*telegram.Client, *recordingSender) {
	sender := &recordingSender{}
	c, err := telegram.NewClient(telegram.ClientConfig{LogLevel: "disable", Sender: sender})
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	require.NoError(t, registerCommands(context.Background(), c, time.Second))
	return c, sender
}

func TestStartAsksForName(t *testing.T) {
	c, sender := startDemo(t)

	c.Dispatch(message(1, "/start"))
	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return c.Registry().Total() == 3 }, time.Second, time.Millisecond)

	c.Dispatch(message(2, "Ada"))
	require.Eventually(t, func() bool { return sender.count() == 2 }, time.Second, time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, []string{"Hi! What's your name?", "Nice to meet you, Ada!"}, sender.sent)
	assert.Equal(t, []int32{0, 2}, sender.refs)
}

func TestCancelStopsTheQuestion(t *testing.T) {
	c, sender := startDemo(t)

	c.Dispatch(message(1, "/cancel"))
	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, time.Millisecond)

	c.Dispatch(message(2, "/start"))
	require.Eventually(t, func() bool { return c.Registry().Total() == 3 }, time.Second, time.Millisecond)
	c.Dispatch(message(3, "/cancel"))
	require.Eventually(t, func() bool { return sender.count() == 3 }, time.Second, time.Millisecond)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, "Nothing to cancel.", sender.sent[0])
	assert.Equal(t, "Okay, never mind.", sender.sent[2])
}
