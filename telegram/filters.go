package telegram

import (
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

// Filter is a secondary gate checked only after a listener's identifier has
// matched the event. Every set condition must hold.
type Filter struct {
	Private, Group, Channel, Media, Command, Reply, FromBot, Blacklist bool
	Outgoing, Incoming, HasText                                       bool
	Users, Chats                                                      []int64
	MinLength, MaxLength                                              int
	MediaTypes                                                        []MediaKind
	DataPrefix                                                        string
	Func                                                              func(ev Event) bool

	program *vm.Program
	source  string
}

func (f Filter) IsPrivate() Filter                        { f.Private = true; return f }
func (f Filter) IsGroup() Filter                          { f.Group = true; return f }
func (f Filter) IsChannel() Filter                        { f.Channel = true; return f }
func (f Filter) IsMedia() Filter                          { f.Media = true; return f }
func (f Filter) IsCommand() Filter                        { f.Command = true; return f }
func (f Filter) IsReply() Filter                          { f.Reply = true; return f }
func (f Filter) IsFromBot() Filter                        { f.FromBot = true; return f }
func (f Filter) IsOutgoing() Filter                       { f.Outgoing = true; return f }
func (f Filter) IsIncoming() Filter                       { f.Incoming = true; return f }
func (f Filter) WithText() Filter                         { f.HasText = true; return f }
func (f Filter) FromUsers(users ...int64) Filter          { f.Users = users; return f }
func (f Filter) FromChats(chats ...int64) Filter          { f.Chats = chats; return f }
func (f Filter) MinLen(n int) Filter                      { f.MinLength = n; return f }
func (f Filter) MaxLen(n int) Filter                      { f.MaxLength = n; return f }
func (f Filter) WithMediaTypes(kinds ...MediaKind) Filter { f.MediaTypes = kinds; return f }
func (f Filter) WithDataPrefix(prefix string) Filter      { f.DataPrefix = prefix; return f }
func (f Filter) AsBlacklist() Filter                      { f.Blacklist = true; return f }
func (f Filter) Custom(fn func(ev Event) bool) Filter     { f.Func = fn; return f }

var (
	FilterPrivate  = Filter{Private: true}
	FilterGroup    = Filter{Group: true}
	FilterChannel  = Filter{Channel: true}
	FilterMedia    = Filter{Media: true}
	FilterCommand  = Filter{Command: true}
	FilterReply    = Filter{Reply: true}
	FilterFromBot  = Filter{FromBot: true}
	FilterOutgoing = Filter{Outgoing: true}
	FilterIncoming = Filter{Incoming: true}
	FilterText     = Filter{HasText: true}

	FilterUsers = func(users ...int64) Filter {
		return Filter{Users: users}
	}
	FilterChats = func(chats ...int64) Filter {
		return Filter{Chats: chats}
	}
	FilterFunc = func(fn func(ev Event) bool) Filter {
		return Filter{Func: fn}
	}
)

// ExprFilter compiles a boolean expression evaluated against the event, e.g.
//
//	text startsWith "/start" && chat_id == 42
//
// See exprEnv for the available names.
func ExprFilter(code string) (Filter, error) {
	program, err := expr.Compile(code, expr.Env(exprEnv(&Message{})), expr.AsBool())
	if err != nil {
		return Filter{}, errors.Wrapf(err, "compiling filter %q", code)
	}
	return Filter{program: program, source: code}, nil
}

func exprEnv(ev Event) map[string]any {
	addr := ev.Address()
	env := map[string]any{
		"type":              ev.Type().String(),
		"text":              eventText(ev),
		"data":              "",
		"chat_id":           addr.ChatID,
		"user_id":           addr.FromUserID,
		"message_id":        int(addr.MessageID),
		"inline_message_id": addr.InlineMessageID,
		"username":          "",
		"is_private":        false,
		"is_reply":          false,
		"is_bot":            false,
		"media":             "",
	}
	if u := eventSender(ev); u != nil {
		env["username"] = u.Username
		env["is_bot"] = u.IsBot
	}
	switch v := ev.(type) {
	case *Message:
		env["is_private"] = v.IsPrivate()
		env["is_reply"] = v.IsReply()
		if m, ok := v.Media(); ok {
			env["media"] = string(m.Kind())
		}
	case *CallbackQuery:
		env["data"] = v.Data
	}
	return env
}

func eventText(ev Event) string {
	switch v := ev.(type) {
	case *Message:
		return v.Text
	case *CallbackQuery:
		return v.Data
	case *InlineQuery:
		return v.Query
	case *ChosenInlineResult:
		return v.Query
	}
	return ""
}

func eventSender(ev Event) *User {
	switch v := ev.(type) {
	case *Message:
		return v.From
	case *CallbackQuery:
		return v.From
	case *InlineQuery:
		return v.From
	case *ChosenInlineResult:
		return v.From
	}
	return nil
}

// Check runs a single filter against ev.
func (f Filter) Check(ev Event) bool {
	msg, _ := ev.(*Message)
	if cb, ok := ev.(*CallbackQuery); ok && msg == nil {
		msg = cb.Message
	}

	if f.Private || f.Group || f.Channel {
		if msg == nil || msg.Chat == nil {
			return false
		}
		t := msg.Chat.Type
		if f.Private && t != ChatPrivate || f.Group && t != ChatGroup && t != ChatSupergroup || f.Channel && t != ChatChannel {
			return false
		}
	}

	if f.Media || len(f.MediaTypes) > 0 || f.Reply || f.Outgoing || f.Incoming {
		m, isMsg := ev.(*Message)
		if !isMsg {
			return false
		}
		media, has := m.Media()
		if f.Media && !has {
			return false
		}
		if len(f.MediaTypes) > 0 && (!has || !slices.Contains(f.MediaTypes, media.Kind())) {
			return false
		}
		if f.Reply && !m.IsReply() || f.Outgoing && !m.Outgoing || f.Incoming && m.Outgoing {
			return false
		}
	}

	text := eventText(ev)
	if f.Command && !strings.HasPrefix(text, "/") {
		return false
	}
	if f.HasText && text == "" {
		return false
	}
	if f.MinLength > 0 && len(text) < f.MinLength || f.MaxLength > 0 && len(text) > f.MaxLength {
		return false
	}
	if f.DataPrefix != "" {
		cb, ok := ev.(*CallbackQuery)
		if !ok || !strings.HasPrefix(cb.Data, f.DataPrefix) {
			return false
		}
	}

	if f.FromBot {
		if u := eventSender(ev); u == nil || !u.IsBot {
			return false
		}
	}

	if len(f.Users) > 0 || len(f.Chats) > 0 {
		addr := ev.Address()
		listed := slices.Contains(f.Users, addr.FromUserID) || slices.Contains(f.Chats, addr.ChatID)
		if listed == f.Blacklist {
			return false
		}
	}

	if f.Func != nil && !f.Func(ev) {
		return false
	}

	if f.program != nil {
		out, err := expr.Run(f.program, exprEnv(ev))
		if err != nil {
			return false
		}
		if ok, _ := out.(bool); !ok {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	if f.source != "" {
		return f.source
	}
	return "filter"
}

func runFilterChain(ev Event, filters []Filter) bool {
	for _, f := range filters {
		if !f.Check(ev) {
			return false
		}
	}
	return true
}
