package telegram

// ListenerType is the closed set of update classes a listener can wait on.
type ListenerType int

const (
	ListenerMessage ListenerType = iota
	ListenerEditedMessage
	ListenerCallbackQuery
	ListenerInlineQuery
	ListenerChosenInlineResult
)

var listenerTypes = []ListenerType{
	ListenerMessage,
	ListenerEditedMessage,
	ListenerCallbackQuery,
	ListenerInlineQuery,
	ListenerChosenInlineResult,
}

// ListenerTypes returns every kind in declaration order.
func ListenerTypes() []ListenerType {
	out := make([]ListenerType, len(listenerTypes))
	copy(out, listenerTypes)
	return out
}

func (t ListenerType) String() string {
	switch t {
	case ListenerMessage:
		return "message"
	case ListenerEditedMessage:
		return "edited_message"
	case ListenerCallbackQuery:
		return "callback_query"
	case ListenerInlineQuery:
		return "inline_query"
	case ListenerChosenInlineResult:
		return "chosen_inline_result"
	default:
		return "unknown"
	}
}

func (t ListenerType) valid() bool {
	return t >= ListenerMessage && t <= ListenerChosenInlineResult
}

func ParseListenerType(s string) (ListenerType, bool) {
	for _, t := range listenerTypes {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// Event is a decoded update handed to the dispatcher by a transport.
type Event interface {
	Type() ListenerType
	Address() Address
}

type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID       int64    `json:"id"`
	Type     ChatType `json:"type,omitempty"`
	Title    string   `json:"title,omitempty"`
	Username string   `json:"username,omitempty"`
}

type Message struct {
	ID               int32  `json:"id"`
	Chat             *Chat  `json:"chat,omitempty"`
	From             *User  `json:"from,omitempty"`
	Text             string `json:"text,omitempty"`
	Date             int64  `json:"date,omitempty"`
	ReplyToMessageID int32  `json:"reply_to_message_id,omitempty"`
	Edited           bool   `json:"edited,omitempty"`
	Outgoing         bool   `json:"outgoing,omitempty"`
	// Attachment holds at most one media variant, see Media.
	Attachment Media `json:"-"`
}

func (m *Message) Type() ListenerType {
	if m.Edited {
		return ListenerEditedMessage
	}
	return ListenerMessage
}

func (m *Message) Address() Address {
	addr := Address{MessageID: m.ID}
	if m.Chat != nil {
		addr.ChatID = m.Chat.ID
	}
	if m.From != nil {
		addr.FromUserID = m.From.ID
	}
	return addr
}

func (m *Message) ChatID() int64 {
	if m.Chat == nil {
		return 0
	}
	return m.Chat.ID
}

func (m *Message) SenderID() int64 {
	if m.From == nil {
		return 0
	}
	return m.From.ID
}

func (m *Message) IsPrivate() bool { return m.Chat != nil && m.Chat.Type == ChatPrivate }
func (m *Message) IsReply() bool   { return m.ReplyToMessageID != 0 }

// Media returns the message's media variant, or false when it carries none.
func (m *Message) Media() (Media, bool) {
	if m.Attachment == nil {
		return nil, false
	}
	return m.Attachment, true
}

type CallbackQuery struct {
	ID              string   `json:"id"`
	From            *User    `json:"from,omitempty"`
	Message         *Message `json:"message,omitempty"`
	InlineMessageID string   `json:"inline_message_id,omitempty"`
	Data            string   `json:"data,omitempty"`
}

func (*CallbackQuery) Type() ListenerType { return ListenerCallbackQuery }

func (q *CallbackQuery) Address() Address {
	addr := Address{InlineMessageID: q.InlineMessageID}
	if q.From != nil {
		addr.FromUserID = q.From.ID
	}
	if q.Message != nil {
		addr.MessageID = q.Message.ID
		addr.ChatID = q.Message.ChatID()
	}
	return addr
}

type InlineQuery struct {
	ID     string `json:"id"`
	From   *User  `json:"from,omitempty"`
	Query  string `json:"query,omitempty"`
	Offset string `json:"offset,omitempty"`
}

func (*InlineQuery) Type() ListenerType { return ListenerInlineQuery }

func (q *InlineQuery) Address() Address {
	if q.From == nil {
		return Address{}
	}
	return Address{FromUserID: q.From.ID}
}

type ChosenInlineResult struct {
	ResultID        string `json:"result_id"`
	From            *User  `json:"from,omitempty"`
	InlineMessageID string `json:"inline_message_id,omitempty"`
	Query           string `json:"query,omitempty"`
}

func (*ChosenInlineResult) Type() ListenerType { return ListenerChosenInlineResult }

func (r *ChosenInlineResult) Address() Address {
	addr := Address{InlineMessageID: r.InlineMessageID}
	if r.From != nil {
		addr.FromUserID = r.From.ID
	}
	return addr
}
