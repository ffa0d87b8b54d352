package telegram

type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaDocument  MediaKind = "document"
	MediaAudio     MediaKind = "audio"
	MediaVideo     MediaKind = "video"
	MediaVoice     MediaKind = "voice"
	MediaVideoNote MediaKind = "video_note"
	MediaAnimation MediaKind = "animation"
	MediaSticker   MediaKind = "sticker"
	MediaChatPhoto MediaKind = "new_chat_photo"
)

// FileInfo is the decoded location of a downloadable file.
type FileInfo struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	DCID         int    `json:"dc_id,omitempty"`
}

// Media is implemented by every downloadable attachment variant.
type Media interface {
	Kind() MediaKind
	File() FileInfo
}

type Photo struct {
	FileInfo
	Width, Height int
}

type Document struct {
	FileInfo
	FileName string
	MimeType string
}

type Audio struct {
	FileInfo
	Duration  int
	Title     string
	Performer string
	MimeType  string
}

type Video struct {
	FileInfo
	Duration      int
	Width, Height int
	MimeType      string
}

type Voice struct {
	FileInfo
	Duration int
	MimeType string
}

type VideoNote struct {
	FileInfo
	Duration int
	Length   int
}

type Animation struct {
	FileInfo
	Duration      int
	Width, Height int
	FileName      string
}

type Sticker struct {
	FileInfo
	Emoji    string
	SetName  string
	Animated bool
}

// ChatPhoto is the media of a "new chat photo" service message.
type ChatPhoto struct {
	FileInfo
}

func (*Photo) Kind() MediaKind     { return MediaPhoto }
func (*Document) Kind() MediaKind  { return MediaDocument }
func (*Audio) Kind() MediaKind     { return MediaAudio }
func (*Video) Kind() MediaKind     { return MediaVideo }
func (*Voice) Kind() MediaKind     { return MediaVoice }
func (*VideoNote) Kind() MediaKind { return MediaVideoNote }
func (*Animation) Kind() MediaKind { return MediaAnimation }
func (*Sticker) Kind() MediaKind   { return MediaSticker }
func (*ChatPhoto) Kind() MediaKind { return MediaChatPhoto }

func (m *Photo) File() FileInfo     { return m.FileInfo }
func (m *Document) File() FileInfo  { return m.FileInfo }
func (m *Audio) File() FileInfo     { return m.FileInfo }
func (m *Video) File() FileInfo     { return m.FileInfo }
func (m *Voice) File() FileInfo     { return m.FileInfo }
func (m *VideoNote) File() FileInfo { return m.FileInfo }
func (m *Animation) File() FileInfo { return m.FileInfo }
func (m *Sticker) File() FileInfo   { return m.FileInfo }
func (m *ChatPhoto) File() FileInfo { return m.FileInfo }
