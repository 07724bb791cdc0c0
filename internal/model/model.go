package model

import "time"

// StoredModel is an uploaded 3D model and where its bytes live.
// Exactly one content location is populated: Content (inline) or StorageKey
// (side store). External models registered by URL carry neither.
type StoredModel struct {
	ID          string `json:"id"`
	TelegramID  string `json:"telegram_id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Content     []byte `json:"-"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
	StorageKey  string `json:"-"`
	// ContentEncoding is EncodingBase64 for rows imported as base64 text.
	ContentEncoding string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

// EncodingBase64 marks content stored as base64 text.
const EncodingBase64 = "base64"

// Inline reports whether the content is kept in the metadata row.
func (m *StoredModel) Inline() bool {
	return len(m.Content) > 0
}

// FailureRecord marks an uploaded archive that could not be processed.
// Records never expire; the same file id is short-circuited until cleared.
type FailureRecord struct {
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	Error      string    `json:"error"`
	TelegramID string    `json:"telegram_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is a Telegram account that has talked to the bot or logged in.
type User struct {
	TelegramID string    `json:"telegram_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
}
