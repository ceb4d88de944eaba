package wizard

// Author identifies who produced a transcript entry.
type Author string

const (
	AuthorUser   Author = "user"
	AuthorSystem Author = "system"
)

// Message is one transcript entry in a wizard conversation.
type Message struct {
	ID      string `json:"id"`
	Author  Author `json:"author"`
	Content string `json:"content"`
}
