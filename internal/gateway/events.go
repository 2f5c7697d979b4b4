package gateway

import "github.com/bwmarrin/discordgo"

// Ready — сессия аутентифицирована и готова принимать события.
type Ready struct {
	SessionID string
	UserID    string
	Username  string
	Guilds    int
}

// Message — входящее сообщение в канале.
type Message struct {
	ID         string
	ChannelID  string
	GuildID    string
	AuthorID   string
	AuthorName string
	Content    string
	// автор — бот (в том числе мы сами)
	FromBot bool
	// автор — этот же бот
	Self bool
}

func readyFrom(r *discordgo.Ready) Ready {
	out := Ready{SessionID: r.SessionID, Guilds: len(r.Guilds)}
	if r.User != nil {
		out.UserID = r.User.ID
		out.Username = r.User.Username
	}
	return out
}

func messageFrom(m *discordgo.MessageCreate, selfID string) Message {
	if m == nil || m.Message == nil {
		return Message{}
	}
	out := Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorName = m.Author.Username
		out.FromBot = m.Author.Bot
		out.Self = selfID != "" && m.Author.ID == selfID
	}
	return out
}
