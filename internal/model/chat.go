package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Chat 双人会话；ID 由排序后的参与者拼接而成，(participant_a, participant_b) 唯一
type Chat struct {
	ID            string     `gorm:"primaryKey;type:varchar(400)"`
	ParticipantA  string     `gorm:"type:varchar(64);uniqueIndex:idx_chat_pair,priority:1;not null"`
	ParticipantB  string     `gorm:"type:varchar(64);index:idx_chat_b;uniqueIndex:idx_chat_pair,priority:2;not null"`
	NameA         string     `gorm:"type:varchar(64)"`
	NameB         string     `gorm:"type:varchar(64)"`
	LastMessage   string     `gorm:"type:text"`
	LastMessageAt *time.Time `gorm:"index"`
	UnreadA       int64      `gorm:"not null;default:0"`
	UnreadB       int64      `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Chat) TableName() string { return "chats" }

// chatIDEscaper 转义分隔符，用户 ID 本身可以含 "_"
var chatIDEscaper = strings.NewReplacer("%", "%25", "_", "%5F")

// CanonicalChatID 排序后转义再拼接，CanonicalChatID(a, b) == CanonicalChatID(b, a)，
// 且不同的两人组合不会得到同一个 ID
func CanonicalChatID(a, b string) string {
	p := SortedPair(a, b)
	return chatIDEscaper.Replace(p[0]) + "_" + chatIDEscaper.Replace(p[1])
}

// SortedPair 返回字典序排序后的两个参与者
func SortedPair(a, b string) [2]string {
	pair := []string{a, b}
	sort.Strings(pair)
	return [2]string{pair[0], pair[1]}
}

// NewChat 以规范顺序构造会话
func NewChat(a, b, nameA, nameB string) *Chat {
	if b < a {
		a, b = b, a
		nameA, nameB = nameB, nameA
	}
	return &Chat{ID: CanonicalChatID(a, b), ParticipantA: a, ParticipantB: b, NameA: nameA, NameB: nameB}
}

func (c *Chat) Participants() []string { return []string{c.ParticipantA, c.ParticipantB} }

func (c *Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.ParticipantA == userID || c.ParticipantB == userID)
}

// Other 返回会话中的另一方
func (c *Chat) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// UnreadFor 某个参与者的未读数
func (c *Chat) UnreadFor(userID string) int64 {
	switch userID {
	case c.ParticipantA:
		return c.UnreadA
	case c.ParticipantB:
		return c.UnreadB
	}
	return 0
}

// NameOf 某个参与者的展示名
func (c *Chat) NameOf(userID string) string {
	switch userID {
	case c.ParticipantA:
		return c.NameA
	case c.ParticipantB:
		return c.NameB
	}
	return ""
}

// UnreadColumn 参与者对应的未读计数列
func (c *Chat) UnreadColumn(userID string) string {
	if userID == c.ParticipantA {
		return "unread_a"
	}
	return "unread_b"
}

type chatJSON struct {
	ID            string            `json:"id"`
	Participants  []string          `json:"participants"`
	DisplayNames  map[string]string `json:"display_names"`
	LastMessage   string            `json:"last_message"`
	LastMessageAt *time.Time        `json:"last_message_at,omitempty"`
	UnreadCount   map[string]int64  `json:"unread_count"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// MarshalJSON 对外暴露参与者数组与按用户的 map
func (c Chat) MarshalJSON() ([]byte, error) {
	return json.Marshal(chatJSON{
		ID:            c.ID,
		Participants:  c.Participants(),
		DisplayNames:  map[string]string{c.ParticipantA: c.NameA, c.ParticipantB: c.NameB},
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		UnreadCount:   map[string]int64{c.ParticipantA: c.UnreadA, c.ParticipantB: c.UnreadB},
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	})
}

// UnmarshalJSON 与 MarshalJSON 对称，客户端/测试解析快照时使用
func (c *Chat) UnmarshalJSON(data []byte) error {
	var v chatJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Chat{ID: v.ID, LastMessage: v.LastMessage, LastMessageAt: v.LastMessageAt, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
	if len(v.Participants) == 2 {
		c.ParticipantA, c.ParticipantB = v.Participants[0], v.Participants[1]
		c.NameA, c.NameB = v.DisplayNames[c.ParticipantA], v.DisplayNames[c.ParticipantB]
		c.UnreadA, c.UnreadB = v.UnreadCount[c.ParticipantA], v.UnreadCount[c.ParticipantB]
	}
	return nil
}
