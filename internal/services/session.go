package services

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/aihub/pdfqa-go/internal/knowledge"
)

// DefaultSessionID 客户端未携带会话标识时使用
const DefaultSessionID = "default"

// DocumentSession 一个会话当前生效的文档
// 块文本只在进程内保存，向量才是持久状态
type DocumentSession struct {
	DocumentID string
	Filename   string
	Chunks     []knowledge.Chunk
	UploadedAt time.Time
}

// ChunkText 按块序号取回原文，越界返回空
func (s *DocumentSession) ChunkText(index int) (string, bool) {
	if s == nil || index < 0 || index >= len(s.Chunks) {
		return "", false
	}
	return s.Chunks[index].Text, true
}

// SessionRegistry 会话注册表，每个会话一份独立上下文
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*DocumentSession
}

// NewSessionRegistry 创建会话注册表
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*DocumentSession),
	}
}

// Get 返回会话当前文档，没有则返回nil
func (r *SessionRegistry) Get(sessionID string) *DocumentSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[normalizeSessionID(sessionID)]
}

// Swap 替换会话文档并返回被替换的旧文档，便于调用方清理旧向量
func (r *SessionRegistry) Swap(sessionID string, session *DocumentSession) *DocumentSession {
	key := normalizeSessionID(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.sessions[key]
	r.sessions[key] = session
	return previous
}

// Clear 移除会话文档并返回它
func (r *SessionRegistry) Clear(sessionID string) *DocumentSession {
	key := normalizeSessionID(sessionID)
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.sessions[key]
	delete(r.sessions, key)
	return previous
}

// Count 活跃会话数
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func normalizeSessionID(sessionID string) string {
	if sessionID == "" {
		return DefaultSessionID
	}
	return sessionID
}

// NewDocumentID 生成文档标识，作为向量ID的前缀
func NewDocumentID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "doc-" + hex.EncodeToString([]byte(time.Now().Format("20060102150405")))
	}
	return "doc-" + hex.EncodeToString(buf)
}
