package web

import (
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	"github.com/learnflow/pystudio/internal/studio"
)

// sessionCookie names the cookie holding a browser's session id.
const sessionCookie = "pystudio_session"

// session is one browser's editor and conversation. Both live only in memory.
type session struct {
	mu     sync.Mutex
	editor studio.EditorState
	chat   studio.ChatState

	// turn serializes chat turns, which hold the gateway call.
	turn sync.Mutex
}

func newSession(userID string) *session {
	return &session{
		editor: studio.NewEditorState(),
		chat:   studio.NewChatState(userID),
	}
}

// snapshot returns copies of both states.
func (s *session) snapshot() (studio.EditorState, studio.ChatState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor, s.chat
}

func (s *session) setEditor(e studio.EditorState) {
	s.mu.Lock()
	s.editor = e
	s.mu.Unlock()
}

func (s *session) setChat(c studio.ChatState) {
	s.mu.Lock()
	s.chat = c
	s.mu.Unlock()
}

// chatTurn applies fn to the current conversation and stores the result.
// Turns run one at a time, so concurrent posts from one browser all land.
func (s *session) chatTurn(fn func(studio.ChatState) studio.ChatState) studio.ChatState {
	s.turn.Lock()
	defer s.turn.Unlock()

	_, conv := s.snapshot()
	conv = fn(conv)
	s.setChat(conv)
	return conv
}

// sessionStore keeps the most recently used sessions. An evicted session
// starts over with the default code and a fresh greeting.
type sessionStore struct {
	cache  *lru.Cache[string, *session]
	userID string
}

func newSessionStore(size int, userID string) (*sessionStore, error) {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, *session](size)
	if err != nil {
		return nil, err
	}
	return &sessionStore{cache: cache, userID: userID}, nil
}

// lookup returns the session named by the request cookie, if it is still cached.
func (s *sessionStore) lookup(r *http.Request) (*session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return s.cache.Get(c.Value)
}

// get returns the request's session, creating one and setting the cookie when needed.
func (s *sessionStore) get(w http.ResponseWriter, r *http.Request) *session {
	if sess, ok := s.lookup(r); ok {
		return sess
	}

	id := ulid.Make().String()
	sess := newSession(s.userID)
	s.cache.Add(id, sess)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (s *sessionStore) len() int {
	return s.cache.Len()
}
