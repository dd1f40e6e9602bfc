package auth

import (
	"time"

	"travellog/config"
	"travellog/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// The cookie only carries the token, the session itself lives in the sessions table
const sessionTokenKey = "session_token"

type Session struct {
	sessions.Session
}

func LoadSession(c *gin.Context) *Session {
	return &Session{
		Session: sessions.Default(c),
	}
}

func MaxAge() time.Duration {
	return time.Duration(config.SESSION_MAX_AGE_DAYS) * 24 * time.Hour
}

func (s *Session) Token() string {
	token, _ := s.Get(sessionTokenKey).(string)
	return token
}

// LoginUser creates a database session for the user and points the cookie to it
func (s *Session) LoginUser(userID string) (models.Session, error) {
	dbSession, err := models.SessionCreate(userID, MaxAge())
	if err != nil {
		return dbSession, err
	}
	s.Set(sessionTokenKey, dbSession.SessionToken)
	s.Options(sessions.Options{Path: "/", MaxAge: int(MaxAge().Seconds()), HttpOnly: true})
	return dbSession, s.Save()
}

func (s *Session) LogoutUser() error {
	var err error
	if token := s.Token(); token != "" {
		err = models.SessionDelete(token)
	}
	s.Delete(sessionTokenKey)
	s.Clear()
	s.Options(sessions.Options{Path: "/", MaxAge: -1})
	if saveErr := s.Save(); err == nil {
		err = saveErr
	}
	return err
}

// User returns the signed in user, ok is false for missing or expired sessions
func (s *Session) User() (user models.User, ok bool) {
	dbSession, ok := models.SessionGet(s.Token())
	if !ok {
		return
	}
	return dbSession.User, true
}
