package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/util"
	"bizbox_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PracticeSession is a test assembled for taking. It never carries correct answers.
type PracticeSession struct {
	TestID        uint             `json:"testId"`
	Name          string           `json:"name"`
	TimeLimit     int              `json:"timeLimit"`
	Subjects      []SessionSubject `json:"subjects"`
	TotalQuestion int              `json:"totalQuestion"`
	TotalMark     int              `json:"totalMark"`
	TotalDuration int              `json:"totalDuration"`
}

type SessionSubject struct {
	ID        uint              `json:"id"`
	Name      string            `json:"name"`
	Duration  int               `json:"duration"`
	Questions []SessionQuestion `json:"questions"`
}

type SessionQuestion struct {
	ID           uint            `json:"id"`
	Text         string          `json:"text"`
	QuestionMark int             `json:"questionMark"`
	Required     bool            `json:"required"`
	Answers      []SessionAnswer `json:"answers"`
}

type SessionAnswer struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// AvailableTest is one entry of the test picker.
type AvailableTest struct {
	ID        uint             `json:"id"`
	Name      string           `json:"name"`
	Year      int              `json:"year"`
	TestType  string           `json:"testType"`
	TimeLimit int              `json:"timeLimit"`
	TotalMark int              `json:"totalMark"`
	Subjects  []SubjectSummary `json:"subjects"`
}

type SubjectSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

type PracticeService struct {
	Repo  *repository.CBTRepository
	Cache *SessionCache
}

func NewPracticeService(repo *repository.CBTRepository, cache *SessionCache) *PracticeService {
	return &PracticeService{Repo: repo, Cache: cache}
}

// BuildSession assembles the test for taking, restricted to subjectIDs when
// any are given. Ids that are not subjects of the test are ignored. A caller
// in an organization only sees that organization's tests.
func (s *PracticeService) BuildSession(ctx context.Context, orgID, testID uint, subjectIDs []uint) (*PracticeSession, error) {
	key := sessionKey(orgID, testID, subjectIDs)
	if cached := s.Cache.Get(ctx, key); cached != nil {
		return cached, nil
	}

	test, err := s.Repo.FindTestTree(ctx, testID)
	if err != nil {
		return nil, notFound(err, "test")
	}
	if !visibleTo(test, orgID) {
		return nil, fmt.Errorf("test: %w", util.ErrNotFound)
	}

	session := assembleSession(test, subjectIDs)
	s.Cache.Set(ctx, key, session)
	return session, nil
}

func assembleSession(test *model.Test, subjectIDs []uint) *PracticeSession {
	wanted := make(map[uint]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		wanted[id] = true
	}

	session := &PracticeSession{
		TestID:    test.ID,
		Name:      test.DisplayName(),
		TimeLimit: test.TimeLimit,
		Subjects:  []SessionSubject{},
	}
	for _, subject := range test.Subjects {
		if len(wanted) > 0 && !wanted[subject.ID] {
			continue
		}

		out := SessionSubject{
			ID:        subject.ID,
			Name:      subject.Name,
			Duration:  subject.Duration,
			Questions: make([]SessionQuestion, 0, len(subject.Questions)),
		}
		for _, q := range subject.Questions {
			answers := make([]SessionAnswer, 0, len(q.Answers))
			for _, a := range q.Answers {
				answers = append(answers, SessionAnswer{ID: a.ID, Text: a.Text})
			}
			out.Questions = append(out.Questions, SessionQuestion{
				ID:           q.ID,
				Text:         q.Text,
				QuestionMark: q.QuestionMark,
				Required:     q.Required,
				Answers:      answers,
			})
			session.TotalMark += q.QuestionMark
		}

		session.TotalQuestion += len(out.Questions)
		session.TotalDuration += subject.Duration
		session.Subjects = append(session.Subjects, out)
	}
	return session
}

// ListAvailableTests lists the organization's tests for the picker.
func (s *PracticeService) ListAvailableTests(ctx context.Context, filter repository.TestFilter) ([]AvailableTest, error) {
	tests, err := s.Repo.ListTests(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]AvailableTest, 0, len(tests))
	for i := range tests {
		t := &tests[i]
		item := AvailableTest{
			ID:        t.ID,
			Name:      t.DisplayName(),
			TimeLimit: t.TimeLimit,
			TotalMark: t.TotalMark,
			Subjects:  make([]SubjectSummary, 0, len(t.Subjects)),
		}
		if t.Year != nil {
			item.Year = t.Year.Year
		}
		if t.TestType != nil {
			item.TestType = t.TestType.Name
		}
		for _, subj := range t.Subjects {
			item.Subjects = append(item.Subjects, SubjectSummary{ID: subj.ID, Name: subj.Name, Duration: subj.Duration})
		}
		out = append(out, item)
	}
	return out, nil
}

// visibleTo reports whether a caller of orgID may take the test. Callers
// outside any organization (orgID 0) see every test, as in the picker.
func visibleTo(test *model.Test, orgID uint) bool {
	return orgID == 0 || test.OrganizationID == orgID
}

func sessionKey(orgID, testID uint, subjectIDs []uint) string {
	ids := uniqueIDs(subjectIDs)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%d:%d:%s", orgID, testID, strings.Join(parts, ","))
}

const (
	sessionKeyPrefix = "cbt:session:"
	sessionGenKey    = "cbt:session:gen"
)

// SessionCache keeps assembled sessions in Redis. Keys embed a generation
// counter, so bumping the counter retires every cached session at once.
// A nil cache or a nil client disables caching.
type SessionCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewSessionCache(rdb *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{Redis: rdb, TTL: ttl}
}

func (c *SessionCache) enabled() bool {
	return c != nil && c.Redis != nil && c.TTL > 0
}

func (c *SessionCache) fullKey(ctx context.Context, key string) (string, error) {
	gen, err := c.Redis.Get(ctx, sessionGenKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%s", sessionKeyPrefix, gen, key), nil
}

func (c *SessionCache) Get(ctx context.Context, key string) *PracticeSession {
	if !c.enabled() {
		return nil
	}
	full, err := c.fullKey(ctx, key)
	if err != nil {
		logger.Log.Warn("Session cache unavailable", zap.Error(err))
		return nil
	}
	raw, err := c.Redis.Get(ctx, full).Bytes()
	if err != nil {
		return nil
	}
	var session PracticeSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil
	}
	return &session
}

func (c *SessionCache) Set(ctx context.Context, key string, session *PracticeSession) {
	if !c.enabled() {
		return
	}
	full, err := c.fullKey(ctx, key)
	if err != nil {
		return
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := c.Redis.Set(ctx, full, raw, c.TTL).Err(); err != nil {
		logger.Log.Warn("Session cache write failed", zap.Error(err))
	}
}

func (c *SessionCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.Redis.Incr(ctx, sessionGenKey).Err(); err != nil {
		logger.Log.Warn("Session cache invalidation failed", zap.Error(err))
	}
}
