package service

import (
	"bizbox_backend/internal/model"
	"bizbox_backend/internal/repository"
	"bizbox_backend/internal/testutil"
	"context"
	"strconv"
	"sync"
	"testing"

	"gorm.io/gorm"
)

// cbtFixture is a 2024 MidTerm test with one Math subject:
// Q1 (mark 2, correct "4") and Q2 (mark 3, correct "Paris").
type cbtFixture struct {
	db      *gorm.DB
	repo    *repository.CBTRepository
	catalog *CatalogService
	org     *model.Organization
	user    *model.User

	test                      *model.Test
	math                      *model.Subject
	q1, q2                    *model.Question
	four, five, paris, london *model.Answer
}

func newCBTFixture(t *testing.T) *cbtFixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewCBTRepository(db)
	f := &cbtFixture{
		db:      db,
		repo:    repo,
		catalog: NewCatalogService(repo, nil),
	}
	f.org = testutil.CreateOrganization(t, db, "acme")
	f.user = testutil.CreateUser(t, db, "learner@acme.test", model.Learner, f.org.ID)

	year, err := f.catalog.CreateYear(ctx, CreateYearRequest{Year: 2024})
	if err != nil {
		t.Fatalf("CreateYear: %v", err)
	}
	midTerm := f.testType(t, "MidTerm")

	f.four = f.answer(t, "4")
	f.five = f.answer(t, "5")
	f.paris = f.answer(t, "Paris")
	f.london = f.answer(t, "London")

	f.q1 = f.question(t, "2+2", 2, f.four, f.five)
	f.q2 = f.question(t, "Capital of France", 3, f.paris, f.london)

	f.math, err = f.catalog.CreateSubject(ctx, CreateSubjectRequest{
		Name:        "Math",
		Duration:    30,
		QuestionIDs: []uint{f.q1.ID, f.q2.ID},
	})
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}

	f.test, err = f.catalog.CreateTest(ctx, f.org.ID, CreateTestRequest{
		YearID:     year.ID,
		TestTypeID: midTerm.ID,
		TimeLimit:  60,
		TotalMark:  5,
		SubjectIDs: []uint{f.math.ID},
	})
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	return f
}

func (f *cbtFixture) testType(t *testing.T, name string) *model.TestType {
	t.Helper()
	types, err := f.catalog.ListTestTypes(context.Background())
	if err != nil {
		t.Fatalf("ListTestTypes: %v", err)
	}
	for i := range types {
		if types[i].Name == name {
			return &types[i]
		}
	}
	t.Fatalf("test type %q not seeded", name)
	return nil
}

func (f *cbtFixture) answer(t *testing.T, text string) *model.Answer {
	t.Helper()
	a, err := f.catalog.CreateAnswer(context.Background(), CreateAnswerRequest{Text: text})
	if err != nil {
		t.Fatalf("CreateAnswer: %v", err)
	}
	return a
}

// question creates a question whose first answer is the correct one.
func (f *cbtFixture) question(t *testing.T, text string, mark int, answers ...*model.Answer) *model.Question {
	t.Helper()
	ids := make([]uint, len(answers))
	for i, a := range answers {
		ids[i] = a.ID
	}
	correct := answers[0].ID
	q, err := f.catalog.CreateQuestion(context.Background(), CreateQuestionRequest{
		Text:            text,
		QuestionMark:    &mark,
		AnswerIDs:       ids,
		CorrectAnswerID: &correct,
	})
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	return q
}

func (f *cbtFixture) grading(events EventPublisher) *GradingService {
	return NewGradingService(f.db, f.repo, repository.NewTestResultRepository(f.db), events)
}

type published struct {
	topic string
	event Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, event: event})
	return nil
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func uintPtr(v uint) *uint { return &v }

func createLearner(t *testing.T, f *cbtFixture, email string) *model.User {
	t.Helper()
	return testutil.CreateUser(t, f.db, email, model.Learner, f.org.ID)
}

func uintString(v uint) string { return strconv.FormatUint(uint64(v), 10) }
