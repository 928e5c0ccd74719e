package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"mirs-coach-be/internal/constant"
	"mirs-coach-be/internal/dto"
	"mirs-coach-be/internal/entity"
	"mirs-coach-be/internal/pkg/usage"
	"mirs-coach-be/internal/repository/contract"
	"mirs-coach-be/internal/repository/memory"
	"mirs-coach-be/internal/repository/specification"
	"mirs-coach-be/internal/repository/unitofwork"
	"mirs-coach-be/pkg/coach"
	"mirs-coach-be/pkg/llm"
	"mirs-coach-be/pkg/mirs"
	"mirs-coach-be/pkg/rubric"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeStore struct {
	grades   map[uuid.UUID]*entity.Grade
	messages []*entity.ChatMessage
	events   []*entity.TurnEvent
}

type fakeUow struct {
	store *fakeStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) GradeRepository() contract.GradeRepository {
	return &fakeGradeRepo{store: u.store}
}

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}

func (u *fakeUow) TurnEventRepository() contract.TurnEventRepository {
	return &fakeTurnEventRepo{store: u.store}
}

type fakeFactory struct {
	store *fakeStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeGradeRepo struct {
	store *fakeStore
}

func (r *fakeGradeRepo) FindByScoreId(ctx context.Context, scoreId uuid.UUID) (*entity.Grade, error) {
	g, ok := r.store.grades[scoreId]
	if !ok {
		return nil, nil
	}
	return g, nil
}

func (r *fakeGradeRepo) Create(ctx context.Context, grade *entity.Grade) error {
	r.store.grades[grade.Id] = grade
	return nil
}

func (r *fakeGradeRepo) Update(ctx context.Context, grade *entity.Grade) error {
	r.store.grades[grade.Id] = grade
	return nil
}

type fakeMessageRepo struct {
	store *fakeStore
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *entity.ChatMessage) error {
	r.store.messages = append(r.store.messages, m)
	return nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *fakeMessageRepo) DeleteByScoreId(ctx context.Context, scoreId uuid.UUID) error {
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	return nil, nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	out := make([]*entity.ChatMessage, len(r.store.messages))
	copy(out, r.store.messages)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.store.messages)), nil
}

type fakeTurnEventRepo struct {
	store *fakeStore
}

func (r *fakeTurnEventRepo) Create(ctx context.Context, e *entity.TurnEvent) error {
	r.store.events = append(r.store.events, e)
	return nil
}

func (r *fakeTurnEventRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnEvent, error) {
	return r.store.events, nil
}

type fakeChatProvider struct {
	reply     string
	fragments []string
	err       error
}

func (p *fakeChatProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return p.reply, p.err
}

func (p *fakeChatProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.reply, p.err
}

func (p *fakeChatProvider) ChatStream(ctx context.Context, history []llm.Message, onDelta func(string) error, opts ...llm.Option) error {
	if p.err != nil {
		return p.err
	}
	for _, f := range p.fragments {
		if err := onDelta(f); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakeChatProvider) ChatStructured(ctx context.Context, history []llm.Message, schemaName string, schema map[string]interface{}, out interface{}, opts ...llm.Option) error {
	return errors.New("not configured")
}

type fakePublisher struct {
	published map[string][]*message.Message
}

func (p *fakePublisher) Publish(topic string, messages ...*message.Message) error {
	if p.published == nil {
		p.published = make(map[string][]*message.Message)
	}
	p.published[topic] = append(p.published[topic], messages...)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error { return nil }

// --- setup ---

func newTestService(store *fakeStore, provider *fakeChatProvider) (ICoachService, *fakePublisher) {
	factory := &fakeFactory{store: store}
	publisher := &fakePublisher{}
	svc := NewCoachService(
		factory,
		NewRubricSource(factory),
		memory.NewClassifierRepository(),
		provider,
		coach.NewGenerator(provider, 0.7, coach.DefaultHistoryBudget, nil),
		usage.NewLimiter(nil, 0, noopLogger{}),
		publisher,
		noopLogger{},
		mirs.DefaultSnippetBudget,
		false,
	)
	return svc, publisher
}

func processedGrade(userId uuid.UUID) *entity.Grade {
	return &entity.Grade{
		Id:     uuid.New(),
		UserId: userId,
		Status: entity.GradeStatusProcessed,
		Refinement: rubric.Refinement{
			Score:       3.5,
			Explanation: "above average",
		},
		ItemMetrics: rubric.Metrics{
			"agenda setting": {Score: 2, Explanation: "agenda never stated"},
		},
		CreatedAt: time.Now(),
	}
}

// --- tests ---

func TestSendChatHappyPath(t *testing.T) {
	userId := uuid.New()
	grade := processedGrade(userId)
	store := &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}
	provider := &fakeChatProvider{reply: "Nice agenda work. What would you try next time?"}
	svc, publisher := newTestService(store, provider)

	res, err := svc.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ScoreId: grade.Id,
		Chat:    "I liked how they did the agenda setting",
	})
	require.NoError(t, err)

	assert.Equal(t, string(mirs.CategoryGath), res.Category)
	assert.Equal(t, mirs.Label(mirs.CategoryGath), res.CategoryLabel)
	assert.Equal(t, provider.reply, res.Reply.Chat)
	assert.Equal(t, constant.ChatMessageRoleUser, res.Sent.Role)

	require.Len(t, store.messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, store.messages[0].Role)
	assert.Empty(t, store.messages[0].Category, "user turns carry no category")
	assert.Equal(t, constant.ChatMessageRoleAssistant, store.messages[1].Role)
	assert.Equal(t, string(mirs.CategoryGath), store.messages[1].Category)

	require.Len(t, publisher.published[constant.TurnCompletedTopic], 1)
}

func TestSendChatGradeNotFound(t *testing.T) {
	userId := uuid.New()
	store := &fakeStore{grades: map[uuid.UUID]*entity.Grade{}}
	svc, _ := newTestService(store, &fakeChatProvider{reply: "x"})

	_, err := svc.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ScoreId: uuid.New(),
		Chat:    "hello",
	})
	assert.ErrorIs(t, err, rubric.ErrNotFound)
	assert.Empty(t, store.messages, "nothing persisted when the grade is missing")
}

func TestSendChatGradeNotReady(t *testing.T) {
	userId := uuid.New()
	grade := processedGrade(userId)
	grade.Status = entity.GradeStatusPending
	store := &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}
	svc, _ := newTestService(store, &fakeChatProvider{reply: "x"})

	_, err := svc.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ScoreId: grade.Id,
		Chat:    "hello",
	})
	assert.ErrorIs(t, err, rubric.ErrNotReady)
	assert.Empty(t, store.messages)
}

func TestSendChatCompletionFailureStillPersists(t *testing.T) {
	userId := uuid.New()
	grade := processedGrade(userId)
	store := &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}
	svc, _ := newTestService(store, &fakeChatProvider{err: errors.New("model offline")})

	res, err := svc.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ScoreId: grade.Id,
		Chat:    "how did the opening go?",
	})
	require.NoError(t, err, "completion failures degrade to an apology, not an error")
	assert.Contains(t, res.Reply.Chat, "model offline")
	require.Len(t, store.messages, 2)
}

func TestStreamChatEmitsFragmentsAndFinish(t *testing.T) {
	userId := uuid.New()
	grade := processedGrade(userId)
	store := &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}
	provider := &fakeChatProvider{fragments: []string{"Good ", "start. ", "What next?"}}
	svc, publisher := newTestService(store, provider)

	var events []dto.StreamEvent
	err := svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{
		ScoreId: grade.Id,
		Chat:    "I liked how they did the agenda setting",
	}, func(e dto.StreamEvent) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 4)
	for _, e := range events[:3] {
		assert.Equal(t, constant.StreamEventFragment, e.Type)
	}
	finish := events[3]
	assert.Equal(t, constant.StreamEventFinish, finish.Type)
	assert.Equal(t, string(mirs.CategoryGath), finish.Category)
	assert.NotEmpty(t, finish.Reason)

	require.Len(t, store.messages, 2)
	assert.Equal(t, "Good start. What next?", store.messages[1].Content)
	require.Len(t, publisher.published[constant.TurnCompletedTopic], 1)
}

func TestStreamChatCancellationDropsPartialReply(t *testing.T) {
	userId := uuid.New()
	grade := processedGrade(userId)
	store := &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}
	provider := &fakeChatProvider{fragments: []string{"one", "two", "three"}}
	svc, publisher := newTestService(store, provider)

	delivered := 0
	err := svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{
		ScoreId: grade.Id,
		Chat:    "hello there",
	}, func(e dto.StreamEvent) error {
		delivered++
		if delivered == 2 {
			return errors.New("write: broken pipe")
		}
		return nil
	})
	require.NoError(t, err, "client disconnect is not an error")

	assert.Equal(t, 2, delivered)
	require.Len(t, store.messages, 1, "only the user turn survives a cancelled stream")
	assert.Equal(t, constant.ChatMessageRoleUser, store.messages[0].Role)
	assert.Empty(t, publisher.published[constant.TurnCompletedTopic])
}

func TestStreamChatProviderFailureEmitsErrorEvent(t *testing.T) {
	userId := uuid.New()
	grade := processedGrade(userId)
	store := &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}
	svc, _ := newTestService(store, &fakeChatProvider{err: errors.New("stream broke")})

	var events []dto.StreamEvent
	err := svc.StreamChat(context.Background(), userId, &dto.SendChatRequest{
		ScoreId: grade.Id,
		Chat:    "hello there",
	}, func(e dto.StreamEvent) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, constant.StreamEventError, events[0].Type)
	require.Len(t, store.messages, 1, "no assistant turn persisted on failure")
}

func TestGetChatHistory(t *testing.T) {
	userId := uuid.New()
	grade := processedGrade(userId)
	now := time.Now()
	store := &fakeStore{
		grades: map[uuid.UUID]*entity.Grade{grade.Id: grade},
		messages: []*entity.ChatMessage{
			{Id: uuid.New(), UserId: userId, ScoreId: grade.Id, Role: "user", Content: "hi", CreatedAt: now},
			{Id: uuid.New(), UserId: userId, ScoreId: grade.Id, Role: "assistant", Content: "hello", Category: "OPEN", CreatedAt: now.Add(time.Second)},
		},
	}
	svc, _ := newTestService(store, &fakeChatProvider{})

	history, err := svc.GetChatHistory(context.Background(), userId, grade.Id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Chat)
	assert.Equal(t, "OPEN", history[1].Category)
}

func TestGetChatHistoryUnknownConversation(t *testing.T) {
	store := &fakeStore{grades: map[uuid.UUID]*entity.Grade{}}
	svc, _ := newTestService(store, &fakeChatProvider{})

	_, err := svc.GetChatHistory(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, rubric.ErrNotFound)
}
