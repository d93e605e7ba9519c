package analysis

import (
	"context"
	"sort"
	"sync"
	"time"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/service"
	"manuscript-editor-api/internal/infrastructure/llm"
	apperrors "manuscript-editor-api/pkg/errors"
)

type memStore struct {
	mu        sync.Mutex
	projects  map[string]*entity.Project
	books     map[string]*entity.Book
	chapters  map[string]*entity.Chapter
	feedback  []*entity.EditingFeedback
	summaries map[string]*entity.ChapterSummary
	usage     []service.LLMUsageInput
}

func newMemStore() *memStore {
	return &memStore{
		projects:  map[string]*entity.Project{},
		books:     map[string]*entity.Book{},
		chapters:  map[string]*entity.Chapter{},
		summaries: map[string]*entity.ChapterSummary{},
	}
}

func (s *memStore) addProjectBook(genre string, bookNumber int, totalBooks *int) (*entity.Project, *entity.Book) {
	p := entity.NewProject("Saga", "", genre)
	p.TotalBooks = totalBooks
	b := entity.NewBook(p.ID, bookNumber, "Book")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
	s.books[b.ID] = b
	return p, b
}

func (s *memStore) addChapter(bookID string, number int, content string, status entity.ChapterStatus) *entity.Chapter {
	c := entity.NewChapter(bookID, number, "", content)
	c.Status = status
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chapters[c.ID] = c
	return c
}

func (s *memStore) addSummary(chapterID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[chapterID] = entity.NewChapterSummary(chapterID, entity.ChapterSummaryData{Summary: text}, false)
}

func (s *memStore) chapter(id string) *entity.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chapters[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// takeOverLease 模拟租约过期后另一次运行领取了同一章节
func (s *memStore) takeOverLease(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lease := entity.LeaseStamp(at)
	s.chapters[id].Status = entity.ChapterStatusAnalyzing
	s.chapters[id].AnalysisStartedAt = &lease
}

func (s *memStore) deleteChapter(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chapters, id)
	delete(s.summaries, id)
}

// chapterRepo 实现 repository.ChapterRepository
type chapterRepo struct{ s *memStore }

func (r chapterRepo) Create(_ context.Context, c *entity.Chapter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.chapters[c.ID] = c
	return nil
}

func (r chapterRepo) GetByID(_ context.Context, id string) (*entity.Chapter, error) {
	return r.s.chapter(id), nil
}

func (r chapterRepo) GetDetail(ctx context.Context, id string) (*entity.Chapter, error) {
	return r.GetByID(ctx, id)
}

func (r chapterRepo) Delete(_ context.Context, id string) error {
	r.s.deleteChapter(id)
	return nil
}

func (r chapterRepo) ListByBook(_ context.Context, bookID string) ([]*entity.Chapter, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Chapter
	for _, c := range r.s.chapters {
		if c.BookID == bookID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r chapterRepo) ListCompletedSummaries(_ context.Context, bookID, excludeChapterID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var chapters []*entity.Chapter
	for _, c := range r.s.chapters {
		if c.BookID != bookID || c.ID == excludeChapterID || c.Status != entity.ChapterStatusCompleted {
			continue
		}
		if _, ok := r.s.summaries[c.ID]; ok {
			chapters = append(chapters, c)
		}
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })
	out := make([]string, 0, len(chapters))
	for _, c := range chapters {
		out = append(out, r.s.summaries[c.ID].Summary)
	}
	return out, nil
}

func (r chapterRepo) BeginAnalysis(_ context.Context, id string, now, staleBefore time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.chapters[id]
	if !ok {
		return apperrors.ErrChapterNotFound
	}
	stale := c.Status == entity.ChapterStatusAnalyzing && c.AnalysisStartedAt != nil && c.AnalysisStartedAt.Before(staleBefore)
	if c.Status != entity.ChapterStatusProcessing && !stale {
		if c.Status == entity.ChapterStatusAnalyzing {
			return apperrors.ErrAnalysisInProgress
		}
		return entity.ErrInvalidTransition
	}
	lease := entity.LeaseStamp(now)
	c.Status = entity.ChapterStatusAnalyzing
	c.AnalysisStartedAt = &lease
	c.Error = nil
	return nil
}

// holdsLease 零值 lease 表示调用方未领取租约
func holdsLease(c *entity.Chapter, lease time.Time) bool {
	if lease.IsZero() {
		return true
	}
	return c.AnalysisStartedAt != nil && c.AnalysisStartedAt.Equal(entity.LeaseStamp(lease))
}

func (r chapterRepo) CompleteAnalysis(_ context.Context, id string, lease, analyzedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.chapters[id]
	if !ok {
		return apperrors.ErrChapterNotFound
	}
	if _, err := entity.NextStatus(c.Status, entity.EventComplete, false); err != nil {
		return err
	}
	if !holdsLease(c, lease) {
		return apperrors.ErrAnalysisInProgress
	}
	c.Status = entity.ChapterStatusCompleted
	c.AnalyzedAt = &analyzedAt
	c.Error = nil
	return nil
}

func (r chapterRepo) FailAnalysis(_ context.Context, id string, lease time.Time, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.chapters[id]
	if !ok {
		return apperrors.ErrChapterNotFound
	}
	if _, err := entity.NextStatus(c.Status, entity.EventFail, false); err != nil {
		return err
	}
	if !holdsLease(c, lease) {
		return apperrors.ErrAnalysisInProgress
	}
	c.Status = entity.ChapterStatusFailed
	c.Error = &message
	return nil
}

func (r chapterRepo) Resubmit(_ context.Context, id string, staleBefore time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.chapters[id]
	if !ok {
		return apperrors.ErrChapterNotFound
	}
	expired := c.AnalysisStartedAt != nil && c.AnalysisStartedAt.Before(staleBefore)
	event := entity.EventResubmit
	if c.Status == entity.ChapterStatusAnalyzing {
		if !expired {
			return apperrors.ErrAnalysisInProgress
		}
		event = entity.EventExpire
	}
	next, err := entity.NextStatus(c.Status, event, expired)
	if err != nil {
		return err
	}
	c.Status = next
	c.Error = nil
	c.AnalysisStartedAt = nil
	return nil
}

// bookRepo 实现 repository.BookRepository
type bookRepo struct{ s *memStore }

func (r bookRepo) Create(_ context.Context, b *entity.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.books[b.ID] = b
	return nil
}

func (r bookRepo) GetByID(_ context.Context, id string) (*entity.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.books[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r bookRepo) GetWithProject(ctx context.Context, id string) (*entity.Book, error) {
	b, _ := r.GetByID(ctx, id)
	if b == nil {
		return nil, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.Project = r.s.projects[b.ProjectID]
	return b, nil
}

func (r bookRepo) Update(context.Context, *entity.Book) error { return nil }

func (r bookRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.books, id)
	return nil
}

func (r bookRepo) ListByProject(context.Context, string) ([]*entity.Book, error) { return nil, nil }

type feedbackRepo struct{ s *memStore }

func (r feedbackRepo) Create(_ context.Context, f *entity.EditingFeedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.feedback = append(r.s.feedback, f)
	return nil
}

func (r feedbackRepo) ListByChapter(_ context.Context, chapterID string) ([]*entity.EditingFeedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.EditingFeedback
	for i := len(r.s.feedback) - 1; i >= 0; i-- {
		if r.s.feedback[i].ChapterID == chapterID {
			out = append(out, r.s.feedback[i])
		}
	}
	return out, nil
}

type summaryRepo struct{ s *memStore }

func (r summaryRepo) Upsert(_ context.Context, sum *entity.ChapterSummary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.summaries[sum.ChapterID] = sum
	return nil
}

func (r summaryRepo) GetByChapter(_ context.Context, chapterID string) (*entity.ChapterSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.summaries[chapterID], nil
}

type usageRecorder struct{ s *memStore }

func (r usageRecorder) Record(_ context.Context, in service.LLMUsageInput) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.usage = append(r.s.usage, in)
	return nil
}

// scriptedCompleter 按 workflow 返回预设结果
type scriptedCompleter struct {
	mu       sync.Mutex
	replies  map[string]*llm.Response
	errs     map[string]error
	hook     func(req llm.Request)
	requests []llm.Request
}

func (c *scriptedCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	hook := c.hook
	c.mu.Unlock()
	if hook != nil {
		hook(req)
	}
	if err := c.errs[req.Workflow]; err != nil {
		return nil, err
	}
	if r, ok := c.replies[req.Workflow]; ok {
		return r, nil
	}
	return &llm.Response{Text: "no reply configured"}, nil
}

func (c *scriptedCompleter) calls() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Request(nil), c.requests...)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []Job
	err  error
}

func (q *fakeQueue) Submit(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}
