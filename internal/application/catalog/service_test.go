package catalog

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"manuscript-editor-api/internal/domain/entity"
	"manuscript-editor-api/internal/domain/repository"
	apperrors "manuscript-editor-api/pkg/errors"
)

type memProjects struct {
	items map[string]*entity.Project
	books *memBooks
}

func (m *memProjects) Create(_ context.Context, p *entity.Project) error {
	m.items[p.ID] = p
	return nil
}

func (m *memProjects) GetByID(_ context.Context, id string) (*entity.Project, error) {
	return m.items[id], nil
}

func (m *memProjects) GetWithBooks(ctx context.Context, id string) (*entity.Project, error) {
	p := m.items[id]
	if p == nil {
		return nil, nil
	}
	p.Books, _ = m.books.ListByProject(ctx, id)
	return p, nil
}

func (m *memProjects) Update(_ context.Context, p *entity.Project) error {
	m.items[p.ID] = p
	return nil
}

func (m *memProjects) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *memProjects) List(_ context.Context, q repository.ProjectQuery) (*repository.ProjectPage, error) {
	page := &repository.ProjectPage{}
	for _, p := range m.items {
		if (q.Genre == "" || p.Genre == q.Genre) && (q.Name == "" || p.Name == q.Name) {
			page.Items = append(page.Items, p)
		}
	}
	page.Total = int64(len(page.Items))
	return page, nil
}

type memBooks struct {
	items   map[string]*entity.Book
	failing bool
}

func (m *memBooks) Create(_ context.Context, b *entity.Book) error {
	if m.failing {
		return errors.New("insert failed")
	}
	m.items[b.ID] = b
	return nil
}

func (m *memBooks) GetByID(_ context.Context, id string) (*entity.Book, error) {
	return m.items[id], nil
}

func (m *memBooks) GetWithProject(ctx context.Context, id string) (*entity.Book, error) {
	return m.GetByID(ctx, id)
}

func (m *memBooks) Update(_ context.Context, b *entity.Book) error {
	m.items[b.ID] = b
	return nil
}

func (m *memBooks) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *memBooks) ListByProject(_ context.Context, projectID string) ([]*entity.Book, error) {
	var out []*entity.Book
	for _, b := range m.items {
		if b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// recordingTx 记录事务调用，不做回滚
type recordingTx struct{ calls int }

func (t *recordingTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type recordingCache struct{ invalidated []string }

func (c *recordingCache) InvalidateBookContexts(_ context.Context, ids ...string) error {
	c.invalidated = append(c.invalidated, ids...)
	return nil
}

func newTestService() (*Service, *memProjects, *memBooks, *recordingTx, *recordingCache) {
	books := &memBooks{items: map[string]*entity.Book{}}
	projects := &memProjects{items: map[string]*entity.Project{}, books: books}
	tx := &recordingTx{}
	cache := &recordingCache{}
	return NewService(projects, books, tx, cache), projects, books, tx, cache
}

func TestCreateProjectDefaults(t *testing.T) {
	svc, _, books, tx, _ := newTestService()

	p, err := svc.CreateProject(context.Background(), CreateProjectInput{Name: "  Saga ", FirstBookTitle: "Dawn"})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if p.Name != "Saga" || p.Genre != entity.DefaultGenre {
		t.Fatalf("project = %q %q", p.Name, p.Genre)
	}
	if tx.calls != 1 {
		t.Fatalf("transaction calls = %d, want 1", tx.calls)
	}
	if len(p.Books) != 1 || p.Books[0].Number != 1 || len(books.items) != 1 {
		t.Fatalf("first book not created")
	}
}

func TestCreateProjectValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	zero := 0

	if _, err := svc.CreateProject(context.Background(), CreateProjectInput{Name: " "}); !errors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("blank name error = %v", err)
	}
	if _, err := svc.CreateProject(context.Background(), CreateProjectInput{Name: "x", TotalBooks: &zero}); !errors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("zero total books error = %v", err)
	}
}

func TestCreateProjectFirstBookFailure(t *testing.T) {
	svc, _, books, _, _ := newTestService()
	books.failing = true

	if _, err := svc.CreateProject(context.Background(), CreateProjectInput{Name: "x", FirstBookTitle: "One"}); err == nil {
		t.Fatalf("CreateProject() should fail when the first book cannot be created")
	}
}

func TestUpdateProjectInvalidatesBookContexts(t *testing.T) {
	svc, _, _, _, cache := newTestService()
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, CreateProjectInput{Name: "Saga"})
	b1, _ := svc.CreateBook(ctx, p.ID, CreateBookInput{Number: 1})
	b2, _ := svc.CreateBook(ctx, p.ID, CreateBookInput{Number: 2, Title: "Second"})

	genre := "mystery"
	total := 3
	got, err := svc.UpdateProject(ctx, p.ID, UpdateProjectInput{Genre: &genre, TotalBooks: &total})
	if err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}
	if got.Genre != "mystery" || *got.TotalBooks != 3 {
		t.Fatalf("project = %+v", got)
	}
	if diff := cmp.Diff([]string{b1.ID, b2.ID}, cache.invalidated); diff != "" {
		t.Fatalf("invalidated mismatch (-want +got):\n%s", diff)
	}
	if b1.Title != "Book 1" || b2.Title != "Second" {
		t.Fatalf("book titles = %q, %q", b1.Title, b2.Title)
	}
}

func TestBookNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.GetBook(ctx, "missing"); !errors.Is(err, apperrors.ErrBookNotFound) {
		t.Fatalf("GetBook() error = %v", err)
	}
	if err := svc.DeleteBook(ctx, "missing"); !errors.Is(err, apperrors.ErrBookNotFound) {
		t.Fatalf("DeleteBook() error = %v", err)
	}
	if _, err := svc.CreateBook(ctx, "missing", CreateBookInput{Number: 1}); !errors.Is(err, apperrors.ErrProjectNotFound) {
		t.Fatalf("CreateBook() error = %v", err)
	}
}

func TestUpdateBookRejectsInvalidNumber(t *testing.T) {
	svc, _, _, _, cache := newTestService()
	ctx := context.Background()
	p, _ := svc.CreateProject(ctx, CreateProjectInput{Name: "Saga"})
	b, _ := svc.CreateBook(ctx, p.ID, CreateBookInput{Number: 1})

	zero := 0
	if _, err := svc.UpdateBook(ctx, b.ID, UpdateBookInput{Number: &zero}); !errors.Is(err, apperrors.ErrInvalidParam) {
		t.Fatalf("UpdateBook() error = %v", err)
	}
	if len(cache.invalidated) != 0 {
		t.Fatalf("failed update must not invalidate cache")
	}
}
