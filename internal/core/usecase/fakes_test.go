package usecase

import (
	"context"
	"fmt"

	"github.com/ragline/ragline/internal/core/domain"
	"github.com/ragline/ragline/internal/core/ports"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type repoFake struct {
	docs        map[string]*domain.Document
	getErr      error
	createErr   error
	saveTextErr error
	chunksErr   error
	deleteErr   error

	created     []*domain.Document
	statusCalls []statusCall
	savedText   string
	savedChunks []domain.Chunk
	deleted     []string
}

func newRepoFake(docs ...*domain.Document) *repoFake {
	f := &repoFake{docs: map[string]*domain.Document{}}
	for _, doc := range docs {
		f.docs[doc.ID] = doc
	}
	return f
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	f.docs[doc.ID] = doc
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *repoFake) List(context.Context) ([]domain.Document, error) {
	var out []domain.Document
	for _, doc := range f.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return nil
}

func (f *repoFake) SaveText(_ context.Context, _ string, text string) error {
	if f.saveTextErr != nil {
		return f.saveTextErr
	}
	f.savedText = text
	return nil
}

func (f *repoFake) SaveChunks(_ context.Context, _ string, chunks []domain.Chunk) error {
	if f.chunksErr != nil {
		return f.chunksErr
	}
	f.savedChunks = chunks
	return nil
}

func (f *repoFake) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	delete(f.docs, id)
	return nil
}

type extractorFake struct {
	extraction *ports.Extraction
	err        error
}

func (f *extractorFake) Extract(context.Context, string, string, []byte) (*ports.Extraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.extraction, nil
}

type chunkerFake struct {
	chunks      []string
	recordCalls int
	textCalls   int
	err         error
}

func (f *chunkerFake) Chunk(string) ([]string, error) {
	f.textCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func (f *chunkerFake) ChunkRecords([]string) ([]string, error) {
	f.recordCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type embedderFake struct {
	vectors  [][]float32
	queryVec []float32
	err      error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.queryVec, nil
}

type upsertCall struct {
	id       string
	metadata map[string]string
}

type indexFake struct {
	ensureErr error
	upsertErr error
	searchErr error
	fragments []domain.RetrievedFragment

	ensureCalls  int
	upserts      []upsertCall
	deletedDocs  []string
	searchLimits []int
}

func (f *indexFake) EnsureIndex(context.Context) error {
	f.ensureCalls++
	return f.ensureErr
}

func (f *indexFake) Upsert(_ context.Context, id string, _ []float32, metadata map[string]string) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, upsertCall{id: id, metadata: metadata})
	return nil
}

func (f *indexFake) Search(_ context.Context, _ []float32, limit int, _ domain.SearchFilter) ([]domain.RetrievedFragment, error) {
	f.searchLimits = append(f.searchLimits, limit)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.fragments, nil
}

func (f *indexFake) Delete(context.Context, ...string) error { return nil }

func (f *indexFake) DeleteByDocument(_ context.Context, documentID string) error {
	f.deletedDocs = append(f.deletedDocs, documentID)
	return nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

type registryFake struct {
	agents []domain.Agent
	err    error
}

func (f *registryFake) Create(context.Context, *domain.Agent) error { return nil }

func (f *registryFake) GetByID(context.Context, int64) (*domain.Agent, error) {
	return nil, domain.ErrAgentNotFound
}

func (f *registryFake) ListByID(context.Context) ([]domain.Agent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.agents, nil
}

func (f *registryFake) Update(context.Context, *domain.Agent) error { return nil }
func (f *registryFake) Delete(context.Context, int64) error         { return nil }
func (f *registryFake) Count(context.Context) (int, error)          { return len(f.agents), nil }

type completerFake struct {
	response string
	err      error
	requests []ports.ChatRequest
}

func (f *completerFake) Complete(_ context.Context, req ports.ChatRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}
