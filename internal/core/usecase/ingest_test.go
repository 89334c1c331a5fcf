package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ragline/ragline/internal/core/domain"
)

func TestUploadCreatesAndPublishes(t *testing.T) {
	repo := newRepoFake()
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, &indexFake{}, queue)

	doc, err := uc.Upload(context.Background(), "My Guide.md", "", strings.NewReader("# Guide"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("document id not assigned")
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("status = %s", doc.Status)
	}
	if doc.Filename != "My_Guide.md" {
		t.Fatalf("filename not sanitized: %q", doc.Filename)
	}
	if doc.FileType != "md" {
		t.Fatalf("file type not inferred: %q", doc.FileType)
	}
	if string(doc.Raw) != "# Guide" {
		t.Fatalf("raw content not captured: %q", doc.Raw)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("ingestion event not published: %v", queue.published)
	}
}

func TestUploadRejectsEmptyBody(t *testing.T) {
	uc := NewIngestDocumentUseCase(newRepoFake(), &indexFake{}, &queueFake{})
	_, err := uc.Upload(context.Background(), "empty.txt", "txt", strings.NewReader(""))
	if !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestUploadRejectsMissingFilename(t *testing.T) {
	uc := NewIngestDocumentUseCase(newRepoFake(), &indexFake{}, &queueFake{})
	_, err := uc.Upload(context.Background(), "  ", "txt", strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestUploadSurfacesPublishFailure(t *testing.T) {
	uc := NewIngestDocumentUseCase(newRepoFake(), &indexFake{}, &queueFake{err: errors.New("queue down")})
	_, err := uc.Upload(context.Background(), "guide.md", "md", strings.NewReader("# Guide"))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestDeleteRemovesVectorsBeforeRows(t *testing.T) {
	repo := newRepoFake(&domain.Document{ID: "doc-1"})
	index := &indexFake{}
	uc := NewIngestDocumentUseCase(repo, index, &queueFake{})

	if err := uc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(index.deletedDocs) != 1 || index.deletedDocs[0] != "doc-1" {
		t.Fatalf("vectors not deleted: %v", index.deletedDocs)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "doc-1" {
		t.Fatalf("rows not deleted: %v", repo.deleted)
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	uc := NewIngestDocumentUseCase(newRepoFake(), &indexFake{}, &queueFake{})
	err := uc.Delete(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
