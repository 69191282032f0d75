package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/ingest"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// maxBatchBodyBytes bounds a submission; blobs arrive inline as base64.
const maxBatchBodyBytes = 256 << 20

func (s *Server) registerBatchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:  "submitBatch",
		Method:       http.MethodPost,
		Path:         "/api/v1/batches",
		Summary:      "Submit batch",
		Description:  "Creates books from a batch of records for the token's publisher. Per-record failures are reported in the result and never abort the batch.",
		Tags:         []string{"Batches"},
		Security:     bearerSecurity,
		MaxBodyBytes: maxBatchBodyBytes,
	}, s.handleSubmitBatch)

	huma.Register(s.api, huma.Operation{
		OperationID:  "adminSubmitBatch",
		Method:       http.MethodPost,
		Path:         "/api/v1/admin/publishers/{publisherId}/batches",
		Summary:      "Submit batch for publisher",
		Description:  "Submits a batch on behalf of a publisher (admin only)",
		Tags:         []string{"Batches", "Admin"},
		Security:     bearerSecurity,
		MaxBodyBytes: maxBatchBodyBytes,
	}, s.handleAdminSubmitBatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBatch",
		Method:      http.MethodGet,
		Path:        "/api/v1/batches/{id}",
		Summary:     "Get batch result",
		Description: "Returns the archived result of a batch run",
		Tags:        []string{"Batches"},
		Security:    bearerSecurity,
	}, s.handleGetBatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBatches",
		Method:      http.MethodGet,
		Path:        "/api/v1/batches",
		Summary:     "List batches",
		Description: "Returns recent batch runs, newest first",
		Tags:        []string{"Batches"},
		Security:    bearerSecurity,
	}, s.handleListBatches)
}

// === DTOs ===

// SubmitBatchInput carries a raw ingest.BatchDocument so malformed records
// reach the engine and fail individually instead of failing schema validation.
type SubmitBatchInput struct {
	RawBody []byte
}

type AdminSubmitBatchInput struct {
	PublisherID int64 `path:"publisherId" doc:"Publisher to submit for"`
	RawBody     []byte
}

type CreatedEntry struct {
	Index    int      `json:"index" doc:"Position of the record in the batch"`
	BookID   int64    `json:"bookId" doc:"ID of the created book"`
	Title    string   `json:"title" doc:"Normalized title"`
	Warnings []string `json:"warnings" doc:"Non-fatal problems"`
}

type BatchResults struct {
	Created []CreatedEntry       `json:"created"`
	Errors  []domain.RecordError `json:"errors"`
}

type BatchResponse struct {
	BatchID     string       `json:"batchId" doc:"Batch run ID"`
	PublisherID int64        `json:"publisherId" doc:"Publisher the books belong to"`
	Successful  int          `json:"successful" doc:"Records that produced a book"`
	Failed      int          `json:"failed" doc:"Records that failed"`
	Results     BatchResults `json:"results"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
}

type BatchOutput struct {
	Body BatchResponse
}

type GetBatchInput struct {
	ID string `path:"id" doc:"Batch run ID"`
}

type ListBatchesInput struct {
	PublisherID int64 `query:"publisherId" doc:"Publisher to list (admin tokens only)"`
	Limit       int   `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
}

type BatchSummary struct {
	BatchID    string    `json:"batchId"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	FinishedAt time.Time `json:"finishedAt"`
}

type ListBatchesOutput struct {
	Body struct {
		Batches []BatchSummary `json:"batches"`
	}
}

// === Handlers ===

func (s *Server) handleSubmitBatch(ctx context.Context, input *SubmitBatchInput) (*BatchOutput, error) {
	publisherID, err := RequirePublisher(ctx)
	if err != nil {
		return nil, err
	}
	return s.runBatch(ctx, publisherID, input.RawBody)
}

func (s *Server) handleAdminSubmitBatch(ctx context.Context, input *AdminSubmitBatchInput) (*BatchOutput, error) {
	if _, err := RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if _, err := s.store.GetPublisher(ctx, input.PublisherID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("publisher %d not found", input.PublisherID)
		}
		return nil, err
	}
	return s.runBatch(ctx, input.PublisherID, input.RawBody)
}

func (s *Server) runBatch(ctx context.Context, publisherID int64, body []byte) (*BatchOutput, error) {
	if err := s.allowSubmission(publisherID); err != nil {
		return nil, err
	}

	batch, err := ingest.DecodeBatch(body)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Engine.Run(ctx, publisherID, batch)
	if err != nil {
		return nil, err
	}
	return &BatchOutput{Body: batchResponse(result)}, nil
}

func (s *Server) handleGetBatch(ctx context.Context, input *GetBatchInput) (*BatchOutput, error) {
	if _, err := GetClaims(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Reports.Get(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("batch %s not found", input.ID)
		}
		return nil, err
	}
	if err := RequireActingFor(ctx, result.PublisherID, "batch "+input.ID); err != nil {
		return nil, err
	}
	return &BatchOutput{Body: batchResponse(result)}, nil
}

func (s *Server) handleListBatches(ctx context.Context, input *ListBatchesInput) (*ListBatchesOutput, error) {
	claims, err := GetClaims(ctx)
	if err != nil {
		return nil, err
	}

	publisherID := claims.PublisherID
	if claims.IsAdmin() {
		if input.PublisherID <= 0 {
			return nil, domainerrors.Validation("publisherId is required for admin tokens")
		}
		publisherID = input.PublisherID
	}

	results, err := s.services.Reports.ListByPublisher(ctx, publisherID, input.Limit)
	if err != nil {
		return nil, err
	}

	out := &ListBatchesOutput{}
	out.Body.Batches = make([]BatchSummary, len(results))
	for i, r := range results {
		out.Body.Batches[i] = BatchSummary{
			BatchID:    r.BatchID,
			Successful: r.SuccessCount,
			Failed:     r.FailureCount,
			FinishedAt: r.FinishedAt,
		}
	}
	return out, nil
}

func batchResponse(r *domain.BatchResult) BatchResponse {
	resp := BatchResponse{
		BatchID:     r.BatchID,
		PublisherID: r.PublisherID,
		Successful:  r.SuccessCount,
		Failed:      r.FailureCount,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Results: BatchResults{
			Created: make([]CreatedEntry, len(r.Created)),
			Errors:  r.Errors,
		},
	}
	if resp.Results.Errors == nil {
		resp.Results.Errors = []domain.RecordError{}
	}
	for i, c := range r.Created {
		resp.Results.Created[i] = CreatedEntry{
			Index:    c.Index,
			BookID:   c.BookID,
			Title:    c.Title,
			Warnings: c.WarningStrings(),
		}
	}
	return resp
}
