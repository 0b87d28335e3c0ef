package dealroom

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/dealflow/internal/ai"
)

// ErrEmptyDocument is returned when an upload carries no text to analyze.
var ErrEmptyDocument = errors.New("document has no content")

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// ErrServiceClosed is returned for uploads after Close.
var ErrServiceClosed = errors.New("deal room is shutting down")

// Overview is the deal-room landing payload.
type Overview struct {
	Deal       Deal             `json:"deal"`
	Insights   ai.DealInsights  `json:"insights"`
	MatchScore ai.MatchingScore `json:"match_score"`
}

// Answer is a chat reply in plain and rendered form.
type Answer struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// Upload is a document submitted for analysis.
type Upload struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}

// Service runs deal-room operations against the AI facade.
type Service struct {
	deals *Registry
	ai    *ai.Facade

	// Background analyses run on ctx; Close cancels it and waits.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
}

// NewService creates a deal-room service.
func NewService(deals *Registry, facade *ai.Facade) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{deals: deals, ai: facade, ctx: ctx, cancel: cancel}
}

// Close cancels in-flight document analyses and waits for them.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// Deal returns a copy of a deal.
func (s *Service) Deal(id string) (Deal, error) {
	return s.deals.Get(id)
}

// Overview loads the deal with its insights and match score, generated concurrently.
func (s *Service) Overview(ctx context.Context, dealID string) (Overview, error) {
	deal, err := s.deals.Get(dealID)
	if err != nil {
		return Overview{}, err
	}

	out := Overview{Deal: deal}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Insights = s.ai.GenerateDealInsights(gctx, deal.Seller, deal.Buyer, deal.Stage)
		return nil
	})
	g.Go(func() error {
		out.MatchScore = s.ai.GenerateMatchingScore(gctx, deal.Seller, deal.Buyer)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// Report generates the deal report shown for the current stage.
func (s *Service) Report(ctx context.Context, dealID string) (ai.DealInsights, error) {
	deal, err := s.deals.Get(dealID)
	if err != nil {
		return ai.DealInsights{}, err
	}
	return s.ai.GenerateDealInsights(ctx, deal.Seller, deal.Buyer, deal.Stage), nil
}

// MatchScore scores buyer/seller compatibility.
func (s *Service) MatchScore(ctx context.Context, dealID string) (ai.MatchingScore, error) {
	deal, err := s.deals.Get(dealID)
	if err != nil {
		return ai.MatchingScore{}, err
	}
	return s.ai.GenerateMatchingScore(ctx, deal.Seller, deal.Buyer), nil
}

// ConversationStarters drafts outreach messages for the seller.
func (s *Service) ConversationStarters(ctx context.Context, dealID string) (ai.ConversationStarters, error) {
	deal, err := s.deals.Get(dealID)
	if err != nil {
		return ai.ConversationStarters{}, err
	}
	return s.ai.GenerateConversationStarters(ctx, deal.Seller, deal.Buyer), nil
}

// Ask answers a question about the deal.
func (s *Service) Ask(ctx context.Context, dealID, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	deal, err := s.deals.Get(dealID)
	if err != nil {
		return Answer{}, err
	}

	text := s.ai.AnswerDealQuestion(ctx, question, deal.AIContext())
	rendered, err := ai.RenderAnswerHTML(text)
	if err != nil {
		slog.Warn("Failed to render answer", "deal_id", dealID, "error", err)
		rendered = "<p>" + html.EscapeString(text) + "</p>"
	}
	return Answer{Text: text, HTML: rendered}, nil
}

// UploadDocument records a document as processing and analyzes it in the
// background. The returned document is the processing snapshot.
func (s *Service) UploadDocument(dealID string, up Upload) (Document, error) {
	if strings.TrimSpace(up.Content) == "" {
		return Document{}, ErrEmptyDocument
	}
	if up.Size <= 0 {
		up.Size = int64(len(up.Content))
	}
	doc := Document{
		ID:         uuid.NewString(),
		Name:       up.Name,
		Size:       up.Size,
		Status:     StatusProcessing,
		UploadedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Document{}, ErrServiceClosed
	}
	if err := s.deals.addDocument(dealID, doc); err != nil {
		return Document{}, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.analyze(dealID, doc.ID, up.Content)
	}()
	return doc, nil
}

func (s *Service) analyze(dealID, docID, content string) {
	analysis := s.ai.AnalyzeFinancialDocument(s.ctx, content)
	status := StatusAnalyzed
	if err := s.ctx.Err(); err != nil {
		slog.Warn("Document analysis interrupted", "deal_id", dealID, "document_id", docID, "error", err)
		status = StatusError
	}

	err := s.deals.updateDocument(dealID, docID, func(d *Document) {
		d.Status = status
		if status == StatusAnalyzed {
			d.Analysis = &analysis
		}
	})
	if err != nil {
		slog.Error("Failed to record document analysis", "deal_id", dealID, "document_id", docID, "error", err)
		return
	}
	slog.Info("Document processed", "deal_id", dealID, "document_id", docID, "status", status)
}
