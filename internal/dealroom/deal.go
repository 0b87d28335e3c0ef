// Package dealroom serves the buyer/seller deal room: deal state, document
// analysis, AI insights, and a question-answering chat socket.
package dealroom

import (
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ashureev/dealflow/internal/ai"
)

var (
	// ErrDealNotFound is returned for an unknown deal id.
	ErrDealNotFound = errors.New("deal not found")
	// ErrDocumentNotFound is returned for an unknown document id.
	ErrDocumentNotFound = errors.New("document not found")
)

// DocumentStatus is where an uploaded document is in its analysis.
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusAnalyzed   DocumentStatus = "analyzed"
	StatusError      DocumentStatus = "error"
)

// Document is a file shared in the deal room.
type Document struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Size       int64                 `json:"size"`
	Status     DocumentStatus        `json:"status"`
	Analysis   *ai.FinancialAnalysis `json:"analysis,omitempty"`
	UploadedAt time.Time             `json:"uploaded_at"`
}

// Deal is a seller/buyer pair moving through due diligence.
type Deal struct {
	ID        string           `json:"id"`
	Seller    ai.SellerProfile `json:"seller"`
	Buyer     ai.BuyerProfile  `json:"buyer"`
	Stage     string           `json:"stage"`
	Documents []Document       `json:"documents"`
}

// AIContext returns the deal state shared with the model for questions.
func (d *Deal) AIContext() ai.DealContext {
	docs := make([]ai.DocumentSummary, 0, len(d.Documents))
	for _, doc := range d.Documents {
		docs = append(docs, ai.DocumentSummary{Name: doc.Name, Status: string(doc.Status)})
	}
	return ai.DealContext{
		DealID:    d.ID,
		Seller:    d.Seller,
		Buyer:     d.Buyer,
		Stage:     d.Stage,
		Documents: docs,
	}
}

func (d *Deal) clone() Deal {
	out := *d
	out.Buyer.FocusAreas = slices.Clone(d.Buyer.FocusAreas)
	out.Documents = make([]Document, len(d.Documents))
	copy(out.Documents, d.Documents)
	return out
}

// DemoDealID identifies the seeded demo deal.
const DemoDealID = "deal_001"

// DemoDeal returns the sample deal shown in the deal room.
func DemoDeal() Deal {
	return Deal{
		ID: DemoDealID,
		Seller: ai.SellerProfile{
			CompanyName: "Sarah's SaaS Business",
			Industry:    "SaaS",
			Revenue:     "$2.34M",
			Growth:      "34%",
			Employees:   15,
		},
		Buyer: ai.BuyerProfile{
			Name:       "John Doe",
			Company:    "TechVentures",
			FocusAreas: []string{"SaaS", "B2B Software"},
			Budget:     "$2M - $8M",
			Timeline:   "45-60 days",
		},
		Stage:     "due-diligence",
		Documents: []Document{},
	}
}

// Registry holds deals in memory. It is safe for concurrent use; callers
// receive copies.
type Registry struct {
	mu    sync.RWMutex
	deals map[string]*Deal
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{deals: make(map[string]*Deal)}
}

// Put stores or replaces a deal.
func (r *Registry) Put(d Deal) {
	c := d.clone()
	r.mu.Lock()
	r.deals[d.ID] = &c
	r.mu.Unlock()
}

// Get returns a copy of a deal.
func (r *Registry) Get(id string) (Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deals[id]
	if !ok {
		return Deal{}, ErrDealNotFound
	}
	return d.clone(), nil
}

// IDs returns deal ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.deals))
	for id := range r.deals {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) addDocument(dealID string, doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[dealID]
	if !ok {
		return ErrDealNotFound
	}
	d.Documents = append(d.Documents, doc)
	return nil
}

func (r *Registry) updateDocument(dealID, docID string, fn func(*Document)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[dealID]
	if !ok {
		return ErrDealNotFound
	}
	for i := range d.Documents {
		if d.Documents[i].ID == docID {
			fn(&d.Documents[i])
			return nil
		}
	}
	return ErrDocumentNotFound
}
