// Package easyvereintest provides an in-memory easyVerein API for tests.
package easyvereintest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

const Token = "test-token"

type Contact struct {
	ID                   int64    `json:"id"`
	FirstName            string   `json:"firstName"`
	FamilyName           string   `json:"familyName"`
	Salutation           string   `json:"salutation"`
	Street               string   `json:"street"`
	Zip                  any      `json:"zip"`
	City                 string   `json:"city"`
	PrimaryEmail         string   `json:"primaryEmail"`
	MethodOfPayment      int      `json:"methodOfPayment"`
	ContactDetailsGroups []string `json:"contactDetailsGroups"`
}

type Invoice struct {
	ID                 int64         `json:"id"`
	InvNumber          any           `json:"invNumber"`
	Date               string        `json:"date"`
	TotalPrice         json.Number   `json:"totalPrice"`
	Kind               string        `json:"kind"`
	RelatedAddress     string        `json:"relatedAddress"`
	Receiver           string        `json:"receiver"`
	PaymentInformation string        `json:"paymentInformation"`
	SelectionAcc       int64         `json:"selectionAcc"`
	IsDraft            bool          `json:"isDraft"`
	Items              []InvoiceItem `json:"-"`
}

type InvoiceItem struct {
	RelatedInvoice string      `json:"relatedInvoice"`
	Title          string      `json:"title"`
	Quantity       int         `json:"quantity"`
	UnitPrice      json.Number `json:"unitPrice"`
	Description    string      `json:"description"`
	TaxRate        json.Number `json:"taxRate"`
	TaxName        string      `json:"taxName"`
	BillingAccount string      `json:"billingAccount"`
}

// Server mimics the endpoints the batch uses. Collections are paginated with the
// limit query parameter and absolute next links.
type Server struct {
	Server *httptest.Server

	mu       sync.Mutex
	Contacts []Contact
	Invoices []*Invoice
	nextID   int64

	// Failure simulation
	RejectInvoiceCreate bool

	// Request log, "METHOD path?query"
	Requests []string
}

func NewServer() *Server {
	s := &Server{nextID: 1000}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2.0/contact-details", s.handleContacts)
	mux.HandleFunc("/api/v2.0/invoice", s.handleInvoices)
	mux.HandleFunc("/api/v2.0/invoice/", s.handleInvoice)
	mux.HandleFunc("/api/v2.0/invoice-item", s.handleItems)

	s.Server = httptest.NewServer(s.auth(mux))
	return s
}

func (s *Server) Close() {
	s.Server.Close()
}

// BaseURL is the value to pass as the client base URL; the version is v2.0.
func (s *Server) BaseURL() string {
	return s.Server.URL + "/api/"
}

// AddInvoice seeds an existing invoice.
func (s *Server) AddInvoice(number any, date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.Invoices = append(s.Invoices, &Invoice{ID: s.nextID, InvNumber: number, Date: date})
}

// Created returns the finalized invoices created through the API.
func (s *Server) Created() []*Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Invoice
	for _, inv := range s.Invoices {
		if inv.Kind != "" && !inv.IsDraft {
			out = append(out, inv)
		}
	}
	return out
}

func (s *Server) Count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.Requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.Requests = append(s.Requests, r.Method+" "+r.URL.RequestURI())
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+Token {
			http.Error(w, `{"detail":"Invalid token."}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exclude := r.URL.Query().Get("contactDetailsGroups__not")
	var results []any
	for _, c := range s.Contacts {
		if exclude != "" && hasGroup(c.ContactDetailsGroups, exclude) {
			continue
		}
		results = append(results, c)
	}
	s.writePage(w, r, results)
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		from := r.URL.Query().Get("date__gte")
		var results []any
		for _, inv := range s.Invoices {
			if from != "" && inv.Date != "" && inv.Date < from {
				continue
			}
			results = append(results, inv)
		}
		s.writePage(w, r, results)

	case http.MethodPost:
		var inv Invoice
		if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if s.RejectInvoiceCreate {
			http.Error(w, `{"detail":"rejected"}`, http.StatusBadRequest)
			return
		}
		for _, existing := range s.Invoices {
			if existing.InvNumber == inv.InvNumber {
				http.Error(w, `{"invNumber":["invoice with this invNumber already exists."]}`, http.StatusBadRequest)
				return
			}
		}
		s.nextID++
		inv.ID = s.nextID
		s.Invoices = append(s.Invoices, &inv)
		writeJSON(w, http.StatusCreated, &inv)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/v2.0/invoice/"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	inv := s.find(id)
	if inv == nil || r.Method != http.MethodPatch {
		http.NotFound(w, r)
		return
	}

	var patch struct {
		IsDraft *bool `json:"isDraft"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if patch.IsDraft != nil {
		inv.IsDraft = *patch.IsDraft
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var item InvoiceItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	idx := strings.LastIndex(strings.TrimSuffix(item.RelatedInvoice, "/"), "/")
	id, err := strconv.ParseInt(strings.TrimSuffix(item.RelatedInvoice, "/")[idx+1:], 10, 64)
	if err != nil || s.find(id) == nil {
		http.Error(w, `{"relatedInvoice":["invalid"]}`, http.StatusBadRequest)
		return
	}
	inv := s.find(id)
	inv.Items = append(inv.Items, item)
	writeJSON(w, http.StatusCreated, &item)
}

func (s *Server) find(id int64) *Invoice {
	for _, inv := range s.Invoices {
		if inv.ID == id {
			return inv
		}
	}
	return nil
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, results []any) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	if offset > len(results) {
		offset = len(results)
	}

	var next *string
	if end < len(results) {
		q := r.URL.Query()
		q.Set("offset", strconv.Itoa(end))
		u := fmt.Sprintf("%s%s?%s", s.Server.URL, r.URL.Path, q.Encode())
		next = &u
	}

	page := results[offset:end]
	if page == nil {
		page = []any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"next":    next,
		"results": page,
	})
}

func hasGroup(groups []string, id string) bool {
	for _, g := range groups {
		if strings.TrimSuffix(g, "/") == id || strings.HasSuffix(strings.TrimSuffix(g, "/"), "/"+id) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
