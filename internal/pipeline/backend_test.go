package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const testCustomerID = "12345"

// fakeBackend imitates the prospect management API.
type fakeBackend struct {
	mu sync.Mutex

	prospects map[string]map[string]any
	order     []string
	nextID    int

	searches int

	// drop makes the backend accept a record without storing it
	drop func(name string) bool
	// fail makes the bulk upsert fail with 500
	fail func(name string) bool
	// alter changes the stored entity before it is returned by detail
	alter func(p map[string]any)
}

func newFakeBackend(t *testing.T, b *fakeBackend) *httptest.Server {
	t.Helper()

	b.prospects = make(map[string]map[string]any)

	mux := http.NewServeMux()
	mux.HandleFunc("/prospectmanagementapi/csvBulkUpsert", b.upsert)
	mux.HandleFunc("/prospectmanagementapi/rawQuerySearch", b.search)
	mux.HandleFunc("/prospectmanagementapi/", b.detail)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func writeJSON(w http.ResponseWriter, v any, doubleEncoded bool) {
	data, _ := json.Marshal(v)
	if doubleEncoded {
		data, _ = json.Marshal(string(data))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (b *fakeBackend) upsert(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("CustomerId") != testCustomerID || r.URL.Query().Get("State") != "0" {
		http.Error(w, "bad scope", http.StatusBadRequest)
		return
	}

	var body struct {
		Records []map[string]any `json:"records"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var lastID string
	for _, rec := range body.Records {
		name, _ := rec["constructionName"].(string)
		if b.fail != nil && b.fail(name) {
			http.Error(w, "upsert failed", http.StatusInternalServerError)
			return
		}
		if b.drop != nil && b.drop(name) {
			continue
		}

		b.nextID++
		lastID = fmt.Sprintf("p-%d", b.nextID)

		stored := map[string]any{"id": lastID}
		for k, v := range rec {
			stored[k] = v
		}
		b.prospects[lastID] = stored
		b.order = append(b.order, lastID)
	}

	writeJSON(w, map[string]any{
		"methodName": "CsvBulkUpsert",
		"value":      map[string]any{"id": lastID},
		"error":      nil,
	}, false)
}

func (b *fakeBackend) search(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JSONString string `json:"JsonString"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var query map[string]any
	if err := json.Unmarshal([]byte(body.JSONString), &query); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// customer id is sent as a number inside the serialized query
	if id, ok := query["customerId"].(float64); !ok || fmt.Sprint(id) != testCustomerID {
		http.Error(w, "bad customer id", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.searches++

	prospects := make([]any, 0, len(b.order))
	// newest first
	for i := len(b.order) - 1; i >= 0; i-- {
		p := b.prospects[b.order[i]]
		prospects = append(prospects, map[string]any{
			"id":               p["id"],
			"constructionName": p["constructionName"],
		})
	}

	writeJSON(w, map[string]any{
		"methodName": "RawQuerySearch",
		"value":      map[string]any{"prospects": prospects},
		"error":      nil,
	}, true)
}

func (b *fakeBackend) detail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if q.Get("modes") != "31" || q.Get("calendarType") != "1" || q.Get("customerId") != testCustomerID {
		http.Error(w, "bad query", http.StatusBadRequest)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/prospectmanagementapi/")

	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.prospects[id]
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	value := map[string]any{
		"id":               p["id"],
		"constructionName": p["constructionName"],
		"period_From":      truncateDate(p["period_From"]),
		"bidResult": map[string]any{
			"prospectsBidResultCompanies": []any{
				map[string]any{"companyAbility": "0", "total": "0"},
				map[string]any{"companyAbility": p["companyAbility"], "total": p["total"]},
			},
		},
	}

	var amount json.Number
	if s, _ := p["amount"].(string); s != "" {
		amount = json.Number(s)
	} else {
		amount = "0"
	}
	value["amount"] = amount

	if b.alter != nil {
		b.alter(value)
	}

	writeJSON(w, map[string]any{
		"methodName": "Get",
		"value":      value,
		"error":      nil,
	}, false)
}

// truncateDate keeps the local date and time as the backend does.
func truncateDate(v any) any {
	s, _ := v.(string)
	if len(s) >= 16 {
		return s[:16]
	}
	return s
}
