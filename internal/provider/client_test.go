package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckStatus(t *testing.T) {
	var gotBody statusRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"count":      3,
			"total":      5,
			"isComplete": false,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	st, err := c.CheckStatus(context.Background(), "s-1", true)
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}

	if gotBody.SurveyID != "s-1" || !gotBody.FetchData {
		t.Errorf("request body = %+v, want survey_id=s-1 fetch_data=true", gotBody)
	}
	if st.Count != 3 || st.Total != 5 || st.Complete {
		t.Errorf("status = %+v, want count=3 total=5 incomplete", st)
	}
}

func TestCheckStatus_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	if _, err := c.CheckStatus(context.Background(), "s-1", false); err == nil {
		t.Fatal("CheckStatus succeeded on 502, want error")
	}
}

func TestFetchResults_DedicatedEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"rows": []map[string]string{{"name": "Ada", "message": "hi"}},
		})
	}))
	defer srv.Close()

	c := New("http://unused.invalid", srv.URL, time.Second)
	rows, err := c.FetchResults(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("FetchResults: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Ada" {
		t.Errorf("rows = %v, want Ada row", rows)
	}
}

func TestFetchResults_FallsBackToStatusEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		if !req.FetchData {
			t.Error("fallback must request fetch_data=true")
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"count":         1,
			"total":         1,
			"isComplete":    true,
			"processedData": []map[string]string{{"name": "Linus"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	rows, err := c.FetchResults(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("FetchResults: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Linus" {
		t.Errorf("rows = %v, want Linus row", rows)
	}
}
