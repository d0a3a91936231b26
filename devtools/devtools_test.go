package devtools

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHeadersFromSortsAndFlattens(t *testing.T) {
	h := http.Header{}
	h.Add("Content-Type", "text/html")
	h.Add("Accept", "text/html")
	h.Add("Accept", "application/json")

	headers := HeadersFrom(h)

	want := []Header{
		{Name: "Accept", Value: "application/json"},
		{Name: "Accept", Value: "text/html"},
		{Name: "Content-Type", Value: "text/html"},
	}
	if len(headers) != len(want) {
		t.Fatalf("Got %d headers", len(headers))
	}
	for i := range want {
		if headers[i] != want[i] {
			t.Fatalf("Header %d is %+v", i, headers[i])
		}
	}
}

func TestHeadersFromOmits(t *testing.T) {
	h := http.Header{}
	h.Set("Date", "today")
	h.Set("Content-Type", "text/html")

	headers := HeadersFrom(h, "date")

	if len(headers) != 1 || headers[0].Name != "Content-Type" {
		t.Fatalf("Headers are %+v", headers)
	}
}

func TestEventOmitsNilResponse(t *testing.T) {
	data, err := json.Marshal(Event{Request: RequestRecord{URL: "http://example.com/", Method: "GET"}})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["response"]; ok {
		t.Fatal("Nil response serialized")
	}
}
