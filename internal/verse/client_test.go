package verse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rbright/versecatch/internal/reference"
	"github.com/stretchr/testify/require"
)

func TestFetchEncodesQueryAndReturnsVerses(t *testing.T) {
	var gotPath, gotRawQuery, gotReference, gotTranslation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRawQuery = r.URL.RawQuery
		gotReference = r.URL.Query().Get("reference")
		gotTranslation = r.URL.Query().Get("translation")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"verses":"For God so loved the world"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", nil)
	text, err := client.Fetch(context.Background(), reference.Reference{Book: "1John", Chapter: "4", Verse: "8", RangeEnd: "10"}, "KJV")
	require.NoError(t, err)
	require.Equal(t, "For God so loved the world", text)
	require.Equal(t, VersePath, gotPath)
	require.Equal(t, "1John 4:8-10", gotReference)
	require.Equal(t, "KJV", gotTranslation)
	require.Equal(t, "reference=1John%204%3A8-10&translation=KJV", gotRawQuery)
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "reference not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Fetch(context.Background(), reference.Reference{Book: "Romans", Chapter: "8", Verse: "28"}, "WEB")
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 404")
	require.Contains(t, err.Error(), "reference not found")
}

func TestFetchMalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>oops</html>"},
		{name: "missing verses", body: `{"text":"hello"}`},
		{name: "wrong type", body: `{"verses":42}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, nil).Fetch(context.Background(), reference.Reference{Book: "John", Chapter: "3", Verse: "16"}, "WEB")
			require.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).Fetch(context.Background(), reference.Reference{Book: "John", Chapter: "3", Verse: "16"}, "WEB")
	require.Error(t, err)
	require.Contains(t, err.Error(), "request verse")
}

func TestFetchEmptyBaseURL(t *testing.T) {
	_, err := NewClient("  ", nil).Fetch(context.Background(), reference.Reference{Book: "John", Chapter: "3", Verse: "16"}, "WEB")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api url is empty")
}

func TestFetchEachCallHitsService(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"verses":"text"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	ref := reference.Reference{Book: "John", Chapter: "3", Verse: "16"}
	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background(), ref, "WEB")
		require.NoError(t, err)
	}
	require.Equal(t, 3, calls)
}
