package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"regbot/internal/domain"
)

type fakeAnswerer struct {
	questions []string
	resp      domain.Response
}

func (f *fakeAnswerer) Answer(ctx context.Context, question string) domain.Response {
	f.questions = append(f.questions, question)
	return f.resp
}

func answered() domain.Response {
	ref, sim := "chunk_4", 0.731
	return domain.Response{
		Answer:    "O regulamento permite <sim>.",
		Retrieved: []domain.RetrievedRef{{Ref: &ref, Sim: &sim}, {}},
		Outcome:   domain.OutcomeAnswered,
	}
}

func TestServer_Query(t *testing.T) {
	fa := &fakeAnswerer{resp: answered()}
	srv := NewServer(fa, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":"posso trancar?"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"posso trancar?"}, fa.questions)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t,
		`{"answer":"O regulamento permite <sim>.","retrieved":[{"ref":"chunk_4","sim":0.731},{"ref":null,"sim":null}]}`,
		rec.Body.String())
}

func TestServer_MissingQuestionIsEmpty(t *testing.T) {
	fa := &fakeAnswerer{resp: domain.Response{Answer: "fallback", Retrieved: []domain.RetrievedRef{}}}
	srv := NewServer(fa, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{""}, fa.questions)
	assert.JSONEq(t, `{"answer":"fallback","retrieved":[]}`, rec.Body.String())
}

func TestServer_BadRequests(t *testing.T) {
	srv := NewServer(&fakeAnswerer{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"question":`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/query", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Health(t *testing.T) {
	srv := NewServer(&fakeAnswerer{}, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","index":"available"}`, rec.Body.String())

	srv = NewServer(&fakeAnswerer{}, nil, WithIndexAvailable(false))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"status":"ok","index":"unavailable"}`, rec.Body.String())
}

func TestClient_RoundTrip(t *testing.T) {
	fa := &fakeAnswerer{resp: answered()}
	ts := httptest.NewServer(NewServer(fa, nil))
	defer ts.Close()

	c := NewClient(ts.URL+"/query", time.Second)
	resp, err := c.Query(context.Background(), "posso trancar?")
	require.NoError(t, err)

	assert.Equal(t, "O regulamento permite <sim>.", resp.Answer)
	require.Len(t, resp.Retrieved, 2)
	assert.Equal(t, "chunk_4", *resp.Retrieved[0].Ref)
	assert.Equal(t, 0.731, *resp.Retrieved[0].Sim)
	assert.Nil(t, resp.Retrieved[1].Ref)
	assert.Nil(t, resp.Retrieved[1].Sim)
}

func TestClient_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, time.Second).Query(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestClient_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, time.Second).Query(context.Background(), "q")
	assert.Error(t, err)
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewClient(url, time.Second).Query(context.Background(), "q")
	assert.Error(t, err)
}

func TestServer_ListenAndServeShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewServer(&fakeAnswerer{}, nil).ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
