package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devnote/internal/auth"
	"github.com/sakif/devnote/internal/cloudsync"
	"github.com/sakif/devnote/internal/export"
	"github.com/sakif/devnote/internal/handler"
	"github.com/sakif/devnote/internal/model"
	"github.com/sakif/devnote/internal/normalize"
	"github.com/sakif/devnote/internal/notebook"
	sqliteRepo "github.com/sakif/devnote/internal/repository/sqlite"
	"github.com/sakif/devnote/internal/service"
)

// =========================================================================
// TEST HARNESS
// =========================================================================

type testAPI struct {
	router http.Handler
	store  *cloudsync.MemoryStore
}

// newTestAPI wires real services over an in-memory database. With sync set
// the notebook service pushes to an in-memory document store.
func newTestAPI(t *testing.T, sync bool) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	api := &testAPI{}
	var opts []service.Option
	if sync {
		api.store = cloudsync.NewMemoryStore()
		opts = append(opts, service.WithSyncer(cloudsync.NewSyncer(api.store, time.Hour, logger)))
	}
	notebooks := service.NewNotebookService(db, notebook.DefaultOptions(), logger, opts...)
	normalizer, err := normalize.New(normalize.DefaultConfig(), logger)
	require.NoError(t, err)
	transfers := service.NewTransferService(notebooks, normalizer, export.New(export.DefaultOptions()), logger)

	notes := handler.NewNoteHandler(notebooks, logger)
	cats := handler.NewCategoryHandler(notebooks, logger)
	views := handler.NewViewHandler(notebooks, logger)
	norm := handler.NewNormalizeHandler(normalizer, logger)
	xfer := handler.NewTransferHandler(transfers, 1<<20, logger)
	syncs := handler.NewSyncHandler(notebooks, logger)

	r := chi.NewRouter()
	r.Post("/api/normalize", norm.HandleNormalize)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireOwner(nil, "tester"))
		r.Get("/api/notes", notes.HandleList)
		r.Post("/api/notes", notes.HandleCreate)
		r.Get("/api/notes/{id}", notes.HandleGet)
		r.Put("/api/notes/{id}", notes.HandleUpdate)
		r.Delete("/api/notes/{id}", notes.HandleDelete)
		r.Get("/api/categories", cats.HandleList)
		r.Post("/api/categories", cats.HandleCreate)
		r.Get("/api/categories/tree", cats.HandleTree)
		r.Put("/api/categories/{id}", cats.HandleUpdate)
		r.Delete("/api/categories/{id}", cats.HandleDelete)
		r.Get("/api/tags", views.HandleTags)
		r.Get("/api/view-mode", views.HandleGetViewMode)
		r.Put("/api/view-mode", views.HandleSetViewMode)
		r.Post("/api/import", xfer.HandleImport)
		r.Get("/api/export", xfer.HandleExport)
		r.Post("/api/sync/push", syncs.HandlePush)
		r.Post("/api/sync/pull", syncs.HandlePull)
	})
	api.router = r
	return api
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, errType string) handler.ErrorResponse {
	t.Helper()
	require.Equal(t, status, rr.Code, "body: %s", rr.Body.String())
	res := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, errType, res.Error)
	assert.NotEmpty(t, res.Message)
	return res
}

// =========================================================================
// NOTES
// =========================================================================

func TestNotes_CRUD(t *testing.T) {
	api := newTestAPI(t, false)

	rr := api.do(t, http.MethodPost, "/api/notes",
		`{"title":"Goroutines","content":"use channels","categoryId":"cat_back","tags":["go"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.Note](t, rr)
	assert.Equal(t, "Backend", created.Category)
	assert.NotEmpty(t, created.ID)

	rr = api.do(t, http.MethodGet, "/api/notes/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Goroutines", decode[model.Note](t, rr).Title)

	rr = api.do(t, http.MethodPut, "/api/notes/"+created.ID, `{"title":"Channels","category":"Frontend"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[model.Note](t, rr)
	assert.Equal(t, "Channels", updated.Title)
	assert.Equal(t, "Frontend", updated.Category)
	assert.Equal(t, "use channels", updated.Content)

	rr = api.do(t, http.MethodDelete, "/api/notes/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/notes/"+created.ID, "")
	assertError(t, rr, http.StatusNotFound, "not_found")
}

func TestNotes_ListFilters(t *testing.T) {
	api := newTestAPI(t, false)
	api.do(t, http.MethodPost, "/api/notes", `{"title":"React hooks","categoryId":"cat_front","tags":["react"]}`)
	api.do(t, http.MethodPost, "/api/notes", `{"title":"SQL joins","categoryId":"cat_back","tags":["sql"]}`)

	tests := []struct {
		name   string
		query  string
		titles []string
	}{
		{"all", "", []string{"SQL joins", "React hooks", "Welcome to DevNote"}},
		{"search", "?q=hooks", []string{"React hooks"}},
		{"category subtree", "?category=cat_dev", []string{"SQL joins", "React hooks"}},
		{"tag", "?tag=sql", []string{"SQL joins"}},
		{"search wins over category", "?q=react&category=cat_back", []string{"React hooks"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodGet, "/api/notes"+tt.query, "")
			require.Equal(t, http.StatusOK, rr.Code)
			var titles []string
			for _, n := range decode[[]model.Note](t, rr) {
				titles = append(titles, n.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestNotes_BadRequests(t *testing.T) {
	api := newTestAPI(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		field  string
	}{
		{"missing title", http.MethodPost, "/api/notes", `{"content":"x"}`, "title"},
		{"blank title", http.MethodPost, "/api/notes", `{"title":"   "}`, "title"},
		{"title too long", http.MethodPost, "/api/notes", `{"title":"` + strings.Repeat("x", 201) + `"}`, "title"},
		{"unknown category id", http.MethodPost, "/api/notes", `{"title":"t","categoryId":"nope"}`, "categoryId"},
		{"malformed json", http.MethodPost, "/api/notes", `{"title":`, "body"},
		{"empty body", http.MethodPost, "/api/notes", ``, "body"},
		{"blank title on update", http.MethodPut, "/api/notes/1", `{"title":""}`, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, tt.method, tt.path, tt.body)
			res := assertError(t, rr, http.StatusBadRequest, "validation_error")
			assert.Equal(t, tt.field, res.Field)
		})
	}
}

// =========================================================================
// CATEGORIES
// =========================================================================

func TestCategories_CreateAndConflict(t *testing.T) {
	api := newTestAPI(t, false)

	rr := api.do(t, http.MethodPost, "/api/categories", `{"name":"Go","parentId":"cat_back"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	c := decode[model.Category](t, rr)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, "cat_back", *c.ParentID)

	rr = api.do(t, http.MethodPost, "/api/categories", `{"name":"GO"}`)
	assertError(t, rr, http.StatusConflict, "conflict")

	rr = api.do(t, http.MethodPost, "/api/categories", `{"name":"x","parentId":"ghost"}`)
	assertError(t, rr, http.StatusNotFound, "not_found")
}

func TestCategories_Update(t *testing.T) {
	api := newTestAPI(t, false)

	rr := api.do(t, http.MethodPut, "/api/categories/cat_back", `{"name":"Server"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	c := decode[model.Category](t, rr)
	assert.Equal(t, "Server", c.Name)
	require.NotNil(t, c.ParentID, "a rename alone does not move")
	assert.Equal(t, "cat_dev", *c.ParentID)

	rr = api.do(t, http.MethodPut, "/api/categories/cat_back", `{"parentId":null}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, decode[model.Category](t, rr).ParentID)

	rr = api.do(t, http.MethodPut, "/api/categories/cat_dev", `{"parentId":"cat_front"}`)
	assertError(t, rr, http.StatusBadRequest, "validation_error")

	rr = api.do(t, http.MethodPut, "/api/categories/cat_dev", `{}`)
	assertError(t, rr, http.StatusBadRequest, "validation_error")

	rr = api.do(t, http.MethodPut, "/api/categories/all", `{"name":"Everything"}`)
	assertError(t, rr, http.StatusForbidden, "forbidden")
}

func TestCategories_DeleteAndTree(t *testing.T) {
	api := newTestAPI(t, false)
	api.do(t, http.MethodPost, "/api/notes", `{"title":"a","categoryId":"cat_front"}`)

	rr := api.do(t, http.MethodGet, "/api/categories/tree", "")
	require.Equal(t, http.StatusOK, rr.Code)
	tree := decode[model.CategoryTree](t, rr)
	assert.Equal(t, 2, tree.TotalNotes)
	require.Len(t, tree.Roots, 2)
	assert.Equal(t, "cat_dev", tree.Roots[1].ID)
	assert.Equal(t, 1, tree.Roots[1].TotalCount)

	rr = api.do(t, http.MethodDelete, "/api/categories/cat_front", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"notesMoved":0}`, rr.Body.String())

	rr = api.do(t, http.MethodDelete, "/api/categories/all", "")
	assertError(t, rr, http.StatusForbidden, "forbidden")

	rr = api.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Category](t, rr), 3)
}

// =========================================================================
// TAGS & VIEW MODE
// =========================================================================

func TestTags(t *testing.T) {
	api := newTestAPI(t, false)
	api.do(t, http.MethodPost, "/api/notes", `{"title":"a","tags":["zeta"," alpha "]}`)

	rr := api.do(t, http.MethodGet, "/api/tags", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"Tutorial", "alpha", "zeta"}, decode[[]string](t, rr))
}

func TestViewMode(t *testing.T) {
	api := newTestAPI(t, false)

	rr := api.do(t, http.MethodGet, "/api/view-mode", "")
	assert.JSONEq(t, `{"mode":"compact"}`, rr.Body.String())

	rr = api.do(t, http.MethodPut, "/api/view-mode", `{"mode":"detailed"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/view-mode", "")
	assert.JSONEq(t, `{"mode":"detailed"}`, rr.Body.String())

	rr = api.do(t, http.MethodPut, "/api/view-mode", `{"mode":"huge"}`)
	res := assertError(t, rr, http.StatusBadRequest, "validation_error")
	assert.Equal(t, "mode", res.Field)
}

// =========================================================================
// NORMALIZE
// =========================================================================

func TestNormalize(t *testing.T) {
	api := newTestAPI(t, false)

	tests := []struct {
		name   string
		body   string
		format string
		want   string
	}{
		{"html wins", `{"html":"<p><strong>hi</strong></p>","text":"h1. ignored"}`, "html", "**hi**"},
		{"wiki text", `{"text":"h2. Setup"}`, "wiki", "## Setup"},
		{"plain text", `{"text":"just words"}`, "plain", "just words"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodPost, "/api/normalize", tt.body)
			require.Equal(t, http.StatusOK, rr.Code)
			res := decode[normalize.Result](t, rr)
			assert.Equal(t, normalize.Format(tt.format), res.Format)
			assert.Contains(t, res.Markdown, tt.want)
		})
	}
}

// =========================================================================
// IMPORT & EXPORT
// =========================================================================

func upload(t *testing.T, api *testAPI, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "x"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	return rr
}

func TestImport(t *testing.T) {
	api := newTestAPI(t, false)

	rr := upload(t, api, "page.html", []byte(`<h2>Deploy</h2><p>Run <code>make</code></p>`))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	note := decode[model.Note](t, rr)
	assert.Equal(t, "[Import] page.html", note.Title)
	assert.Equal(t, []string{"import"}, note.Tags)
	assert.Contains(t, note.Content, "`make`")
}

func TestImport_Rejected(t *testing.T) {
	api := newTestAPI(t, false)

	assertError(t, upload(t, api, "notes.txt", []byte("x")), http.StatusBadRequest, "validation_error")
	assertError(t, upload(t, api, "", nil), http.StatusBadRequest, "validation_error")
	assertError(t, upload(t, api, "big.html", bytes.Repeat([]byte("a"), 2<<20)), http.StatusBadRequest, "validation_error")

	rr := api.do(t, http.MethodPost, "/api/import", `{"file":"x"}`)
	assertError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestExport(t *testing.T) {
	api := newTestAPI(t, false)

	rr := api.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="DevNote_Export_\d{4}-\d{2}-\d{2}\.html"$`,
		rr.Header().Get("Content-Disposition"))
	assert.Contains(t, rr.Body.String(), "Welcome to DevNote")
}

// =========================================================================
// SYNC
// =========================================================================

func TestSync_Disabled(t *testing.T) {
	api := newTestAPI(t, false)

	assertError(t, api.do(t, http.MethodPost, "/api/sync/push", ""), http.StatusServiceUnavailable, "sync_disabled")
	assertError(t, api.do(t, http.MethodPost, "/api/sync/pull", ""), http.StatusServiceUnavailable, "sync_disabled")
}

func TestSync_PushThenPull(t *testing.T) {
	api := newTestAPI(t, true)

	rr := api.do(t, http.MethodPost, "/api/sync/pull", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"found":false}`, rr.Body.String())

	rr = api.do(t, http.MethodPost, "/api/sync/push", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	doc, ok, err := api.store.Get(t.Context(), cloudsync.DocumentPath("tester"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, doc, "snippets")
	assert.Contains(t, doc, "lastSynced")

	rr = api.do(t, http.MethodPost, "/api/sync/pull", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"found":true}`, rr.Body.String())
}
