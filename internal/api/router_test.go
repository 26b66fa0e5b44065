package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/kabar/internal/category"
	"github.com/kalambet/kabar/internal/corpus"
	"github.com/kalambet/kabar/internal/model"
	"github.com/kalambet/kabar/internal/normalize"
	"github.com/kalambet/kabar/internal/storage"
)

const testToken = "test-token-12345"

type testEnv struct {
	handler http.Handler
	store   *storage.Store
	manager *model.Manager
	svc     *corpus.Service
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupHandler(t *testing.T, token string) *testEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cats := category.Default()
	mgr := model.NewManager(corpus.NewSource(store), normalize.New(), cats, model.Options{Logger: quietLogger()})
	svc := corpus.NewService(store, mgr, cats, quietLogger())

	return &testEnv{
		handler: NewHandler(Deps{
			Corpus: svc,
			Model:  mgr,
			Store:  store,
			Token:  token,
			Logger: quietLogger(),
		}),
		store:   store,
		manager: mgr,
		svc:     svc,
	}
}

// seedDoc returns the first seed document labeled with cat.
func seedDoc(t *testing.T, cat string) corpus.LabeledInput {
	t.Helper()
	docs, err := corpus.SeedDocuments()
	if err != nil {
		t.Fatalf("SeedDocuments: %v", err)
	}
	for _, d := range docs {
		if d.Label == cat {
			return d
		}
	}
	t.Fatalf("no seed document for %s", cat)
	return corpus.LabeledInput{}
}

// seeded returns an env whose store holds the seed corpus and whose model is published.
func seeded(t *testing.T) *testEnv {
	t.Helper()
	env := setupHandler(t, testToken)
	ctx := context.Background()
	if _, err := env.svc.Seed(ctx); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if _, err := env.manager.Retrain(ctx); err != nil {
		t.Fatalf("Retrain failed: %v", err)
	}
	return env
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	return resp.Error.Type
}

func TestHealth_BeforeFirstTrain(t *testing.T) {
	env := setupHandler(t, "")

	rr := serve(env, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Status string        `json:"status"`
		Model  ModelResponse `json:"model"`
	}
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Model.Ready || resp.Model.State != "uninitialized" {
		t.Errorf("model = %+v, want uninitialized and not ready", resp.Model)
	}
	if resp.Model.TrainedAt != nil {
		t.Errorf("trained_at = %v, want omitted", resp.Model.TrainedAt)
	}
}

func TestClassify_NotReady(t *testing.T) {
	env := setupHandler(t, "")

	rr := serve(env, authReq(http.MethodPost, "/classify", `{"title":"Harga saham naik"}`, ""))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	if typ := errorType(t, rr); typ != "not_ready" {
		t.Errorf("error type = %q, want not_ready", typ)
	}
}

func TestClassify_InvalidBody(t *testing.T) {
	env := setupHandler(t, "")

	rr := serve(env, authReq(http.MethodPost, "/classify", `{not json`, ""))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestClassify_SeedDocumentMatchesItself(t *testing.T) {
	env := seeded(t)

	doc := seedDoc(t, "Politik")
	body, _ := json.Marshal(ClassifyRequest{Title: doc.Title, Body: doc.Body})
	rr := serve(env, authReq(http.MethodPost, "/classify", string(body), ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	var resp ClassifyResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Category != "Politik" {
		t.Errorf("category = %q, want Politik", resp.Category)
	}
	if resp.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", resp.Confidence)
	}
	if resp.Generation != 1 {
		t.Errorf("generation = %d, want 1", resp.Generation)
	}

	n, _ := env.store.CountNews(context.Background())
	if n != 50 {
		t.Errorf("classify stored a document: count = %d, want 50", n)
	}
}

func TestClassify_EmptyInputStillPredicts(t *testing.T) {
	env := seeded(t)

	rr := serve(env, authReq(http.MethodPost, "/classify", `{"title":"","body":""}`, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp ClassifyResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	// Ten seed documents per category: equal counts go to the first label
	// trained, with a fifth of the corpus as confidence.
	if resp.Category != "Politik" {
		t.Errorf("category = %q, want Politik", resp.Category)
	}
	if resp.Confidence < 0.2-1e-9 || resp.Confidence > 0.2+1e-9 {
		t.Errorf("confidence = %v, want 0.2", resp.Confidence)
	}
}

func TestAuth_MutatingEndpointsRequireToken(t *testing.T) {
	env := setupHandler(t, testToken)

	for _, path := range []string{"/news", "/news/labeled", "/news/labeled/batch", "/train"} {
		rr := serve(env, authReq(http.MethodPost, path, `{}`, ""))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("POST %s without token: status = %d, want %d", path, rr.Code, http.StatusUnauthorized)
		}
		rr = serve(env, authReq(http.MethodPost, path, `{}`, "wrong-token"))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("POST %s with wrong token: status = %d, want %d", path, rr.Code, http.StatusUnauthorized)
		}
	}

	rr := serve(env, httptest.NewRequest(http.MethodGet, "/categories", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("GET /categories without token: status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuth_DisabledWithoutToken(t *testing.T) {
	env := setupHandler(t, "")

	body := `{"title":"Harga saham bank naik","body":"Saham perbankan menguat","category":"Ekonomi"}`
	rr := serve(env, authReq(http.MethodPost, "/news/labeled", body, ""))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
}

func TestTrain_EmptyCorpus(t *testing.T) {
	env := setupHandler(t, testToken)

	rr := serve(env, authReq(http.MethodPost, "/train", "", testToken))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
	if typ := errorType(t, rr); typ != "empty_corpus" {
		t.Errorf("error type = %q, want empty_corpus", typ)
	}
}

func TestTrain_PublishesNextGeneration(t *testing.T) {
	env := seeded(t)

	rr := serve(env, authReq(http.MethodPost, "/train", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp TrainResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Generation != 2 {
		t.Errorf("generation = %d, want 2", resp.Generation)
	}
	if resp.Documents != 50 {
		t.Errorf("documents = %d, want 50", resp.Documents)
	}
	if resp.RunID == "" {
		t.Error("run_id is empty")
	}
}

func TestAddLabeled_StoresAndTrains(t *testing.T) {
	env := setupHandler(t, testToken)

	body := `{"title":"Harga saham bank naik","body":"Saham perbankan menguat di bursa","category":"Ekonomi"}`
	rr := serve(env, authReq(http.MethodPost, "/news/labeled", body, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	var resp NewsResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.ID == "" || resp.Category != "Ekonomi" || resp.Source != storage.SourceLabeled {
		t.Errorf("response = %+v", resp)
	}
	if resp.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", resp.Confidence)
	}

	st := env.manager.Status()
	if !st.Ready || st.Generation != 1 || st.Documents != 1 {
		t.Errorf("model status = %+v, want generation 1 trained on 1 document", st)
	}
}

func TestAddLabeled_InvalidLabel(t *testing.T) {
	env := setupHandler(t, testToken)

	body := `{"title":"Resep rendang","body":"Daging sapi dimasak lama","category":"Kuliner"}`
	rr := serve(env, authReq(http.MethodPost, "/news/labeled", body, testToken))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	if typ := errorType(t, rr); typ != "invalid_label" {
		t.Errorf("error type = %q, want invalid_label", typ)
	}

	n, _ := env.store.CountNews(context.Background())
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestAddLabeled_EmptyDocument(t *testing.T) {
	env := setupHandler(t, testToken)

	rr := serve(env, authReq(http.MethodPost, "/news/labeled", `{"title":"  ","body":"","category":"Ekonomi"}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if typ := errorType(t, rr); typ != "empty_document" {
		t.Errorf("error type = %q, want empty_document", typ)
	}
}

func TestSubmit_NotReady(t *testing.T) {
	env := setupHandler(t, testToken)

	rr := serve(env, authReq(http.MethodPost, "/news", `{"title":"Harga cabai naik"}`, testToken))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestSubmit_ClassifiesAndStores(t *testing.T) {
	env := seeded(t)

	body := `{"title":"Timnas menang di final","body":"Gol di menit akhir membawa tim nasional juara"}`
	rr := serve(env, authReq(http.MethodPost, "/news", body, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}

	var resp SubmitResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Source != storage.SourceClassified {
		t.Errorf("source = %q, want %q", resp.Source, storage.SourceClassified)
	}
	if resp.Generation != 1 {
		t.Errorf("generation = %d, want 1", resp.Generation)
	}
	if resp.Confidence <= 0 || resp.Confidence > 1 {
		t.Errorf("confidence = %v, want in (0,1]", resp.Confidence)
	}

	stored, err := env.store.GetNews(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("GetNews(%q) failed: %v", resp.ID, err)
	}
	if stored.Label != resp.Category {
		t.Errorf("stored label = %q, response category = %q", stored.Label, resp.Category)
	}
	if g := env.manager.Status().Generation; g != 2 {
		t.Errorf("generation after submit = %d, want 2", g)
	}
}

func TestSubmit_HTMLFormat(t *testing.T) {
	env := seeded(t)

	body := `{"title":"Timnas menang","body":"<p>Timnas <b>menang</b></p><script>track()</script>","format":"html"}`
	rr := serve(env, authReq(http.MethodPost, "/news", body, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp SubmitResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Body != "Timnas menang" {
		t.Errorf("body = %q, want %q", resp.Body, "Timnas menang")
	}
}

func TestSubmit_UnknownFormat(t *testing.T) {
	env := seeded(t)

	rr := serve(env, authReq(http.MethodPost, "/news", `{"title":"x","format":"markdown"}`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if typ := errorType(t, rr); typ != "invalid_request_error" {
		t.Errorf("error type = %q, want invalid_request_error", typ)
	}
}

func TestImport_Batch(t *testing.T) {
	env := setupHandler(t, testToken)

	body := `[
		{"title":"Harga saham naik","body":"Bursa menguat","category":"Ekonomi"},
		{"title":"Timnas menang","body":"Gol di menit akhir","category":"Olahraga"}
	]`
	rr := serve(env, authReq(http.MethodPost, "/news/labeled/batch", body, testToken))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp ImportResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Imported != 2 || len(resp.News) != 2 {
		t.Errorf("imported = %d (%d news), want 2", resp.Imported, len(resp.News))
	}
	if g := env.manager.Status().Generation; g != 1 {
		t.Errorf("generation = %d, want 1 retrain for the batch", g)
	}
}

func TestImport_InvalidItemStoresNothing(t *testing.T) {
	env := setupHandler(t, testToken)

	body := `[
		{"title":"Harga saham naik","body":"Bursa menguat","category":"Ekonomi"},
		{"title":"Resep rendang","body":"Daging sapi","category":"Kuliner"}
	]`
	rr := serve(env, authReq(http.MethodPost, "/news/labeled/batch", body, testToken))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnprocessableEntity)
	}
	n, _ := env.store.CountNews(context.Background())
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestImport_EmptyBatch(t *testing.T) {
	env := setupHandler(t, testToken)

	rr := serve(env, authReq(http.MethodPost, "/news/labeled/batch", `[]`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestListNews_NewestFirstWithPaging(t *testing.T) {
	env := setupHandler(t, testToken)

	for _, title := range []string{"satu", "dua", "tiga"} {
		body := `{"title":"` + title + ` saham","body":"bursa","category":"Ekonomi"}`
		if rr := serve(env, authReq(http.MethodPost, "/news/labeled", body, testToken)); rr.Code != http.StatusCreated {
			t.Fatalf("add %s: status = %d", title, rr.Code)
		}
	}

	rr := serve(env, httptest.NewRequest(http.MethodGet, "/news?limit=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var items []NewsResponse
	json.NewDecoder(rr.Body).Decode(&items)
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Title != "tiga saham" || items[1].Title != "dua saham" {
		t.Errorf("order = %q, %q; want newest first", items[0].Title, items[1].Title)
	}

	rr = serve(env, httptest.NewRequest(http.MethodGet, "/news?limit=2&offset=2", nil))
	json.NewDecoder(rr.Body).Decode(&items)
	if len(items) != 1 || items[0].Title != "satu saham" {
		t.Errorf("second page = %+v", items)
	}
}

func TestListNews_Empty(t *testing.T) {
	env := setupHandler(t, "")

	rr := serve(env, httptest.NewRequest(http.MethodGet, "/news", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestListCategoryNews(t *testing.T) {
	env := seeded(t)

	rr := serve(env, httptest.NewRequest(http.MethodGet, "/news/Olahraga", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var items []NewsResponse
	json.NewDecoder(rr.Body).Decode(&items)
	if len(items) != 10 {
		t.Fatalf("len = %d, want 10", len(items))
	}
	for _, it := range items {
		if it.Category != "Olahraga" {
			t.Errorf("category = %q, want Olahraga", it.Category)
		}
	}

	rr = serve(env, httptest.NewRequest(http.MethodGet, "/news/Kuliner", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown category: status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetNews(t *testing.T) {
	env := seeded(t)

	items, err := env.store.ListNews(context.Background(), storage.NewsFilter{Limit: 1})
	if err != nil || len(items) != 1 {
		t.Fatalf("ListNews: %v (%d items)", err, len(items))
	}

	rr := serve(env, httptest.NewRequest(http.MethodGet, "/news/id/"+items[0].ID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp NewsResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.ID != items[0].ID || resp.Source != storage.SourceSeed {
		t.Errorf("response = %+v", resp)
	}

	rr = serve(env, httptest.NewRequest(http.MethodGet, "/news/id/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing id: status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCategories(t *testing.T) {
	env := setupHandler(t, "")

	rr := serve(env, httptest.NewRequest(http.MethodGet, "/categories", nil))
	var resp map[string][]string
	json.NewDecoder(rr.Body).Decode(&resp)
	if got := strings.Join(resp["categories"], ","); got != "Politik,Olahraga,Teknologi,Hiburan,Ekonomi" {
		t.Errorf("categories = %s", got)
	}
}

func TestCategoryStats_IncludesEmptyCategories(t *testing.T) {
	env := setupHandler(t, testToken)

	body := `{"title":"Harga saham naik","body":"Bursa menguat","category":"Ekonomi"}`
	serve(env, authReq(http.MethodPost, "/news/labeled", body, testToken))

	rr := serve(env, httptest.NewRequest(http.MethodGet, "/categories/stats", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var stats []category.Count
	json.NewDecoder(rr.Body).Decode(&stats)
	if len(stats) != 5 {
		t.Fatalf("len = %d, want 5", len(stats))
	}
	for _, s := range stats {
		want := 0
		if s.Category == "Ekonomi" {
			want = 1
		}
		if s.Count != want {
			t.Errorf("%s = %d, want %d", s.Category, s.Count, want)
		}
	}
}

func TestModel_AfterTraining(t *testing.T) {
	env := seeded(t)

	rr := serve(env, httptest.NewRequest(http.MethodGet, "/model", nil))
	var resp ModelResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.Ready || resp.State != "published" {
		t.Errorf("model = %+v, want published and ready", resp)
	}
	if resp.Documents != 50 || resp.Labels["Hiburan"] != 10 {
		t.Errorf("documents = %d, labels = %v", resp.Documents, resp.Labels)
	}
	if resp.TrainedAt == nil {
		t.Error("trained_at missing")
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=500", 100},
		{"limit=-1", 20},
		{"limit=abc", 20},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/news?"+tt.query, nil)
		if got := parseIntParam(r, "limit", 20, 100); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
