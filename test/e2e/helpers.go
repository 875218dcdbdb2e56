//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/corpusd/internal/api/handlers"
	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/pipeline"
	"github.com/cloo-solutions/corpusd/internal/repository"
	"github.com/cloo-solutions/corpusd/internal/server"
	"github.com/cloo-solutions/corpusd/internal/service"
	"github.com/cloo-solutions/corpusd/internal/storage"
	"github.com/cloo-solutions/corpusd/internal/tabular"
	"github.com/cloo-solutions/corpusd/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// testAPIToken is the static bearer token the test server accepts.
const testAPIToken = "crp_e2e0123456789abcdef0123456789abcdef0123456789abcdef0123456789ab"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	SourcePath   string
	APIToken     string
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	// Start PostgreSQL container
	pgC := testutil.NewPostgresContainer(ctx, t)

	// Start RustFS container
	s3C := testutil.NewRustFSContainer(ctx, t)

	// Create connection pool and run migrations
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	// Create S3 client
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-archive",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	// Source file the sync engine watches
	sourcePath := filepath.Join(t.TempDir(), "knowledge.csv")
	if err := writeSourceFile(sourcePath, nil); err != nil {
		t.Fatalf("failed to seed source file: %v", err)
	}

	// Find free port for server
	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	// Start HTTP server
	serverURL, serverCloser := startServer(t, pool, s3Client, sourcePath, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		SourcePath:   sourcePath,
		APIToken:     testAPIToken,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	// Clean up binaries
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// WriteSource replaces the watched source file with the given rows.
// Each row is prompt, answer, schema_type, category, business_unit.
func (e *E2ETestEnv) WriteSource(rows [][]string) {
	if err := writeSourceFile(e.SourcePath, rows); err != nil {
		e.T.Fatalf("failed to write source file: %v", err)
	}
}

func writeSourceFile(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"prompt", "answer", "schema_type", "category", "business_unit"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// BuildBinaries builds the corpus and corpusd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "corpus-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	// Build corpusd
	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "corpusd"), "./cmd/corpusd")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build corpusd: %v\n%s", err, out)
	}

	// Build corpus
	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "corpus"), "./cmd/corpus")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build corpus: %v\n%s", err, out)
	}
}

// RunCorpus runs the corpus CLI command
func (e *E2ETestEnv) RunCorpus(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "corpus"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("CORPUS_API_TOKEN=%s", e.APIToken),
		fmt.Sprintf("CORPUS_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// RunCorpusWithInput runs the corpus CLI command with stdin input
func (e *E2ETestEnv) RunCorpusWithInput(workDir string, input string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "corpus"), args...)
	cmd.Dir = workDir
	cmd.Stdin = bytes.NewReader([]byte(input))
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("CORPUS_API_TOKEN=%s", e.APIToken),
		fmt.Sprintf("CORPUS_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(respBody) == 0 {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// DownloadFile downloads a file from the presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// SHA256Sum calculates SHA256 hash of data
func SHA256Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, sourcePath string, port int) (string, func()) {
	// Initialize repositories
	contentRepo := repository.NewContentRepository(pool)
	syncRunRepo := repository.NewSyncRunRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	enhancer, err := pipeline.New(pipeline.DefaultConfig(), 30*time.Second)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	// Initialize services
	contentSvc := service.NewContentService(contentRepo, txRunner, enhancer, s3Client)
	filterSvc := service.NewFilterService(contentRepo)
	reader := tabular.NewReader(sourcePath, tabular.DefaultSourceSchema())
	syncSvc := service.NewSyncService(reader, contentRepo, txRunner, syncRunRepo)

	// Initialize handlers
	contentHandler := handlers.NewContentHandler(contentSvc)
	queryHandler := handlers.NewQueryHandler(&lexicalSearchService{repo: contentRepo}, filterSvc)
	syncHandler := handlers.NewSyncHandler(syncSvc)

	cfg := server.RouterConfig{
		APIToken:       testAPIToken,
		ContentHandler: contentHandler,
		QueryHandler:   queryHandler,
		SyncHandler:    syncHandler,
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to start
	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// lexicalSearchService answers search requests without an embedding
// backend so the E2E suite runs offline. It scans both provenances and
// scores by substring presence only.
type lexicalSearchService struct {
	repo service.ContentRepositoryInterface
}

func (s *lexicalSearchService) Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error) {
	var units []*domain.ContentUnit
	for _, prov := range []domain.Provenance{domain.ProvenanceUpload, domain.ProvenanceBulk} {
		list, err := s.repo.ListByProvenance(ctx, prov)
		if err != nil {
			return nil, err
		}
		units = append(units, list...)
	}

	results := make([]*service.SearchResult, 0)
	for _, u := range units {
		if containsIgnoreCase(u.Text, input.Query) {
			snippet := u.Text
			if len(snippet) > 220 {
				snippet = snippet[:220]
			}
			results = append(results, &service.SearchResult{
				Unit:    u,
				Score:   0.9,
				Snippet: snippet,
			})
		}
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(results) > limit {
		results = results[:limit]
	}

	return &service.SearchOutput{
		Results: results,
		Total:   len(results),
	}, nil
}

func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
