package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ModelUnloadThreshold is how long Ollama keeps a model resident in memory
// after its last call before evicting it. A request arriving after this gap
// pays a cold-start (model load) cost, so it gets a longer timeout.
const ModelUnloadThreshold = 5 * time.Minute

// OllamaEmbedder embeds text via a local Ollama server's /api/embed endpoint.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig
	modelName string
	dims      int

	mu       sync.Mutex
	closed   bool
	lastCall time.Time
}

// NewOllamaEmbedder connects to an Ollama server, resolving the configured
// model (falling back through cfg.FallbackModels) and auto-detecting its
// embedding dimensionality unless cfg.SkipHealthCheck is set.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = OllamaConnectTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = OllamaPoolSize
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		IdleConnTimeout:     90 * time.Second,
	}

	e := &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
	}

	if cfg.SkipHealthCheck {
		return e, nil
	}

	model, err := e.findAvailableModel(ctx)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("ollama: %w", err)
	}
	e.modelName = model

	if e.dims == 0 {
		dims, err := e.detectDimensions(ctx)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("ollama: detect dimensions: %w", err)
		}
		e.dims = dims
	}

	return e, nil
}

func (e *OllamaEmbedder) listModels(ctx context.Context) ([]OllamaModelInfo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, e.config.ConnectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(connectCtx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to ollama at %s: %w", e.config.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var list OllamaModelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	return list.Models, nil
}

// findAvailableModel tries the configured model, then each fallback in
// order, matching case-insensitively and ignoring a trailing ":tag".
func (e *OllamaEmbedder) findAvailableModel(ctx context.Context) (string, error) {
	models, err := e.listModels(ctx)
	if err != nil {
		return "", err
	}

	candidates := append([]string{e.config.Model}, e.config.FallbackModels...)
	for _, candidate := range candidates {
		for _, m := range models {
			if modelNameMatches(candidate, m.Name) {
				return m.Name, nil
			}
		}
	}

	return "", fmt.Errorf("none of the candidate models %v are pulled in ollama", candidates)
}

func modelNameMatches(want, have string) bool {
	strip := func(s string) string {
		if i := strings.Index(s, ":"); i >= 0 {
			return s[:i]
		}
		return s
	}
	return strings.EqualFold(strip(want), strip(have))
}

// detectDimensions probes the model with a single short string and reads
// back the embedding width.
func (e *OllamaEmbedder) detectDimensions(ctx context.Context) (int, error) {
	vecs, err := e.doEmbed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("empty embedding returned by probe")
	}
	return len(vecs[0]), nil
}

// getTimeout returns a longer timeout for a cold-start call (model not
// recently used) and a shorter one for a warm call.
func (e *OllamaEmbedder) getTimeout() time.Duration {
	if e.config.Timeout > 0 {
		return e.config.Timeout
	}

	e.mu.Lock()
	last := e.lastCall
	e.mu.Unlock()

	if last.IsZero() || time.Since(last) > ModelUnloadThreshold {
		return DefaultColdTimeout
	}
	return DefaultWarmTimeout
}

func (e *OllamaEmbedder) updateLastCall() {
	e.mu.Lock()
	e.lastCall = time.Now()
	e.mu.Unlock()
}

// EmbedBatch embeds texts in chunks of cfg.BatchSize. Empty/whitespace-only
// texts become zero vectors without a round trip to Ollama.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("ollama embedder is closed")
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var pending []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			results[i] = make([]float32, e.dims)
		} else {
			pending = append(pending, i)
		}
	}

	batchSize := e.config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	completed := 0
	total := len(pending)
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		idxBatch := pending[start:end]
		textBatch := make([]string, len(idxBatch))
		for j, idx := range idxBatch {
			textBatch[j] = texts[idx]
		}

		vecs, err := e.doEmbedWithRetry(ctx, textBatch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		for j, idx := range idxBatch {
			results[idx] = vecs[j]
		}

		completed += len(idxBatch)
		if e.config.ProgressFunc != nil {
			e.config.ProgressFunc(completed, total)
		}
	}

	return results, nil
}

func (e *OllamaEmbedder) doEmbedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	retryCfg := RetryConfig{
		MaxRetries:   e.config.MaxRetries,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Multiplier:   2.0,
	}

	err := WithRetry(ctx, retryCfg, func() error {
		vecs, err := e.doEmbed(ctx, texts)
		if err != nil {
			slog.Debug("ollama embed attempt failed", "error", err)
			return err
		}
		result = vecs
		return nil
	})
	return result, err
}

// doEmbed issues a single /api/embed request. The HTTP call runs in a
// goroutine raced against ctx.Done() so a cancelled CLI invocation (Ctrl+C)
// returns promptly instead of waiting out the full timeout.
func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.getTimeout())
	defer cancel()

	reqBody := OllamaEmbedRequest{Model: e.modelName, Input: texts}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	type result struct {
		vecs [][]float32
		err  error
	}
	done := make(chan result, 1)

	go func() {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
		if err != nil {
			done <- result{err: err}
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			done <- result{err: fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, raw)}
			return
		}

		var embedResp OllamaEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
			done <- result{err: fmt.Errorf("decode embed response: %w", err)}
			return
		}

		vecs := make([][]float32, len(embedResp.Embeddings))
		for i, v := range embedResp.Embeddings {
			f32 := make([]float32, len(v))
			for j, f := range v {
				f32[j] = float32(f)
			}
			vecs[i] = normalizeVector(f32)
		}
		done <- result{vecs: vecs}
	}()

	select {
	case <-callCtx.Done():
		e.ForceCloseConnections()
		return nil, callCtx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		e.updateLastCall()
		return r.vecs, nil
	}
}

func (e *OllamaEmbedder) Dimensions() int { return e.dims }

func (e *OllamaEmbedder) ModelName() string { return e.modelName }

// SetProgressFunc registers a callback invoked after each internal batch
// completes, for CLI progress reporting during indexing.
func (e *OllamaEmbedder) SetProgressFunc(fn func(completed, total int)) {
	e.config.ProgressFunc = fn
}

// Available checks that the embedder hasn't been closed and that its model
// is still reachable and pulled.
func (e *OllamaEmbedder) Available(ctx context.Context) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return fmt.Errorf("ollama embedder is closed")
	}

	models, err := e.listModels(ctx)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	for _, m := range models {
		if modelNameMatches(e.modelName, m.Name) {
			return nil
		}
	}
	return fmt.Errorf("model %q is no longer pulled in ollama", e.modelName)
}

// ForceCloseConnections aborts any idle pooled connections, used to unstick
// a cancelled in-flight request without waiting for the server to respond.
func (e *OllamaEmbedder) ForceCloseConnections() {
	e.transport.CloseIdleConnections()
}

func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
