// Package corpus loads benchmark input text. Corpora are named external
// plain-text datasets fetched over HTTP and cached on disk; when a
// dataset cannot be loaded a deterministic built-in sample set is used
// instead. The fallback changes the benchmark population, so it is
// always reported loudly and recorded on the run report.
package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/raglens/raglens/pkg/cache"
)

// Dataset describes one named external text corpus.
type Dataset struct {
	Name        string
	Description string
	URL         string
}

// DefaultDataset is used when the CLI does not name one.
const DefaultDataset = "wiki-snippets"

// builtinDatasets is the registry of known corpora. Each URL serves
// newline-delimited plain text.
var builtinDatasets = []Dataset{
	{
		Name:        "wiki-snippets",
		Description: "English Wikipedia lead paragraphs, one per line",
		URL:         "https://raw.githubusercontent.com/raglens/datasets/main/wiki-snippets.txt",
	},
	{
		Name:        "stackoverflow-titles",
		Description: "Programming question titles",
		URL:         "https://raw.githubusercontent.com/raglens/datasets/main/stackoverflow-titles.txt",
	},
	{
		Name:        "news-headlines",
		Description: "News headlines across topics",
		URL:         "https://raw.githubusercontent.com/raglens/datasets/main/news-headlines.txt",
	},
}

// fallbackTexts is the deterministic local sample set used when the
// requested dataset cannot be loaded. Fixed order, never shuffled at
// source, so degraded runs are at least comparable with each other.
var fallbackTexts = []string{
	"How do I connect two Docker containers on the same network?",
	"The quick brown fox jumps over the lazy dog near the river bank.",
	"Kubernetes pods keep restarting with CrashLoopBackOff after deploy.",
	"Preheat the oven to 220 degrees and roast the vegetables for 25 minutes.",
	"The central bank raised interest rates by a quarter point on Tuesday.",
	"Why does my Postgres query ignore the index on the timestamp column?",
	"A short history of the transistor and the birth of modern computing.",
	"Set the environment variable before starting the worker process.",
	"The marathon route passes through five neighborhoods and two bridges.",
	"Object storage versus block storage: choosing the right backend.",
	"Her research focuses on coral reef recovery after bleaching events.",
	"The release notes list three breaking changes in the public API.",
	"Streaming replication lag spiked during the nightly batch import.",
	"The museum's new wing houses a collection of early maps and globes.",
	"Rate limiting with a token bucket keeps burst traffic manageable.",
	"Compost needs a balance of green and brown material to break down.",
	"TLS handshake failures started after rotating the intermediate CA.",
	"The orchestra opened the season with a rarely performed symphony.",
	"Caching embeddings by content hash makes repeated runs nearly free.",
	"The trail gains a thousand meters over the final four kilometers.",
	"Vector databases trade exact results for speed at high dimensions.",
	"The ferry schedule changes twice a year with the tourist season.",
	"Use a context with timeout so a stuck request cannot block the pool.",
	"Sourdough starter needs feeding twice a day at room temperature.",
	"The satellite completed its thousandth orbit ahead of schedule.",
	"Profiling showed most of the time spent in JSON serialization.",
	"The committee published new guidelines for citing datasets.",
	"Backpressure keeps the producer from overwhelming slow consumers.",
	"The lighthouse keeper's log records storms back to 1887.",
	"Idempotent writes make crash recovery a matter of re-running.",
	"The glacier has retreated visibly in photographs a decade apart.",
	"Sharding by tenant keeps noisy neighbors from hurting everyone.",
}

// Loader fetches and samples corpus text.
type Loader struct {
	cache  cache.Cache
	client *http.Client
	logger *slog.Logger
}

// LoadResult is the sampled corpus plus its provenance. Degraded is
// true when the fallback sample set replaced the requested dataset.
type LoadResult struct {
	Dataset  string
	Texts    []string
	Degraded bool
}

// NewLoader creates a corpus loader. The cache may be nil, in which
// case every load fetches the dataset again.
func NewLoader(c cache.Cache, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		cache:  c,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// List returns the known datasets sorted by name.
func List() []Dataset {
	out := make([]Dataset, len(builtinDatasets))
	copy(out, builtinDatasets)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a dataset by name.
func Lookup(name string) (Dataset, bool) {
	for _, d := range builtinDatasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

// Load returns n texts sampled from the named dataset with a seeded
// shuffle, so identical (dataset, n, seed) inputs always produce the
// same sample. Load never fails: an unloadable dataset degrades to the
// built-in sample set with a WARN log.
func (l *Loader) Load(ctx context.Context, name string, n int, seed int64) LoadResult {
	if name == "" {
		name = DefaultDataset
	}

	texts, err := l.fetch(ctx, name)
	if err != nil {
		l.logger.Warn("dataset unavailable, falling back to built-in sample set; results are not comparable with non-degraded runs",
			"dataset", name,
			"error", err,
			"fallback_size", len(fallbackTexts),
		)
		return LoadResult{
			Dataset:  name,
			Texts:    sample(fallbackTexts, n, seed),
			Degraded: true,
		}
	}

	return LoadResult{
		Dataset: name,
		Texts:   sample(texts, n, seed),
	}
}

func (l *Loader) fetch(ctx context.Context, name string) ([]string, error) {
	ds, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q", name)
	}

	key := "dataset:" + ds.Name
	if l.cache != nil {
		if data, err := l.cache.Get(ctx, key); err == nil && data != nil {
			return splitLines(string(data)), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ds.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ds.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", ds.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ds.URL, err)
	}

	lines := splitLines(string(body))
	if len(lines) == 0 {
		return nil, fmt.Errorf("dataset %q is empty", name)
	}

	if l.cache != nil {
		// Datasets change rarely; a day of staleness is fine.
		_ = l.cache.Set(ctx, key, body, 24*time.Hour)
	}
	return lines, nil
}

func splitLines(s string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// sample returns n texts using a seeded shuffle. When n exceeds the
// corpus size, texts repeat in shuffled order so chunking math still
// sees exactly n inputs.
func sample(texts []string, n int, seed int64) []string {
	if n <= 0 || len(texts) == 0 {
		return nil
	}

	shuffled := make([]string, len(texts))
	copy(shuffled, texts)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = shuffled[i%len(shuffled)]
	}
	return out
}
