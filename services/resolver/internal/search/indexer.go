// Package search indexes resolved media in Meilisearch.
package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/loviiin/unmark/services/resolver/internal/media"
)

const primaryKey = "id"

// Doc is the indexed shape of a resolution.
type Doc struct {
	ID         string   `json:"id"`
	SourceURL  string   `json:"source_url"`
	Platform   string   `json:"platform"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Cover      string   `json:"cover,omitempty"`
	VideoURL   string   `json:"video_url,omitempty"`
	Images     []string `json:"images,omitempty"`
	Strategy   string   `json:"strategy"`
	ResolvedAt int64    `json:"resolved_at"`
}

// DocFrom flattens a resolution for indexing.
func DocFrom(r media.Resolution) Doc {
	return Doc{
		ID:         r.ID,
		SourceURL:  r.SourceURL,
		Platform:   string(r.Result.Platform),
		Type:       string(r.Result.Type),
		Title:      r.Result.Title,
		Cover:      r.Result.Cover,
		VideoURL:   r.Result.VideoURL,
		Images:     r.Result.Images,
		Strategy:   r.Strategy,
		ResolvedAt: r.ResolvedAt.Unix(),
	}
}

type Indexer struct {
	client    meilisearch.ServiceManager
	indexName string
	log       zerolog.Logger
}

// NewIndexer connects and makes sure the index and its settings exist.
// Setting failures are logged; indexing still works on a bare index.
func NewIndexer(host, apiKey, indexName string, log zerolog.Logger) *Indexer {
	log = log.With().Str("component", "search").Logger()
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))

	if _, err := client.CreateIndex(&meilisearch.IndexConfig{Uid: indexName, PrimaryKey: primaryKey}); err != nil {
		log.Warn().Err(err).Str("index", indexName).Msg("create index")
	}

	idx := client.Index(indexName)
	if _, err := idx.UpdateSearchableAttributes(&[]string{"title", "source_url", "platform"}); err != nil {
		log.Warn().Err(err).Msg("update searchable attributes")
	}
	if _, err := idx.UpdateSortableAttributes(&[]string{"resolved_at"}); err != nil {
		log.Warn().Err(err).Msg("update sortable attributes")
	}
	filterable := []interface{}{"platform", "type", "strategy"}
	if _, err := idx.UpdateFilterableAttributes(&filterable); err != nil {
		log.Warn().Err(err).Msg("update filterable attributes")
	}

	return &Indexer{client: client, indexName: indexName, log: log}
}

// Index upserts a resolution.
func (i *Indexer) Index(r media.Resolution) error {
	pk := primaryKey
	task, err := i.client.Index(i.indexName).UpdateDocuments([]Doc{DocFrom(r)}, &meilisearch.DocumentOptions{PrimaryKey: &pk})
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	i.log.Debug().Int64("task_uid", task.TaskUID).Str("id", r.ID).Msg("document queued")
	return nil
}

// Search runs a full-text query, optionally restricted to one platform.
func (i *Indexer) Search(query, platform string, limit int64) ([]Doc, error) {
	req := &meilisearch.SearchRequest{Limit: limit, Sort: []string{"resolved_at:desc"}}
	if platform != "" {
		req.Filter = fmt.Sprintf("platform = %q", platform)
	}
	raw, err := i.client.Index(i.indexName).SearchRaw(query, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return decodeHits(*raw)
}

func decodeHits(raw []byte) ([]Doc, error) {
	hits := gjson.GetBytes(raw, "hits")
	if !hits.IsArray() {
		return nil, fmt.Errorf("search response has no hits: %s", strings.TrimSpace(string(raw[:min(len(raw), 120)])))
	}
	docs := make([]Doc, 0, len(hits.Array()))
	for _, h := range hits.Array() {
		var d Doc
		if err := json.Unmarshal([]byte(h.Raw), &d); err != nil {
			return nil, fmt.Errorf("decode hit: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}
