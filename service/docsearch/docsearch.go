// Package docsearch wraps the OpenSearch index holding safety plans,
// geotechnical reports and operating procedures.
package docsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/earthmover/service"
)

func init() {
	service.RegisterOptionsParser(service.DocSearch, func(meta *toml.MetaData, primitive toml.Primitive) (interface{}, error) {
		return service.ParseOptions[Options](meta, primitive, service.DocSearch)
	})

	service.RegisterService(service.DocSearch, func(meta service.ServiceMeta, opts interface{}) (service.Service, error) {
		dsOpts, ok := opts.(*Options)
		if !ok {
			return nil, fmt.Errorf("invalid docsearch options type, got %T", opts)
		}
		return NewService(meta, dsOpts)
	})
}

type Options struct {
	Addresses []string `toml:"addresses" validate:"required,min=1,dive,url"`
	Username  string   `toml:"username"`
	Password  string   `toml:"password"`
	Index     string   `toml:"index" validate:"required"`
}

// Document is one knowledge-base search hit.
type Document struct {
	Type      string  `json:"document_type"`
	Title     string  `json:"title"`
	Site      string  `json:"site_id"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

type Service struct {
	name        string
	description string
	index       string
	client      *opensearch.Client
}

func NewService(meta service.ServiceMeta, opts *Options) (*Service, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: opts.Addresses,
		Username:  opts.Username,
		Password:  opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}

	return &Service{
		name:        meta.Name,
		description: meta.Description,
		index:       opts.Index,
		client:      client,
	}, nil
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Description() string {
	return s.description
}

func (s *Service) Type() service.ServiceType {
	return service.DocSearch
}

func (s *Service) Health(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req := opensearchapi.PingRequest{}
	res, err := req.Do(healthCtx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("docsearch health check failed: %s", res.Status())
	}
	return nil
}

func (s *Service) Close() error {
	return nil
}

// Search runs a full-text query over the document index and returns up to
// limit hits ordered by relevance.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 5
	}

	body := map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "content"},
			},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(raw)),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("docsearch search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("docsearch error: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]Document, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		var doc Document
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			continue
		}
		doc.Relevance = hit.Score
		docs = append(docs, doc)
	}
	return docs, nil
}
