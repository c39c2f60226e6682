package remote

import (
	"bytes"
	"collab-docs/core"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to a collab-docs compatible REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the API rooted at baseURL, e.g. http://host:3000/api.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, p string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := logrus.WithFields(logrus.Fields{"method": method, "path": p})
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("Remote API request failed")
		return fmt.Errorf("%s %s: %w", method, p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", p, core.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		log.WithField("status", resp.StatusCode).Warn("Remote API returned an error")
		return fmt.Errorf("%s %s: status %d: %s", method, p, resp.StatusCode, apiErr.Error)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", p, err)
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}

type documentStore struct {
	client *Client
}

// NewDocumentStore reads and writes documents through /documents on the remote API.
func NewDocumentStore(client *Client) core.DocumentStore {
	return &documentStore{client}
}

func (s *documentStore) List(ctx context.Context) ([]*core.Document, error) {
	docs := []*core.Document{}
	if err := s.client.do(ctx, http.MethodGet, "/documents", nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *documentStore) Get(ctx context.Context, id string) (*core.Document, error) {
	var doc core.Document
	if err := s.client.do(ctx, http.MethodGet, "/documents/"+escape(id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *documentStore) Create(ctx context.Context, document *core.Document) (*core.Document, error) {
	var doc core.Document
	if err := s.client.do(ctx, http.MethodPost, "/documents", document, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *documentStore) Update(ctx context.Context, id string, patch core.DocumentPatch) (*core.Document, error) {
	var doc core.Document
	if err := s.client.do(ctx, http.MethodPut, "/documents/"+escape(id), patch, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *documentStore) Delete(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, "/documents/"+escape(id), nil, nil)
}

type templateStore struct {
	client *Client
}

// NewTemplateStore reads and writes templates through /templates on the remote API.
func NewTemplateStore(client *Client) core.TemplateStore {
	return &templateStore{client}
}

func (s *templateStore) GetAll(ctx context.Context) ([]*core.Template, error) {
	tpls := []*core.Template{}
	if err := s.client.do(ctx, http.MethodGet, "/templates", nil, &tpls); err != nil {
		return nil, err
	}
	return tpls, nil
}

func (s *templateStore) GetByID(ctx context.Context, id string) (*core.Template, error) {
	var tpl core.Template
	if err := s.client.do(ctx, http.MethodGet, "/templates/"+escape(id), nil, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *templateStore) Save(ctx context.Context, template *core.Template) (*core.Template, error) {
	var tpl core.Template
	if err := s.client.do(ctx, http.MethodPost, "/templates", template, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *templateStore) Update(ctx context.Context, template *core.Template) (*core.Template, error) {
	var tpl core.Template
	if err := s.client.do(ctx, http.MethodPut, "/templates/"+escape(template.ID), template, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *templateStore) Delete(ctx context.Context, id string) error {
	return s.client.do(ctx, http.MethodDelete, "/templates/"+escape(id), nil, nil)
}
