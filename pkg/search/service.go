package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chartes/dicotopo/pkg/jsonapi"
	"github.com/chartes/dicotopo/pkg/log"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
)

const (
	DefaultPageSize = 200
	MaxPageSize     = 500
)

// DefaultIncludes are the related resources requested with every search so
// that commune markers can be derived from the document.
var DefaultIncludes = []string{jsonapi.TypeCommune, jsonapi.TypeLocalizationCommune}

// ErrEmptyQuery is returned when a search is attempted without query text.
var ErrEmptyQuery = errors.New("empty search query")

// StatusError reports a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("search backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("search backend returned %d: %s", e.StatusCode, e.Body)
}

// SearchParams are the parameters of one search submitted by the form.
type SearchParams struct {
	// Query is the text typed in the search form. It may be empty, in which
	// case the form is shown without running a search.
	Query string

	// PageSize is the number of placenames requested. Defaults to
	// DefaultPageSize and never exceeds MaxPageSize.
	PageSize int
}

// ParseSearchParams parses the search form parameters:
//   - q: query text (trimmed)
//   - size: page size, defaults to DefaultPageSize when absent or not
//     positive and is capped at MaxPageSize. A non-numeric size is an error.
func ParseSearchParams(queryParams url.Values) (SearchParams, error) {
	params := SearchParams{
		Query:    strings.TrimSpace(queryParams.Get("q")),
		PageSize: DefaultPageSize,
	}

	if sizeStr := queryParams.Get("size"); sizeStr != "" {
		parsed, err := strconv.Atoi(sizeStr)
		if err != nil {
			return params, fmt.Errorf("invalid size %q: %w", sizeStr, err)
		}
		if parsed > 0 {
			params.PageSize = min(parsed, MaxPageSize)
		}
	}

	return params, nil
}

// Options configure a Service.
type Options struct {
	// Endpoint is the absolute URL of the backend search route.
	Endpoint string `validate:"required,url"`

	// Timeout bounds each request. Zero means no timeout besides the
	// caller's context.
	Timeout time.Duration `validate:"gte=0"`

	// RequestsPerSecond throttles outgoing requests. Zero disables
	// throttling.
	RequestsPerSecond float64 `validate:"gte=0"`

	// PageSize overrides DefaultPageSize for params without a size.
	PageSize int `validate:"gte=0,lte=500"`

	// Includes overrides DefaultIncludes.
	Includes []string `validate:"dive,required"`

	HTTPClient *http.Client `validate:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service executes searches against the backend.
type Service struct {
	endpoint *url.URL
	client   *http.Client
	limiter  *rate.Limiter
	pageSize int
	includes string
	logger   *log.Logger
}

// NewService validates opts and returns a Service ready to search.
func NewService(opts Options) (*Service, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid search options: %w", err)
	}

	endpoint, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing search endpoint: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	includes := opts.Includes
	if len(includes) == 0 {
		includes = DefaultIncludes
	}

	return &Service{
		endpoint: endpoint,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		pageSize: pageSize,
		includes: strings.Join(includes, ","),
		logger:   log.ForService("search"),
	}, nil
}

// RequestURL builds the backend URL for params. Query parameters already
// present in the endpoint are kept.
func (s *Service) RequestURL(params SearchParams) string {
	u := *s.endpoint
	q := u.Query()
	q.Set("query", params.Query)
	q.Set("include", s.includes)

	size := params.PageSize
	if size <= 0 {
		size = s.pageSize
	}
	q.Set("page[size]", strconv.Itoa(size))

	u.RawQuery = q.Encode()
	return u.String()
}

// Search runs one search. It returns ErrEmptyQuery without contacting the
// backend when params has no query text.
func (s *Service) Search(ctx context.Context, params SearchParams) (*jsonapi.SearchResult, error) {
	if params.Query == "" {
		return nil, ErrEmptyQuery
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for search slot: %w", err)
	}

	reqURL := s.RequestURL(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Accept", jsonapi.MediaType)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", params.Query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	result, err := jsonapi.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", params.Query, err)
	}

	s.logger.Debugf("GET %s -> %d placename(s), %d included in %s", reqURL, len(result.Data), len(result.Included), time.Since(start))
	return result, nil
}
