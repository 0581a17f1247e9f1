package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"pricegap/internal/htmldoc"
	"pricegap/logger"
	apperrors "pricegap/pkg/errors"
	"pricegap/services/cache"
)

// Config holds the explicit fetcher options
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	BlockTime  time.Duration
	Headers    map[string]string
}

// Result is a fetched response body, parsed according to its content.
// Exactly one of Doc, JSON and Text is populated.
type Result struct {
	Doc    htmldoc.Node
	JSON   []byte
	Text   string
	Header http.Header
}

// Fetcher issues HTTP requests with retries, charset normalization and an
// unverified-TLS fallback for certificate failures on public pages.
type Fetcher struct {
	cfg      Config
	client   *http.Client
	insecure *http.Client
	cacheSvc cache.CacheService
	log      *logger.Logger
}

// New creates a fetcher. cacheSvc may be nil; when present it backs the
// rate-limit block keys set after 429/430 responses.
func New(cfg Config, cacheSvc cache.CacheService) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.BlockTime <= 0 {
		cfg.BlockTime = 60 * time.Second
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		insecure: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		cacheSvc: cacheSvc,
		log:      logger.ForFetcher(),
	}
}

// Get fetches rawURL and parses the response body.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Result, error) {
	return f.do(ctx, http.MethodGet, rawURL, nil)
}

// PostJSON posts the JSON-encoded payload to rawURL and parses the response.
func (f *Fetcher) PostJSON(ctx context.Context, rawURL string, payload interface{}) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewParsing("fetcher", "failed to encode request body", err)
	}
	return f.do(ctx, http.MethodPost, rawURL, body)
}

func (f *Fetcher) do(ctx context.Context, method, rawURL string, body []byte) (*Result, error) {
	if err := f.blocked(rawURL); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < f.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.cfg.RetryDelay):
			}
		}

		res, err := f.attempt(ctx, f.client, method, rawURL, body)
		if err == nil {
			return res, nil
		}
		lastErr = err

		// One unverified-TLS attempt per try; these are public pages
		if isCertError(err) {
			f.log.Warn().Str("url", rawURL).Msg("certificate verification failed, retrying without verification")
			res, err = f.attempt(ctx, f.insecure, method, rawURL, body)
			if err == nil {
				return res, nil
			}
			lastErr = err
		}

		var pipeErr *apperrors.PipelineError
		if errors.As(err, &pipeErr) && pipeErr.Type == apperrors.ErrorTypeRateLimit {
			f.block(rawURL)
			break
		}
	}

	return nil, apperrors.NewNetwork("fetcher", fmt.Sprintf("request failed for %s", rawURL), lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, client *http.Client, method, rawURL string, body []byte) (*Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-AU,en;q=0.9")
	for key, value := range f.cfg.Headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 430 {
		return nil, apperrors.NewRateLimit("fetcher", f.cfg.BlockTime)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s unexpected status code: %d", rawURL, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return parseBody(bodyBytes, resp.Header)
}

// parseBody sniffs the payload: decoded JSON, parsed HTML document or raw
// text, with the body normalized to UTF-8 first.
func parseBody(body []byte, header http.Header) (*Result, error) {
	contentType := header.Get("Content-Type")

	trimmed := bytes.TrimLeft(body, "\ufeff \t\r\n")
	if strings.Contains(contentType, "application/json") ||
		bytes.HasPrefix(trimmed, []byte("{")) || bytes.HasPrefix(trimmed, []byte("[")) {
		return &Result{JSON: trimmed, Header: header}, nil
	}

	utf8Body, err := toUTF8(body, contentType)
	if err != nil {
		return nil, err
	}

	head := utf8Body
	if len(head) > 1000 {
		head = head[:1000]
	}
	if bytes.Contains(bytes.ToLower(head), []byte("html")) {
		doc, err := htmldoc.Parse(bytes.NewReader(utf8Body))
		if err != nil {
			return nil, apperrors.NewParsing("fetcher", "failed to parse HTML", err)
		}
		return &Result{Doc: doc, Header: header}, nil
	}

	return &Result{Text: string(utf8Body), Header: header}, nil
}

func toUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return body, nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.Bytes(), nil
}

// blocked reports a rate-limit error while a block key is active for the host.
func (f *Fetcher) blocked(rawURL string) error {
	if f.cacheSvc == nil {
		return nil
	}
	if _, err := f.cacheSvc.Get(blockKey(rawURL)); err == nil {
		return apperrors.NewRateLimit("fetcher", f.cfg.BlockTime)
	}
	return nil
}

func (f *Fetcher) block(rawURL string) {
	if f.cacheSvc == nil {
		return
	}
	key := blockKey(rawURL)
	value := []byte(fmt.Sprintf("%d", f.cfg.BlockTime/time.Second))
	if err := f.cacheSvc.Set(key, value, f.cfg.BlockTime); err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("failed to set block key")
	}
}

func blockKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "block:" + rawURL
	}
	return "block:" + u.Host
}

func isCertError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	return errors.As(err, &hostnameErr)
}
