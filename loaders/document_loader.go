package loaders

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/piprate/json-gold/ld"
	"github.com/pquerna/cachecontrol"
)

// An HTTP Accept header that prefers JSON-LD.
const acceptHeader = "application/ld+json, application/json;q=0.9, " +
	"text/plain;q=0.2, */*;q=0.1"

const ipfsPrefix = "ipfs://"

// defaultCacheTTL applies when the origin sends no usable cache headers.
const defaultCacheTTL = 30 * time.Minute

type documentLoader struct {
	ipfsCli     *shell.Shell
	ipfsGW      string
	cacheEngine CacheEngine
	noCache     bool
	httpClient  *http.Client
}

// Option configures a document loader.
type Option func(*documentLoader)

// WithCacheEngine replaces the default in-memory cache. A nil engine
// disables caching entirely.
func WithCacheEngine(engine CacheEngine) Option {
	return func(l *documentLoader) {
		if engine == nil {
			l.noCache = true
			return
		}
		l.cacheEngine = engine
	}
}

// WithHTTPClient replaces http.DefaultClient for remote fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(l *documentLoader) {
		l.httpClient = client
	}
}

// NewDocumentLoader builds an ld.DocumentLoader serving http(s):// and
// ipfs:// documents: JSON-LD contexts for canonicalization and schema
// documents for validation. IPFS retrieval goes through the node client
// when one is given, else through the gateway URL.
func NewDocumentLoader(ipfsCli *shell.Shell, ipfsGW string, opts ...Option) ld.DocumentLoader {
	loader := &documentLoader{ipfsCli: ipfsCli, ipfsGW: ipfsGW}

	for _, opt := range opts {
		opt(loader)
	}

	if loader.cacheEngine == nil && !loader.noCache {
		loader.cacheEngine = NewMemoryCacheEngine()
	}
	return loader
}

func (d *documentLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	switch {
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return d.loadHTTP(u)

	case strings.HasPrefix(u, ipfsPrefix):
		// ipfs://<cid> or ipfs://<cid>/dir/doc.json
		doc := &ld.RemoteDocument{DocumentURL: u}
		path := u[len(ipfsPrefix):]

		var err error
		switch {
		case d.ipfsCli != nil:
			doc.Document, err = d.loadIPFSNode(path)
		case d.ipfsGW != "":
			doc.Document, err = d.loadIPFSGateway(path)
		default:
			err = ld.NewJsonLdError(ld.LoadingDocumentFailed,
				fmt.Errorf("ipfs is not configured"))
		}
		if err != nil {
			return nil, err
		}
		return doc, nil

	default:
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed,
			fmt.Errorf("unsupported URL scheme: %v", u))
	}
}

func (d *documentLoader) loadHTTP(u string) (*ld.RemoteDocument, error) {
	if d.cacheEngine != nil {
		doc, expire, err := d.cacheEngine.Get(u)
		if err == nil && time.Now().Before(expire) {
			return doc, nil
		}
	}

	req, err := http.NewRequest(http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	req.Header.Add("Accept", acceptHeader)

	client := d.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode != http.StatusOK {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed,
			fmt.Errorf("loading document failed: %v", res.StatusCode))
	}

	doc := &ld.RemoteDocument{DocumentURL: res.Request.URL.String()}
	doc.Document, err = ld.DocumentFromReader(res.Body)
	if err != nil {
		return nil, err
	}

	if d.cacheEngine != nil {
		expire := time.Now().Add(defaultCacheTTL)
		reasons, cacheExpire, err2 := cachecontrol.CachableResponse(req, res,
			cachecontrol.Options{})
		if err2 == nil && len(reasons) == 0 && !cacheExpire.IsZero() {
			expire = cacheExpire
		}
		_ = d.cacheEngine.Set(u, doc, expire)
	}
	return doc, nil
}

func (d *documentLoader) loadIPFSNode(path string) (interface{}, error) {
	reader, err := d.ipfsCli.Cat(path)
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	defer func() {
		_ = reader.Close()
	}()
	return ld.DocumentFromReader(reader)
}

func (d *documentLoader) loadIPFSGateway(path string) (interface{}, error) {
	u := strings.TrimRight(d.ipfsGW, "/") + "/ipfs/" + path

	res, err := http.Get(u) //nolint:gosec // gateway URL is operator config
	if err != nil {
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed,
			fmt.Errorf("document not found on gateway: %v", path))
	case res.StatusCode != http.StatusOK:
		return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed,
			fmt.Errorf("gateway returned: %v", res.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return ld.DocumentFromReader(strings.NewReader(string(body)))
}
