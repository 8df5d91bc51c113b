package edge

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// Proxy forwards authenticated requests to the service owning the
// request path. The routing table is static: longest configured prefix
// wins, loaded once at startup and never mutated.
type Proxy struct {
	routes []route
}

type route struct {
	prefix string
	rp     *httputil.ReverseProxy
}

// NewProxy builds a proxy from prefix → upstream base URL pairs, e.g.
// {"/v1/cafeterias": "http://catalog:8081"}.
func NewProxy(upstreams map[string]string) (*Proxy, error) {
	if len(upstreams) == 0 {
		return nil, fmt.Errorf("at least one upstream is required")
	}

	routes := make([]route, 0, len(upstreams))
	for prefix, raw := range upstreams {
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("upstream prefix %q must start with /", prefix)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("upstream %q: %w", prefix, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("upstream %q: %q is not an absolute URL", prefix, raw)
		}
		routes = append(routes, route{
			prefix: prefix,
			rp:     httputil.NewSingleHostReverseProxy(u),
		})
	}

	// Longest prefix first so /v1/cafeterias/admin can route away from
	// /v1/cafeterias if configured.
	sort.Slice(routes, func(i, j int) bool {
		return len(routes[i].prefix) > len(routes[j].prefix)
	})

	return &Proxy{routes: routes}, nil
}

// Handler terminates the gateway's chain: anything that survived the
// guard is forwarded; unroutable paths get a JSON 404.
func (p *Proxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, r := range p.routes {
			if matchPrefix(r.prefix, path) {
				r.rp.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	}
}

func matchPrefix(prefix, path string) bool {
	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(path, prefix)
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
