// Package serve runs a small read-only HTTP server for previewing a source
// file in AltStore over the local network.
package serve

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/altsrc-dev/altsrc/altsource"
)

const sourceKey = "#source#"

// Server serves one source file, re-reading it from disk when the cached
// copy expires so an update run shows up without a restart.
type Server struct {
	path  string
	cache *cache.Cache
}

func NewServer(path string, ttl time.Duration) *Server {
	return &Server{
		path:  path,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Router returns the gin engine serving the source document at / and
// /apps.json.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleSource)
	r.GET("/apps.json", s.handleSource)

	return r
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) handleSource(c *gin.Context) {
	if data, ok := s.cache.Get(sourceKey); ok {
		c.Data(http.StatusOK, "application/json", data.([]byte))
		return
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// Re-serialize through the model so the served document is the same
	// normalized shape a Save would produce.
	src, err := altsource.Parse(raw)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	data, err := src.Bytes()
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	s.cache.Set(sourceKey, data, cache.DefaultExpiration)
	c.Data(http.StatusOK, "application/json", data)
}
