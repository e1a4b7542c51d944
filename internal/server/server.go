package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tagmark/tagmark/internal/logger"
	"github.com/tagmark/tagmark/internal/model"
	"github.com/tagmark/tagmark/internal/store"
)

// MetadataFetcher retrieves best-effort page metadata. Failures degrade to
// a partial result, never an error.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) model.Metadata
}

// TagGenerator classifies page metadata into tags. Failures yield an empty
// list, never an error.
type TagGenerator interface {
	GenerateTags(ctx context.Context, meta model.Metadata, language string) []model.Tag
}

// Server wires the classify-and-store pipeline behind the HTTP API.
type Server struct {
	store   *store.Store
	fetcher MetadataFetcher
	tagger  TagGenerator
	apiKey  string
	log     *logger.Logger
}

// Params holds the collaborators for a Server.
type Params struct {
	Store   *store.Store
	Fetcher MetadataFetcher
	Tagger  TagGenerator
	// APIKey protects all routes. Empty disables authentication
	// (development mode).
	APIKey string
	Log    *logger.Logger
}

// New creates a Server.
func New(params Params) *Server {
	return &Server{
		store:   params.Store,
		fetcher: params.Fetcher,
		tagger:  params.Tagger,
		apiKey:  params.APIKey,
		log:     params.Log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(s.requireAPIKey())

	if s.apiKey == "" {
		s.log.Warn("API key not configured - authentication disabled")
	}

	router.GET("/health", s.health)

	api := router.Group("/api")
	{
		api.POST("/bookmarks", s.saveBookmark)
		api.GET("/bookmarks", s.listBookmarks)
	}

	return router
}

// requireAPIKey rejects requests whose X-API-Key header is missing or
// mismatched. When no key is configured the check is bypassed entirely.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiKey == "" {
			c.Next()
			return
		}

		requestKey := c.GetHeader("X-API-Key")
		if requestKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}
		if requestKey != s.apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// saveBookmark runs the full pipeline for one submission: fetch metadata,
// generate tags, persist. A URL that was classified before returns its
// original record untouched.
func (s *Server) saveBookmark(c *gin.Context) {
	var req model.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}

	ctx := c.Request.Context()

	meta := s.fetcher.Fetch(ctx, req.URL)
	if req.Title != "" && meta.Title == "" {
		meta.Title = req.Title
	}

	tags := s.tagger.GenerateTags(ctx, meta, req.Language)
	s.log.Debug("generated tags", "url", req.URL, "count", len(tags))

	result, err := s.store.SaveBookmark(ctx, meta, tags)
	if err != nil {
		if errors.Is(err, store.ErrNoTags) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("failed to save bookmark", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to process bookmark",
			"detail": err.Error(),
		})
		return
	}

	s.log.Info("bookmark saved", "url", result.URL, "primary_tag", result.PrimaryTag)
	c.JSON(http.StatusOK, result)
}

func (s *Server) listBookmarks(c *gin.Context) {
	bookmarks, err := s.store.AllBookmarks(c.Request.Context())
	if err != nil {
		s.log.Error("failed to fetch bookmarks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "failed to fetch bookmarks",
			"detail": err.Error(),
		})
		return
	}

	if bookmarks == nil {
		bookmarks = []model.BookmarkResponse{}
	}
	c.JSON(http.StatusOK, model.BookmarkList{
		Bookmarks: bookmarks,
		Total:     len(bookmarks),
	})
}
