package handler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dualgen/api/internal/model"
	"github.com/dualgen/api/pkg/response"
)

const healthCheckTimeout = 3 * time.Second

// GalleryHandler serves the generated-image listing and the endpoint
// health sweep.
type GalleryHandler struct {
	endpoints  []model.Endpoint
	outputDir  string
	httpClient *http.Client
}

func NewGalleryHandler(endpoints []model.Endpoint, outputDir string) *GalleryHandler {
	return &GalleryHandler{
		endpoints:  endpoints,
		outputDir:  outputDir,
		httpClient: &http.Client{Timeout: healthCheckTimeout},
	}
}

// Endpoints handles GET /api/endpoints: a concurrent health sweep over the
// configured endpoint set.
func (h *GalleryHandler) Endpoints(c *fiber.Ctx) error {
	results := make([]model.EndpointHealth, len(h.endpoints))

	g, ctx := errgroup.WithContext(c.Context())
	for i, ep := range h.endpoints {
		i, ep := i, ep
		g.Go(func() error {
			results[i] = model.EndpointHealth{
				Name:   ep.Name,
				Host:   ep.Host,
				Port:   ep.Port,
				Status: h.probe(ctx, ep),
			}
			return nil
		})
	}
	_ = g.Wait()

	return response.OK(c, results)
}

func (h *GalleryHandler) probe(ctx context.Context, ep model.Endpoint) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL()+"/", nil)
	if err != nil {
		return model.EndpointHealthOffline
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return model.EndpointHealthTimeout
		}
		return model.EndpointHealthOffline
	}
	resp.Body.Close()
	return model.EndpointHealthOnline
}

// Gallery handles GET /api/gallery: newest-first listing of downloaded
// images in the output directory.
func (h *GalleryHandler) Gallery(c *fiber.Ctx) error {
	entries, err := os.ReadDir(h.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return response.OK(c, []model.GalleryImage{})
		}
		return response.ServiceError(c, err.Error())
	}

	images := []model.GalleryImage{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "._") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".png", ".jpg", ".jpeg", ".webp":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		images = append(images, model.GalleryImage{
			Filename: name,
			URL:      "/images/" + name,
			Created:  info.ModTime(),
			Size:     info.Size(),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Created.After(images[j].Created)
	})

	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 1000 {
		limit = 1000
	}
	if len(images) > limit {
		images = images[:limit]
	}

	return response.OK(c, images)
}
