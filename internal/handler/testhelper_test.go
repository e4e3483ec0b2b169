package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/dualgen/api/internal/config"
	"github.com/dualgen/api/internal/model"
	"github.com/dualgen/api/internal/registry"
	"github.com/dualgen/api/internal/service"
	"github.com/dualgen/api/internal/worker"
)

var testEndpoints = []model.Endpoint{
	{Name: "E1", Host: "10.0.0.1", Port: 2222},
	{Name: "E2", Host: "10.0.0.2", Port: 2222},
}

// testApp holds the components needed for handler tests. The scheduler is
// never started, so submitted jobs stay queued — handy for deterministic
// cancel and queue assertions.
type testApp struct {
	app       *fiber.App
	registry  *registry.Registry
	scheduler *worker.Scheduler
}

// setupApp wires routes the way main.go does, minus the queue worker.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	reg := registry.New(testEndpoints)
	sched := worker.NewScheduler(reg, nil, 8, nil)
	svc := service.NewGenerateService(reg, sched, config.GenerationConfig{
		Orientation: "landscape",
		Size:        "1mp",
		Steps:       25,
		Strength:    0.75,
	})

	generateHandler := NewGenerateHandler(svc, validator.New())

	app := fiber.New(fiber.Config{
		BodyLimit: 16 * 1024 * 1024,
	})

	api := app.Group("/api")
	api.Post("/generate", generateHandler.Generate)
	api.Get("/status/:jobId", generateHandler.Status)
	api.Get("/jobs", generateHandler.Jobs)
	api.Get("/queue", generateHandler.Queue)
	api.Delete("/queue/:jobId", generateHandler.Cancel)
	api.Post("/queue/clear", generateHandler.Clear)

	return &testApp{app: app, registry: reg, scheduler: sched}
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return app.Test(req, -1)
}

// parseJSON parses a response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, string(b))
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts the error.code field from an error envelope.
func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}
