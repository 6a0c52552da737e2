package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/adreel/api/internal/auth"
	"github.com/adreel/api/internal/client"
	"github.com/adreel/api/internal/config"
	"github.com/adreel/api/internal/handler"
	"github.com/adreel/api/internal/middleware"
	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/internal/service"
	"github.com/adreel/api/internal/store"
	"github.com/adreel/api/internal/style"
	"github.com/adreel/api/internal/worker"
)

const (
	testJWTSecret = "test-secret-for-e2e"
	testUserID    = "test-user-123"
)

// stubGenerator stores a tiny clip for every scene without calling a model
type stubGenerator struct {
	storage client.StorageClient
}

func (g *stubGenerator) Generate(ctx context.Context, req *service.SceneRequest) (*model.Segment, error) {
	key := fmt.Sprintf("clips/%s/%s.mp4", req.JobID, req.Role)
	if _, err := g.storage.Upload(ctx, key, bytes.NewReader([]byte("mp4")), "video/mp4"); err != nil {
		return nil, err
	}
	return &model.Segment{Role: req.Role, ClipRef: key, Prompt: req.Prompt}, nil
}

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	queue   *worker.InlineQueue
	storage *client.MemoryStorage
}

// setupApp wires the app the way main.go does, on miniredis and in-memory
// storage with a stub scene generator.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	catalog := style.Default()
	storage := client.NewMemoryStorage("http://media.test")
	jobStore := store.NewRedisStore(redisClient, time.Hour)
	locker := store.NewRedisLocker(redisClient)
	validate := validator.New()

	generationService := service.NewGenerationService(jobStore, locker, storage, &stubGenerator{storage: storage}, catalog, nil, service.GenerationOptions{})
	mux := asynq.NewServeMux()
	worker.NewGenerationWorker(generationService).Register(mux)
	queue := worker.NewInlineQueue(mux, time.Minute)
	t.Cleanup(queue.Wait)

	groqClient := client.NewGroqClient(&config.GroqConfig{}) // no API key, template captions

	videoService := service.NewVideoService(jobStore, storage, catalog, queue, nil, time.Hour, 0)
	compositionService := service.NewCompositionService(jobStore, storage, catalog, nil, time.Hour)
	captionService := service.NewCaptionService(groqClient)
	uploadService := service.NewUploadService(storage, time.Hour)

	videoHandler := handler.NewVideoHandler(videoService, compositionService, captionService, validate)
	uploadHandler := handler.NewUploadHandler(uploadService)
	stylesHandler := handler.NewStylesHandler(catalog)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"store": config.StoreRedis,
				"veo":   false,
				"groq":  false,
				"r2":    false,
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())
	api.Get("/styles", stylesHandler.List)

	// Use very high rate limits so tests don't get blocked
	upload := api.Group("/upload", rateLimiter.UploadLimit(10000))
	upload.Post("/image", uploadHandler.Image)
	upload.Delete("/image/*", uploadHandler.DeleteImage)

	videos := api.Group("/videos")
	videos.Post("/", videoHandler.Create)
	videos.Get("/", videoHandler.List)
	videos.Get("/:id", videoHandler.Get)
	videos.Post("/:id/generate", rateLimiter.GenerateLimit(10000), videoHandler.Generate)
	videos.Patch("/:id/overlay", videoHandler.UpdateOverlay)
	videos.Post("/:id/compose", rateLimiter.ComposeLimit(10000), videoHandler.Compose)
	videos.Get("/:id/timeline", videoHandler.Timeline)
	videos.Get("/:id/timeline/frames/:frame", videoHandler.Frame)
	videos.Post("/:id/captions/suggest", rateLimiter.CaptionsLimit(10000), videoHandler.SuggestCaptions)
	videos.Post("/:id/rendered", videoHandler.AttachRendered)

	return &testApp{app: app, queue: queue, storage: storage}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	return generateTokenFor(t, testUserID)
}

func generateTokenFor(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.Claims{
		UserID: userID,
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "adreel-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
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
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
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

// errorCode pulls error.code out of an error envelope.
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := parseJSON(t, resp)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}
