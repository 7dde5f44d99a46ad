package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionboard-backend/internal/services"
)

// stubStore implements services.ObjectStore and records calls.
type stubStore struct {
	uploaded []string
	deleted  []string
}

func (s *stubStore) Upload(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
	s.uploaded = append(s.uploaded, key)
	return "http://store.local/vision-boards/" + key, nil
}

func (s *stubStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubStore) DeleteMany(_ context.Context, keys []string) error {
	s.deleted = append(s.deleted, keys...)
	return nil
}

type testEnv struct {
	app   *fiber.App
	mock  pgxmock.PgxPoolIface
	store *stubStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store := &stubStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	boardService := services.NewBoardService(mock, store, logger)
	photoService := services.NewPhotoService(mock, store, logger)
	montageService := services.NewMontageService(mock)

	app := fiber.New(fiber.Config{BodyLimit: 32 * 1024 * 1024})
	api := app.Group("/api")
	protected := api.Group("/")
	protected.Use(AuthMiddleware)

	protected.Get("/boards", GetBoardsHandler(boardService))
	protected.Post("/boards", CreateBoardHandler(boardService))
	protected.Get("/boards/:id", GetBoardHandler(boardService, photoService, montageService))
	protected.Patch("/boards/:id", UpdateBoardHandler(boardService))
	protected.Delete("/boards/:id", DeleteBoardHandler(boardService))
	protected.Put("/boards/:id/crystals", ReplaceCrystalsHandler(boardService))
	protected.Post("/boards/:id/montage-music", UploadMontageMusicHandler(boardService, store, 10))
	protected.Get("/photos", ListPhotosHandler(photoService))
	protected.Post("/photos/upload", UploadPhotoHandler(photoService, boardService, store, 10))
	protected.Post("/photos/reorder", ReorderPhotosHandler(photoService))
	protected.Post("/photos/bulk-delete", BulkDeletePhotosHandler(photoService))
	protected.Get("/photos/:id", GetPhotoHandler(photoService))
	protected.Patch("/photos/:id", UpdatePhotoHandler(photoService))
	protected.Delete("/photos/:id", DeletePhotoHandler(photoService))

	return &testEnv{app: app, mock: mock, store: store}
}

func strPtr(s string) *string { return &s }

func authToken(t *testing.T) string {
	t.Helper()
	token, err := services.GenerateJWT("u1", "me@example.com")
	require.NoError(t, err)
	return token
}

func jsonRequest(t *testing.T, method, path, token string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func multipartUpload(t *testing.T, field, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestMissingTokenGets401(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/boards", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestGarbageTokenGets401(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/boards", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestCreateBoard_WhitespaceTitle400(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, "POST", "/api/boards", authToken(t), map[string]string{"title": "   "})
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCreateBoard_TrimsTitle(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	env.mock.ExpectQuery(`INSERT INTO vision_boards`).
		WithArgs("u1", "My Goals", (*string)(nil)).
		WillReturnRows(env.mock.NewRows([]string{
			"id", "user_id", "title", "description", "cover_image_url",
			"montage_video_url", "montage_video_key", "montage_generated_at", "created_at", "updated_at",
		}).AddRow("b1", "u1", "My Goals", nil, nil, nil, nil, nil, now, now))

	req := jsonRequest(t, "POST", "/api/boards", authToken(t), map[string]string{"title": "  My Goals  "})
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	body := decodeBody(t, resp)
	board := body["board"].(map[string]any)
	assert.Equal(t, "My Goals", board["title"])
}

func TestGetBoard_OtherOwner404(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery(`FROM vision_boards WHERE id = \$1 AND user_id = \$2`).
		WithArgs("b1", "u1").
		WillReturnError(pgx.ErrNoRows)

	req := jsonRequest(t, "GET", "/api/boards/b1", authToken(t), nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestUploadPhoto_MissingFile400(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, "POST", "/api/photos/upload", authToken(t), nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestUploadPhoto_GifRejectedBeforeStoreWrite(t *testing.T) {
	env := newTestEnv(t)

	buf, contentType := multipartUpload(t, "file", "anim.gif", "image/gif", []byte("GIF89a"), nil)
	req := httptest.NewRequest("POST", "/api/photos/upload", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+authToken(t))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Empty(t, env.store.uploaded, "rejected upload must not touch the object store")
}

func TestUploadPhoto_OversizeRejectedBeforeStoreWrite(t *testing.T) {
	env := newTestEnv(t)

	big := bytes.Repeat([]byte("a"), 11*1024*1024)
	buf, contentType := multipartUpload(t, "file", "big.jpg", "image/jpeg", big, nil)
	req := httptest.NewRequest("POST", "/api/photos/upload", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+authToken(t))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Empty(t, env.store.uploaded)
}

func TestUploadPhoto_AllowedTypeCreatesRow(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	env.mock.ExpectQuery(`INSERT INTO photos`).
		WithArgs("u1", (*string)(nil), pgxmock.AnyArg(), pgxmock.AnyArg(), 0).
		WillReturnRows(env.mock.NewRows([]string{
			"id", "user_id", "vision_board_id", "original_url", "original_file_key",
			"cropped_url", "cropped_file_key", "crop_data", "text_overlay",
			"display_order", "created_at", "updated_at",
		}).AddRow("p1", "u1", nil, "http://store.local/vision-boards/k", "k",
			nil, nil, nil, nil, 0, now, now))

	buf, contentType := multipartUpload(t, "file", "photo.webp", "image/webp", []byte("RIFFxxxxWEBP"), nil)
	req := httptest.NewRequest("POST", "/api/photos/upload", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+authToken(t))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	body := decodeBody(t, resp)
	photo := body["photo"].(map[string]any)
	assert.NotEmpty(t, photo["original_url"])
	require.Len(t, env.store.uploaded, 1)
	assert.Contains(t, env.store.uploaded[0], "u1/photos/original/")
}

func TestUpdatePhoto_ExplicitNullDetaches(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	env.mock.ExpectQuery(`UPDATE photos SET updated_at = now\(\), vision_board_id = NULL`).
		WithArgs("p1", "u1").
		WillReturnRows(env.mock.NewRows([]string{
			"id", "user_id", "vision_board_id", "original_url", "original_file_key",
			"cropped_url", "cropped_file_key", "crop_data", "text_overlay",
			"display_order", "created_at", "updated_at",
		}).AddRow("p1", "u1", nil, "u", "k", nil, nil, nil, nil, 2, now, now))

	req := jsonRequest(t, "PATCH", "/api/photos/p1", authToken(t), map[string]any{"vision_board_id": nil})
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	photo := body["photo"].(map[string]any)
	assert.Nil(t, photo["vision_board_id"])
}

func TestUpdatePhoto_BareAttachAppendsToEnd(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	env.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM photos WHERE vision_board_id = \$1 AND user_id = \$2`).
		WithArgs("b1", "u1").
		WillReturnRows(env.mock.NewRows([]string{"count"}).AddRow(3))
	env.mock.ExpectQuery(`UPDATE photos SET updated_at = now\(\), vision_board_id = \$1, display_order = \$2`).
		WithArgs("b1", 3, "p1", "u1").
		WillReturnRows(env.mock.NewRows([]string{
			"id", "user_id", "vision_board_id", "original_url", "original_file_key",
			"cropped_url", "cropped_file_key", "crop_data", "text_overlay",
			"display_order", "created_at", "updated_at",
		}).AddRow("p1", "u1", strPtr("b1"), "u", "k", nil, nil, nil, nil, 3, now, now))

	req := jsonRequest(t, "PATCH", "/api/photos/p1", authToken(t), map[string]any{"vision_board_id": "b1"})
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	photo := body["photo"].(map[string]any)
	assert.Equal(t, "b1", photo["vision_board_id"])
	assert.Equal(t, float64(3), photo["display_order"])
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUploadMontageMusic_ReturnsURLAndKey(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	env.mock.ExpectQuery(`FROM vision_boards WHERE id = \$1 AND user_id = \$2`).
		WithArgs("b1", "u1").
		WillReturnRows(env.mock.NewRows([]string{
			"id", "user_id", "title", "description", "cover_image_url",
			"montage_video_url", "montage_video_key", "montage_generated_at", "created_at", "updated_at",
		}).AddRow("b1", "u1", "Goals", nil, nil, nil, nil, nil, now, now))

	buf, contentType := multipartUpload(t, "file", "track.mp3", "audio/mpeg", []byte("ID3xxxx"), nil)
	req := httptest.NewRequest("POST", "/api/boards/b1/montage-music", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+authToken(t))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Contains(t, body["music_url"], "u1/music/")
	assert.Contains(t, body["music_file_key"], "u1/music/")
	require.Len(t, env.store.uploaded, 1)
	assert.Contains(t, env.store.uploaded[0], ".mp3")
}

func TestUploadMontageMusic_RejectsNonAudioBeforeStoreWrite(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	env.mock.ExpectQuery(`FROM vision_boards WHERE id = \$1 AND user_id = \$2`).
		WithArgs("b1", "u1").
		WillReturnRows(env.mock.NewRows([]string{
			"id", "user_id", "title", "description", "cover_image_url",
			"montage_video_url", "montage_video_key", "montage_generated_at", "created_at", "updated_at",
		}).AddRow("b1", "u1", "Goals", nil, nil, nil, nil, nil, now, now))

	buf, contentType := multipartUpload(t, "file", "notes.txt", "text/plain", []byte("not audio"), nil)
	req := httptest.NewRequest("POST", "/api/boards/b1/montage-music", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+authToken(t))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Empty(t, env.store.uploaded, "rejected upload must not touch the object store")
}

func TestUploadMontageMusic_OtherOwner404(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery(`FROM vision_boards WHERE id = \$1 AND user_id = \$2`).
		WithArgs("b1", "u1").
		WillReturnError(pgx.ErrNoRows)

	buf, contentType := multipartUpload(t, "file", "track.mp3", "audio/mpeg", []byte("ID3xxxx"), nil)
	req := httptest.NewRequest("POST", "/api/boards/b1/montage-music", buf)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+authToken(t))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Empty(t, env.store.uploaded)
}

func TestDeletePhoto_Success(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery(`SELECT original_file_key, cropped_file_key FROM photos`).
		WithArgs("p1", "u1").
		WillReturnRows(env.mock.NewRows([]string{"original_file_key", "cropped_file_key"}).
			AddRow("k1", nil))
	env.mock.ExpectExec(`DELETE FROM photos`).
		WithArgs("p1", "u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	req := jsonRequest(t, "DELETE", "/api/photos/p1", authToken(t), nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []string{"k1"}, env.store.deleted)
}

func TestReorder_EmptyList400(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, "POST", "/api/photos/reorder", authToken(t), map[string]any{"photo_ids": []string{}})
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestReorder_Success(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	for i, id := range []string{"p3", "p1", "p2"} {
		env.mock.ExpectExec(`UPDATE photos SET display_order`).
			WithArgs(i, id, "u1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	}
	env.mock.ExpectCommit()

	req := jsonRequest(t, "POST", "/api/photos/reorder", authToken(t), map[string]any{
		"photo_ids": []string{"p3", "p1", "p2"},
	})
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestListPhotos_UnassignedFilter(t *testing.T) {
	env := newTestEnv(t)

	now := time.Now()
	env.mock.ExpectQuery(`vision_board_id IS NULL ORDER BY created_at DESC`).
		WithArgs("u1").
		WillReturnRows(env.mock.NewRows([]string{
			"id", "user_id", "vision_board_id", "original_url", "original_file_key",
			"cropped_url", "cropped_file_key", "crop_data", "text_overlay",
			"display_order", "created_at", "updated_at",
		}).AddRow("p1", "u1", nil, "u", "k", nil, nil, nil, nil, 0, now, now))

	req := jsonRequest(t, "GET", "/api/photos?unassigned=true", authToken(t), nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	photos := body["photos"].([]any)
	require.Len(t, photos, 1)
}

func TestBulkDelete_EmptyList400(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(t, "POST", "/api/photos/bulk-delete", authToken(t), map[string]any{"photo_ids": []string{}})
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
