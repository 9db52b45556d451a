package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrc-ide/outpack-server/internal/apperror"
	"github.com/mrc-ide/outpack-server/internal/config"
	"github.com/mrc-ide/outpack-server/internal/hash"
	"github.com/mrc-ide/outpack-server/internal/layout"
	"github.com/mrc-ide/outpack-server/internal/location"
	"github.com/mrc-ide/outpack-server/internal/store"
	"github.com/mrc-ide/outpack-server/internal/upload"
)

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(layout.OutpackDir(root), 0o755))

	cfg, err := config.New(nil, true, true)
	require.NoError(t, err)
	require.NoError(t, config.Write(root, cfg))

	app, err := NewApp(root)
	require.NoError(t, err)
	return app, root
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func putPacket(t *testing.T, app *App, root, id string, files map[string][]byte, depends []string) {
	t.Helper()
	type fileEntry struct {
		Path string `json:"path"`
		Hash string `json:"hash"`
	}
	type dependEntry struct {
		Packet string `json:"packet"`
	}
	type doc struct {
		ID      string        `json:"id"`
		Name    string        `json:"name"`
		Files   []fileEntry   `json:"files"`
		Depends []dependEntry `json:"depends"`
	}

	var fileEntries []fileEntry
	for path, content := range files {
		h := hash.Bytes(content, hash.Sha256)
		require.NoError(t, store.PutFile(root, upload.Buffered(content), h.String()))
		fileEntries = append(fileEntries, fileEntry{Path: path, Hash: h.String()})
	}
	var dependEntries []dependEntry
	for _, d := range depends {
		dependEntries = append(dependEntries, dependEntry{Packet: d})
	}

	raw, err := json.Marshal(doc{ID: id, Name: "example", Files: fileEntries, Depends: dependEntries})
	require.NoError(t, err)
	docHash := hash.Bytes(raw, hash.Sha256)

	req := httptest.NewRequest(http.MethodPost, "/packet/"+docHash.String(), bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRootReturnsSchemaVersion(t *testing.T) {
	app, _ := newTestApp(t)
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr.Body.Bytes())
	require.Equal(t, "success", env.Status)
	data := env.Data.(map[string]interface{})
	require.Equal(t, "0.1.1", data["schema_version"])
}

func TestUnknownRouteIs404(t *testing.T) {
	app, _ := newTestApp(t)
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/badurl", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	env := decodeEnvelope(t, rr.Body.Bytes())
	require.Equal(t, "failure", env.Status)
	require.Equal(t, "This route does not exist", env.Errors[0].Detail)
}

func TestFileRoundTrip(t *testing.T) {
	app, _ := newTestApp(t)
	content := []byte("test")
	sum := sha256.Sum256(content)
	h := "sha256:" + hex.EncodeToString(sum[:])

	postReq := httptest.NewRequest(http.MethodPost, "/file/"+h, bytes.NewReader(content))
	postRR := httptest.NewRecorder()
	app.Handler().ServeHTTP(postRR, postReq)
	require.Equal(t, http.StatusOK, postRR.Code, postRR.Body.String())

	getRR := httptest.NewRecorder()
	app.Handler().ServeHTTP(getRR, httptest.NewRequest(http.MethodGet, "/file/"+h, nil))
	require.Equal(t, http.StatusOK, getRR.Code)
	require.Equal(t, "application/octet-stream", getRR.Header().Get("Content-Type"))
	require.Equal(t, content, getRR.Body.Bytes())
}

func TestFilePostRejectsHashMismatch(t *testing.T) {
	app, _ := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/file/md5:bad4a54", bytes.NewReader([]byte("test")))
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr.Body.Bytes())
	require.Equal(t,
		"Expected hash 'md5:bad4a54' but found 'md5:098f6bcd4621d373cade4e832627b4f6'",
		env.Errors[0].Detail)
}

func TestChecksumRejectsUnsupportedAlgorithm(t *testing.T) {
	app, _ := newTestApp(t)
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/checksum?alg=crc32", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr.Body.Bytes())
	require.Equal(t, apperror.InvalidInput.String(), env.Errors[0].Error)
}

func TestMetadataJSONNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metadata/bad-id/json", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	env := decodeEnvelope(t, rr.Body.Bytes())
	require.Equal(t, "packet with id 'bad-id' does not exist", env.Errors[0].Detail)
}

func TestPacketsMissing(t *testing.T) {
	app, root := newTestApp(t)
	putPacket(t, app, root, "20170818-164830-33e0ab01", nil, nil)

	body, err := json.Marshal(map[string]interface{}{
		"ids":      []string{"20180818-164043-7cdcde4b", "20170818-164830-33e0ab02"},
		"unpacked": false,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/packets/missing", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	env := decodeEnvelope(t, rr.Body.Bytes())
	var missing []string
	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &missing))
	require.Equal(t, []string{"20180818-164043-7cdcde4b", "20170818-164830-33e0ab02"}, missing)
}

func TestPacketPostRejectsMissingDependency(t *testing.T) {
	app, _ := newTestApp(t)

	type doc struct {
		ID      string        `json:"id"`
		Depends []interface{} `json:"depends"`
	}
	raw, err := json.Marshal(doc{
		ID:      "20170818-164830-33e0ab01",
		Depends: []interface{}{map[string]string{"packet": "20170818-164847-7574883b"}},
	})
	require.NoError(t, err)
	docHash := hash.Bytes(raw, hash.Sha256)

	req := httptest.NewRequest(http.MethodPost, "/packet/"+docHash.String(), bytes.NewReader(raw))
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr.Body.Bytes())
	require.Contains(t, env.Errors[0].Detail, "dependencies missing")
}

func TestMetadataListReflectsLocationLedger(t *testing.T) {
	app, root := newTestApp(t)
	putPacket(t, app, root, "20170818-164830-33e0ab01", map[string][]byte{"a.txt": []byte("contents")}, nil)

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metadata/list", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	env := decodeEnvelope(t, rr.Body.Bytes())
	entries, ok := env.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)

	var got []location.Entry
	data, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, "20170818-164830-33e0ab01", got[0].Packet)
}

func TestMetricsEndpointExposesRepositoryGauges(t *testing.T) {
	app, root := newTestApp(t)
	putPacket(t, app, root, "20170818-164830-33e0ab01", map[string][]byte{"a.txt": []byte("contents")}, nil)

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "outpack_server_metadata_total")
	require.Contains(t, rr.Body.String(), "outpack_server_http_requests_total")
}

func TestRequestIDIsEchoedOnResponse(t *testing.T) {
	app, _ := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)

	require.Equal(t, "fixed-id", rr.Header().Get(requestIDHeader))
}
