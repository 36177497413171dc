package asset

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestLocalResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	res, err := NewResource(thisFile, nil)
	if err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(thisFile)
	if err != nil {
		t.Fatal(err)
	}
	if res.Size() != info.Size() {
		t.Fatalf("expected resource size %d; got %d", info.Size(), res.Size())
	}

	data, err := res.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) != info.Size() {
		t.Fatalf("expected to read %d bytes; got %d", info.Size(), len(data))
	}
}

func TestHttpResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)

	server := httptest.NewServer(http.FileServer(http.Dir(thisDir)))
	defer server.Close()

	fetchUrl := server.URL + "/" + filepath.Base(thisFile)
	res, err := NewResource(fetchUrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if !res.IsRemote() {
		t.Fatal("expected resource to be remote")
	}
	if res.Name() != filepath.Base(thisFile) {
		t.Fatalf("expected resource name %q; got %q", filepath.Base(thisFile), res.Name())
	}

	fetchUrl = server.URL + "/file-not-found.raw"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = NewResource(fetchUrl, nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestRelativeRemoteResources(t *testing.T) {
	serverHits := 0
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		if r.URL.Path == "/data/head.dat" || r.URL.Path == "/data/head.raw" {
			w.Write([]byte("OK"))
		} else {
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	res1, err := NewResource(server.URL+"/data/head.dat", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()
	res2, err := NewResource("head.raw", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	if serverHits != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", serverHits)
	}
}

func TestRelativeLocalResources(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "volume.dat"), []byte("ObjectFileName: volume.raw\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "volume.raw"), []byte{1, 2, 3}, 0644); err != nil {
		t.Fatal(err)
	}

	dat, err := NewResource(filepath.Join(dir, "volume.dat"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dat.Close()

	raw, err := NewResource("volume.raw", dat)
	if err != nil {
		t.Fatal(err)
	}
	data, err := raw.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 3 {
		t.Fatalf("expected to read 3 bytes; got %d", len(data))
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	expError := "resource: unsupported scheme 'gopher'"
	_, err := NewResource("gopher://digging.dat", nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestResourceConnectionRefusedError(t *testing.T) {
	_, err := NewResource("http://localhost:12345/foo.dat", nil)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected to get 'connection refused error'; got %v", err)
	}
}

func TestStreamResource(t *testing.T) {
	res := NewResourceFromStream("embedded.dat", strings.NewReader("Resolution: 4 4 4"))
	data, err := res.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Resolution: 4 4 4" {
		t.Fatalf("expected stream payload to be returned; got %q", string(data))
	}
}
