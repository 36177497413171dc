package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// The client used for fetching remote datasets. Raw payloads can be large so
// only the connection phase is bounded.
var httpClient = &http.Client{
	Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: 30 * time.Second,
	},
}

// The Resource type wraps a streamable dataset file; either a local file or
// a file served over http/https.
type Resource struct {
	io.ReadCloser
	url *url.URL

	// Payload size in bytes or -1 if unknown.
	size int64
}

// Returns the path to this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns the file name part of the resource path.
func (r *Resource) Name() string {
	if r.IsRemote() {
		return path.Base(r.url.Path)
	}
	return filepath.Base(r.url.Path)
}

// Returns true if the Resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Returns the resource size in bytes or -1 if the size is not known in advance.
func (r *Resource) Size() int64 {
	return r.size
}

// Read the entire resource into memory and close it.
func (r *Resource) ReadAll() ([]byte, error) {
	defer r.Close()

	var data []byte
	var err error
	if r.size > 0 {
		data = make([]byte, r.size)
		_, err = io.ReadFull(r, data)
	} else {
		data, err = io.ReadAll(r)
	}
	if err != nil {
		return nil, fmt.Errorf("resource: could not read '%s': %s", r.Path(), err)
	}
	return data, nil
}

// Resolve a path that may be relative to another resource. Absolute paths and
// URLs are returned unchanged.
func Resolve(pathToResource string, relTo *Resource) (*url.URL, error) {
	// Replace backslashes with forward slashes and try parsing as a URL
	loc, err := url.Parse(strings.Replace(pathToResource, `\`, `/`, -1))
	if err != nil {
		return nil, err
	}

	if loc.Scheme != "" || relTo == nil {
		return loc, nil
	}

	if relTo.IsRemote() {
		if strings.HasPrefix(loc.Path, "/") {
			return relTo.url.ResolveReference(loc), nil
		}
		out := *relTo.url
		out.Path = path.Join(path.Dir(relTo.url.Path), loc.Path)
		return &out, nil
	}

	if filepath.IsAbs(loc.Path) {
		return loc, nil
	}

	prefix, err := filepath.Abs(relTo.url.Path)
	if err != nil {
		return nil, fmt.Errorf("resource: could not detect abs path for %s; %s", relTo.url.String(), err.Error())
	}
	return &url.URL{Path: filepath.Join(filepath.Dir(prefix), loc.Path)}, nil
}

// Create a new Resource data stream. If relTo is specified and pathToResource
// does not define a scheme, then the path to the new Resource will be generated
// by concatenating the base path of relTo and pathToResource.
//
// This function can handle http/https URLs by delegating to the net/http package.
// The caller must make sure to close the returned io.ReadCloser to prevent mem leaks.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	loc, err := Resolve(pathToResource, relTo)
	if err != nil {
		return nil, err
	}

	var reader io.ReadCloser
	size := int64(-1)
	switch loc.Scheme {
	case "":
		f, err := os.Open(filepath.Clean(loc.Path))
		if err != nil {
			return nil, err
		}
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
		reader = f
	case "http", "https":
		resp, err := httpClient.Get(loc.String())
		if err != nil {
			return nil, fmt.Errorf("resource: could not fetch '%s': %s", loc.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("resource: could not fetch '%s': status %d", loc.String(), resp.StatusCode)
		}
		size = resp.ContentLength
		reader = resp.Body
	default:
		return nil, fmt.Errorf("resource: unsupported scheme '%s'", loc.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        loc,
		size:       size,
	}, nil
}

// Create a resource from a reader.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	loc, _ := url.Parse(name)
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        loc,
		size:       -1,
	}
}
