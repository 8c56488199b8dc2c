// Copyright 2021 Airbus Defence and Space
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gcs opens raster datasets stored on cloud storage buckets through
// cloud.google.com/go/storage, caching fetched blocks in memory so that
// windowed accesses do not refetch the same ranges.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/airbusgeo/rastio"
	"github.com/airbusgeo/rastio/internal/blockcache"

	"cloud.google.com/go/storage"
	lru "github.com/hashicorp/golang-lru"
	"google.golang.org/api/googleapi"
)

// Handler reads bucket objects block by block through an in-memory cache. It
// implements blockcache.KeyReaderAt on "bucket/object" keys.
type Handler struct {
	ctx                context.Context
	client             *storage.Client
	cacher             blockcache.Cacher
	blockSize          int
	maxCachedBlocks    int
	maxCachedMetadatas int
	blockCache         *blockcache.BlockCache
	sizecache          *lru.Cache
	billingProjectID   string
}

//Option is an option that can be passed to New
type Option func(o *Handler)

// Client sets the cloud.google.com/go/storage.Client that will be used
// by the handler
func Client(cl *storage.Client) Option {
	return func(o *Handler) {
		o.client = cl
	}
}

// Cacher allows to plugin a custom cache mechanism instead of the default in
// memory lru cache. MaxCachedBlocks() will not be honored if you provide your
// own cacher, it is up to your cacher implementation to handle block eviction
func Cacher(cacher blockcache.Cacher) Option {
	return func(o *Handler) {
		o.cacher = cacher
	}
}

// BlockSize sets the size of requests that will go out to the storage API.
// Defaults to 1Mb
func BlockSize(bs int) Option {
	if bs < 1 {
		panic("invalid blocksize")
	}
	return func(o *Handler) {
		o.blockSize = bs
	}
}

// MaxCachedBlocks sets the number of blocks to keep in the lru cache.
// Defaults to 1000
func MaxCachedBlocks(n int) Option {
	if n < 1 {
		panic("invalid max cached blocks")
	}
	return func(o *Handler) {
		o.maxCachedBlocks = n
	}
}

// BillingProject sets the project name which should be billed for the requests.
// This is mandatory if the bucket is in requester-pays mode.
func BillingProject(projectID string) Option {
	return func(o *Handler) {
		o.billingProjectID = projectID
	}
}

//MaxCachedMetadatas sets the number of object names whose size will be kept in
//cache. This also accounts for non-existing objects (i.e. opening a
//non-existing object twice will not result in a second API call going to the
//storage endpoint)
func MaxCachedMetadatas(n int) Option {
	if n < 1 {
		panic("invalid max cached metadatas")
	}
	return func(o *Handler) {
		o.maxCachedMetadatas = n
	}
}

// New creates a Handler. ctx is retained and used for every storage request
// going through the handler.
func New(ctx context.Context, opts ...Option) (*Handler, error) {
	handler := &Handler{
		ctx:                ctx,
		blockSize:          1024 * 1024,
		maxCachedBlocks:    1000,
		maxCachedMetadatas: 10000,
	}
	for _, o := range opts {
		o(handler)
	}
	handler.sizecache, _ = lru.New(handler.maxCachedMetadatas)
	if handler.client == nil {
		cl, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage.newclient: %w", err)
		}
		handler.client = cl
	}
	if handler.cacher == nil {
		handler.cacher, _ = blockcache.NewCache(uint(handler.maxCachedBlocks))
	}
	handler.blockCache = blockcache.New(handler, handler.cacher, uint(handler.blockSize))
	return handler, nil
}

func parse(gsUri string) (bucket, object string) {
	gsUri = strings.TrimPrefix(gsUri, "gs://")
	if len(gsUri) > 0 && gsUri[0] == '/' {
		gsUri = gsUri[1:]
	}
	firstSlash := strings.Index(gsUri, "/")
	if firstSlash == -1 {
		bucket = gsUri
		object = ""
	} else {
		bucket = gsUri[0:firstSlash]
		object = gsUri[firstSlash+1:]
	}
	return
}

func (gcs *Handler) precheck(key string, off int64) error {
	s, ok := gcs.sizecache.Get(key)
	if ok {
		s64 := s.(int64)
		if s64 == -1 {
			return syscall.ENOENT
		}
		if off >= s64 {
			return io.EOF
		}
	}
	return nil
}

// ReadAt reads len(p) bytes of the object identified by key ("bucket/object")
// starting at offset off, going directly to the storage API
func (gcs *Handler) ReadAt(key string, p []byte, off int64) (int, error) {
	if err := gcs.precheck(key, off); err != nil {
		return 0, err
	}
	bucket, object := parse(key)
	if len(bucket) == 0 || len(object) == 0 {
		return 0, fmt.Errorf("invalid key")
	}
	gbucket := gcs.client.Bucket(bucket)
	if gcs.billingProjectID != "" {
		gbucket = gbucket.UserProject(gcs.billingProjectID)
	}
	r, err := gbucket.Object(object).NewRangeReader(gcs.ctx, off, int64(len(p)))
	if err != nil {
		var gerr *googleapi.Error
		if off > 0 && errors.As(err, &gerr) && gerr.Code == 416 {
			return 0, io.EOF
		}
		if off == 0 && errors.Is(err, storage.ErrObjectNotExist) {
			gcs.sizecache.Add(key, int64(-1))
			return 0, syscall.ENOENT
		}
		return 0, fmt.Errorf("new reader for gs://%s/%s: %w", bucket, object, err)
	}
	if sz := r.Attrs.Size; sz > 0 {
		gcs.sizecache.Add(key, sz)
	}
	defer r.Close()
	n, err := io.ReadFull(r, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// Size returns the byte size of the object identified by key, from the
// metadata cache when possible
func (gcs *Handler) Size(key string) (int64, error) {
	s, ok := gcs.sizecache.Get(key)
	if !ok {
		bucket, object := parse(key)
		if len(bucket) == 0 || len(object) == 0 {
			return 0, fmt.Errorf("invalid key")
		}
		gbucket := gcs.client.Bucket(bucket)
		if gcs.billingProjectID != "" {
			gbucket = gbucket.UserProject(gcs.billingProjectID)
		}
		attrs, err := gbucket.Object(object).Attrs(gcs.ctx)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotExist) {
				gcs.sizecache.Add(key, int64(-1))
				return 0, syscall.ENOENT
			}
			return 0, fmt.Errorf("attrs of gs://%s/%s: %w", bucket, object, err)
		}
		gcs.sizecache.Add(key, attrs.Size)
		s = attrs.Size
	}
	size := s.(int64)
	if size == -1 {
		return 0, syscall.ENOENT
	}
	return size, nil
}

// Reader returns a cached io.ReaderAt view of the object at uri
// ("gs://bucket/object" or "bucket/object")
func (gcs *Handler) Reader(uri string) (io.ReaderAt, error) {
	bucket, object := parse(uri)
	key := bucket + "/" + object
	size, err := gcs.Size(key)
	if err != nil {
		return nil, err
	}
	return gcs.blockCache.KeyReader(key, size), nil
}

// Open opens the NumPy data file at uri as an in-memory dataset, fetching it
// block by block from cloud storage
func Open(ctx context.Context, uri string, opts ...Option) (*rastio.Dataset, error) {
	handler, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	r, err := handler.Reader(uri)
	if err != nil {
		return nil, err
	}
	return rastio.OpenNpy(r)
}
