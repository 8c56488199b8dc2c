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

// Package blockcache caches fixed-sized chunks of remote objects so that
// raster datasets backed by object storage are not re-fetched block by block
// on every windowed access.
package blockcache

import (
	"errors"
	"fmt"
	"io"

	"github.com/vburenin/nsync"
)

// KeyReaderAt is the interface that wraps the basic ReadAt method for the
// resource identified by key.
//
// ReadAt reads len(p) bytes from the resource identified by key into p
// starting at offset off. It returns the number of bytes read
// (0 <= n <= len(p)) and any error encountered. When ReadAt returns
// n < len(p), it returns a non-nil error explaining why more bytes were not
// returned. Clients may execute parallel ReadAt calls on the same key.
//
// Implementations must not retain p.
type KeyReaderAt interface {
	ReadAt(key string, p []byte, off int64) (int, error)
}

// Cacher is the interface that wraps block caching functionality
//
// Add inserts data to the cache for the given key and blockID.
//
// Get fetches the data for the given key and blockID. It returns the data
// and whether the data was found in the cache or not.
//
// PurgeKey empties the underlying cache for the given key, Purge for all keys
type Cacher interface {
	Add(key string, blockID uint, data []byte)
	Get(key string, blockID uint) ([]byte, bool)
	PurgeKey(key string)
	Purge()
}

// NamedOnceMutex is a locker on arbitrary lock names.
type NamedOnceMutex interface {
	//Lock tries to acquire a lock on a keyed resource. If the keyed resource is not already locked,
	//Lock aquires a lock to the resource and returns true. If the keyed resource is already locked,
	//Lock waits until the resource has been unlocked and returns false
	Lock(key interface{}) bool
	//Unlock a keyed resource. Should be called by a client whose call to Lock returned true once the
	//resource is ready for consumption by other clients
	Unlock(key interface{})
}

// BlockCache caches fixed-sized chunks of a KeyReaderAt, and exposes a
// KeyReaderAt that feeds primarily from its internal cache, ensuring that
// concurrent requests for the same block only result in a single call to the
// source reader.
type BlockCache struct {
	blockSize int64
	blmu      NamedOnceMutex
	cache     Cacher
	reader    KeyReaderAt
}

// New creates a BlockCache of blockSize-sized chunks over reader, storing
// fetched blocks in cache. blockSize 0 defaults to 64kb.
func New(reader KeyReaderAt, cache Cacher, blockSize uint) *BlockCache {
	if blockSize == 0 {
		blockSize = 64 * 1024
	}
	return &BlockCache{
		blmu:      nsync.NewNamedOnceMutex(),
		cache:     cache,
		blockSize: int64(blockSize),
		reader:    reader,
	}
}

// SetLocker overrides the block fetch deduplication lock
func (b *BlockCache) SetLocker(mu NamedOnceMutex) {
	b.blmu = mu
}

func (b *BlockCache) PurgeKey(key string) {
	b.cache.PurgeKey(key)
}

func (b *BlockCache) Purge() {
	b.cache.Purge()
}

// ReadAt implements KeyReaderAt through the cache. A short read returns
// io.EOF like the underlying reader would.
func (b *BlockCache) ReadAt(key string, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	first := off / b.blockSize
	last := (off + int64(len(p)) - 1) / b.blockSize
	written := 0
	for id := first; id <= last; id++ {
		data, err := b.getBlock(key, id)
		if err != nil {
			return written, err
		}
		srcOff := int64(0)
		dstOff := id*b.blockSize - off
		if dstOff < 0 {
			srcOff = -dstOff
			dstOff = 0
		}
		if srcOff >= int64(len(data)) {
			// past the end of the resource
			break
		}
		written += copy(p[dstOff:], data[srcOff:])
		if int64(len(data)) < b.blockSize {
			// short block: the resource ends inside it
			break
		}
	}
	if written < len(p) {
		return written, io.EOF
	}
	return written, nil
}

func (b *BlockCache) blockKey(key string, id int64) string {
	return fmt.Sprintf("%s-%d", key, id)
}

// getBlock returns block id of key, fetching and caching it on a miss. The
// named once-mutex ensures a block being fetched is only requested once
// however many readers are waiting on it.
func (b *BlockCache) getBlock(key string, id int64) ([]byte, error) {
	blockData, ok := b.cache.Get(key, uint(id))
	if ok {
		return blockData, nil
	}
	blockID := b.blockKey(key, id)
	if b.blmu.Lock(blockID) {
		buf := make([]byte, b.blockSize)
		n, err := b.reader.ReadAt(key, buf, id*b.blockSize)
		if err != nil && !errors.Is(err, io.EOF) {
			b.blmu.Unlock(blockID)
			return nil, err
		}
		if n > 0 {
			buf = buf[0:n]
		} else {
			buf = nil
		}
		b.cache.Add(key, uint(id), buf)
		b.blmu.Unlock(blockID)
		return buf, nil
	}
	//lock not acquired: the fetch happened elsewhere, recheck the cache
	return b.getBlock(key, id)
}

type keyView struct {
	key  string
	size int64
	b    *BlockCache
}

// KeyReader returns an io.ReaderAt view of the resource identified by key,
// clamped to size bytes, suitable for handing to format decoders
func (b *BlockCache) KeyReader(key string, size int64) io.ReaderAt {
	return keyView{key: key, size: size, b: b}
}

func (v keyView) ReadAt(p []byte, off int64) (int, error) {
	if off >= v.size {
		return 0, io.EOF
	}
	trimmed := false
	if max := v.size - off; int64(len(p)) > max {
		p = p[:max]
		trimmed = true
	}
	n, err := v.b.ReadAt(v.key, p, off)
	if err == nil && trimmed {
		err = io.EOF
	}
	return n, err
}
