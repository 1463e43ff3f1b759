// Copyright 2025 The CQLite Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package block

import (
	"container/list"
	"encoding/binary"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cqlite/cqlite/internal/base"
	"github.com/cqlite/cqlite/internal/crc"
)

// DefaultCacheSize is the default number of decompressed chunks the cursor
// keeps warm (spec §4.2: "a small LRU of the last N decompressed chunks
// (configurable, default 8)").
const DefaultCacheSize = 8

// Cursor exposes random access over the logical (uncompressed) byte stream
// of Data.db, per spec §4.2. Cursor is safe for concurrent use; the
// internal cache is protected by a mutex, matching the "contention is low
// because decompression dominates" note of spec §5 — callers that want to
// avoid sharing entirely should construct one Cursor per scanning
// goroutine.
type Cursor struct {
	r        io.ReaderAt
	info     *CompressionInfo
	limit    int64 // exclusive end, in r's address space, of the valid compressed chunk region
	partial  bool  // PartialRead mode: report a CRC mismatch as ChunkSkipped
	cache    *chunkCache
	instance uint64 // distinguishes cache keys when a cache is reused across generations
}

// NewCursor constructs a Cursor reading compressed chunks from r (Data.db)
// according to info. If info is nil, the table is uncompressed and r is
// read directly (spec §4.2: "for uncompressed tables, the Data.db is read
// directly and CompressionInfo is absent"). limit is the exclusive end, in
// r's address space, of the valid compressed chunk region — the caller's
// component body length, excluding any trailing footer — so the last
// chunk's CRC trailer is never confused with bytes beyond it.
func NewCursor(r io.ReaderAt, info *CompressionInfo, cacheSize int, partialRead bool, instanceID uint64, limit int64) *Cursor {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Cursor{
		r:        r,
		info:     info,
		limit:    limit,
		partial:  partialRead,
		cache:    newChunkCache(cacheSize),
		instance: instanceID,
	}
}

// ChunkSkipped is the error ReadAt returns in PartialRead mode when a
// chunk's checksum does not match, in place of a ChunkCrcMismatch
// FormatError. No data is returned with it, and the read does not continue
// at the next chunk.
type ChunkSkipped struct {
	Chunk int
}

func (ChunkSkipped) Error() string { return "cqlite: chunk skipped after checksum mismatch" }

// ReadAt returns the `length` logical bytes starting at logicalOffset,
// spanning chunk boundaries by concatenation as needed (spec §4.2).
func (c *Cursor) ReadAt(logicalOffset int64, length int) ([]byte, error) {
	if c.info == nil {
		out := make([]byte, length)
		n, err := c.r.ReadAt(out, logicalOffset)
		if err != nil && err != io.EOF {
			return nil, err
		}
		return out[:n], nil
	}

	out := make([]byte, 0, length)
	remaining := length
	offset := logicalOffset
	for remaining > 0 {
		chunkIdx, intra := c.info.ChunkForOffset(offset)
		if chunkIdx >= len(c.info.Offsets) {
			break // EOF: caller asked past the end of the logical stream
		}
		chunk, err := c.chunk(chunkIdx)
		if err != nil {
			return nil, err
		}
		avail := len(chunk) - int(intra)
		if avail <= 0 {
			break
		}
		n := avail
		if n > remaining {
			n = remaining
		}
		out = append(out, chunk[intra:int(intra)+n]...)
		remaining -= n
		offset += int64(n)
	}
	return out, nil
}

// chunk returns the decompressed bytes of chunk idx, consulting (and
// populating) the LRU cache.
func (c *Cursor) chunk(idx int) ([]byte, error) {
	key := c.cacheKey(idx)
	if data, ok := c.cache.get(key); ok {
		return data, nil
	}

	start := int64(c.info.Offsets[idx])
	var end int64
	if idx+1 < len(c.info.Offsets) {
		end = int64(c.info.Offsets[idx+1])
	} else {
		end = c.limit // last chunk: bounded by the component body's true end, not physical EOF
	}

	compressed := make([]byte, end-start-4)
	_, err := io.ReadFull(io.NewSectionReader(c.r, start, end-start-4), compressed)
	if err != nil {
		return nil, err
	}

	var checksumBuf [4]byte
	checksumOff := start + int64(len(compressed))
	if _, err := c.r.ReadAt(checksumBuf[:], checksumOff); err != nil {
		return nil, err
	}
	expected := crc.Checksum(binary.BigEndian.Uint32(checksumBuf[:]))
	found := crc.New(compressed)
	if expected != found {
		if c.partial {
			return nil, ChunkSkipped{Chunk: idx}
		}
		return nil, base.NewFormatError("Data", start, base.ChunkCrcMismatch,
			"chunk %d: expected CRC32 %#08x, found %#08x", idx, uint32(expected), uint32(found))
	}

	uncompressedSize := c.info.UncompressedLen(idx)
	data, err := decompressChunk(c.info.Algorithm, compressed, uncompressedSize)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, data)
	return data, nil
}

func (c *Cursor) cacheKey(chunkIdx int) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], c.instance)
	binary.BigEndian.PutUint64(buf[8:], uint64(chunkIdx))
	return xxhash.Sum64(buf[:])
}

// chunkCache is a fixed-capacity LRU cache of decompressed chunk payloads,
// keyed by an xxhash of (cursor instance, chunk index) so a cache can in
// principle be shared across cursors without key collisions (spec §5: "a
// per-instance chunk cache is protected by a lock").
type chunkCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[uint64]*list.Element
}

type cacheEntry struct {
	key  uint64
	data []byte
}

func newChunkCache(capacity int) *chunkCache {
	return &chunkCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[uint64]*list.Element, capacity),
	}
}

func (c *chunkCache) get(key uint64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*cacheEntry).data, true
	}
	return nil, false
}

func (c *chunkCache) put(key uint64, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).data = data
		return
	}
	el := c.ll.PushFront(&cacheEntry{key: key, data: data})
	c.items[key] = el
	for c.ll.Len() > c.capacity {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.ll.Remove(back)
		delete(c.items, back.Value.(*cacheEntry).key)
	}
}
