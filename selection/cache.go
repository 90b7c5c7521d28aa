package selection

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"

	"github.com/hashicorp/golang-lru"
	"github.com/peterbourgon/diskv"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrCacheMiss is returned by a MaskCacher when no mask is stored for a key.
var ErrCacheMiss = errors.New("cache miss error")

// CacheKey identifies the mask that selector s would fit on X. It is a sha256 over the
// configuration of s and the shape and contents of X.
func CacheKey(s Selector, X mat.Matrix) string {
	h := sha256.New()
	h.Write([]byte(s.String()))
	r, c := X.Dims()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(r))
	h.Write(b[:])
	binary.LittleEndian.PutUint64(b[:], uint64(c))
	h.Write(b[:])
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(X.At(i, j)))
			h.Write(b[:])
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// BlockTransform determines how diskv should partition folders.
func BlockTransform(blockSize int) func(string) []string {
	return func(s string) []string {
		var (
			sliceSize = len(s) / blockSize
			pathSlice = make([]string, sliceSize)
		)
		for i := 0; i < sliceSize; i++ {
			from, to := i*blockSize, (i*blockSize)+blockSize
			pathSlice[i] = s[from:to]
		}
		return pathSlice
	}
}

// MaskToBytes encodes a mask to bytes.
func MaskToBytes(mask ColumnMask) ([]byte, error) {
	var buff bytes.Buffer
	err := gob.NewEncoder(&buff).Encode(mask)
	if err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// MaskCacher models a way to cache (either persistent or not) fitted masks.
type MaskCacher interface {
	Get(key string) (ColumnMask, error)
	Set(key string, mask ColumnMask) error
}

// MaskCache embeds a privately defined mask cacher into a public struct.
type MaskCache struct {
	MaskCacher
}

type mapMaskCache struct {
	m map[string]ColumnMask
}

func (m mapMaskCache) Get(key string) (ColumnMask, error) {
	if mask, ok := m.m[key]; ok {
		return append(ColumnMask(nil), mask...), nil
	}
	return nil, ErrCacheMiss
}

func (m mapMaskCache) Set(key string, mask ColumnMask) error {
	m.m[key] = append(ColumnMask(nil), mask...)
	return nil
}

// NewMapMaskCache creates a mask cache out of a regular go map.
func NewMapMaskCache() MaskCache {
	return MaskCache{mapMaskCache{make(map[string]ColumnMask)}}
}

type lruMaskCache struct {
	*lru.Cache
}

func (l lruMaskCache) Get(key string) (ColumnMask, error) {
	v, ok := l.Cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append(ColumnMask(nil), v.(ColumnMask)...), nil
}

func (l lruMaskCache) Set(key string, mask ColumnMask) error {
	l.Cache.Add(key, append(ColumnMask(nil), mask...))
	return nil
}

// NewLRUMaskCache creates an in-memory mask cache holding at most size masks.
func NewLRUMaskCache(size int) (MaskCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return MaskCache{}, errors.Wrap(err, "creating lru mask cache")
	}
	return MaskCache{lruMaskCache{c}}, nil
}

type diskvMaskCache struct {
	*diskv.Diskv
}

func (d diskvMaskCache) Get(key string) (ColumnMask, error) {
	b, err := d.Read(key)
	if err != nil {
		return nil, ErrCacheMiss
	}
	var mask ColumnMask
	err = gob.NewDecoder(bytes.NewReader(b)).Decode(&mask)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding cached mask %s", key)
	}
	return mask, nil
}

func (d diskvMaskCache) Set(key string, mask ColumnMask) error {
	b, err := MaskToBytes(mask)
	if err != nil {
		return err
	}
	return d.Write(key, b)
}

// NewDiskvMaskCache creates a new on-disk cache with the specified diskv parameters.
func NewDiskvMaskCache(dv *diskv.Diskv) MaskCache {
	return MaskCache{diskvMaskCache{dv}}
}
