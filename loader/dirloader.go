package loader

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/readahead"

	db "rvos/debug"
)

const (
	MAXIMG  = 1 << 20
	RA_BUFS = 4
	RA_SZ   = 64 * 1024
)

// DirLoader serves the regular files of a host directory as images,
// keeping the most recently loaded ones in memory.
type DirLoader struct {
	dir   string
	cache *lru.Cache[string, []byte]
}

func NewDirLoader(dir string, ncache int) (*DirLoader, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	c, err := lru.New[string, []byte](ncache)
	if err != nil {
		return nil, err
	}
	return &DirLoader{dir: dir, cache: c}, nil
}

func (dl *DirLoader) Load(name string) ([]byte, bool) {
	if img, ok := dl.cache.Get(name); ok {
		db.DPrintf(db.LOADER, "cache hit %q", name)
		return img, true
	}
	if name == "" || filepath.Base(name) != name {
		return nil, false
	}
	img, err := dl.read(filepath.Join(dl.dir, name))
	if err != nil {
		db.DPrintf(db.LOADER, "load %q err %v", name, err)
		return nil, false
	}
	if evict := dl.cache.Add(name, img); evict {
		db.DPrintf(db.LOADER, "eviction")
	}
	db.DPrintf(db.LOADER, "load %q %s", name, humanize.Bytes(uint64(len(img))))
	return img, true
}

func (dl *DirLoader) read(pn string) ([]byte, error) {
	f, err := os.Open(pn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !st.Mode().IsRegular() {
		return nil, os.ErrNotExist
	}
	ra, err := readahead.NewReaderSize(f, RA_BUFS, RA_SZ)
	if err != nil {
		return nil, err
	}
	defer ra.Close()
	img, err := io.ReadAll(io.LimitReader(ra, MAXIMG+1))
	if err != nil {
		return nil, err
	}
	if len(img) > MAXIMG {
		db.DPrintf(db.LOADER, "%v larger than %s", pn, humanize.IBytes(MAXIMG))
		return nil, os.ErrInvalid
	}
	return img, nil
}

func (dl *DirLoader) Names() []string {
	des, err := os.ReadDir(dl.dir)
	if err != nil {
		db.DPrintf(db.LOADER, "readdir %v err %v", dl.dir, err)
		return nil
	}
	ns := make([]string, 0, len(des))
	for _, de := range des {
		if de.Type().IsRegular() {
			ns = append(ns, de.Name())
		}
	}
	sort.Strings(ns)
	return ns
}

// Len is the number of cached images.
func (dl *DirLoader) Len() int {
	return dl.cache.Len()
}
