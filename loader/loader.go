// Package loader finds program images by name. The kernel maps an
// image's bytes verbatim at the user base; there is no executable
// format to parse.
package loader

import (
	"sort"

	db "rvos/debug"
)

type Loader interface {
	Load(name string) ([]byte, bool)
	Names() []string
}

// StaticLoader serves images linked into the kernel.
type StaticLoader struct {
	imgs map[string][]byte
}

func NewStaticLoader(imgs map[string][]byte) *StaticLoader {
	return &StaticLoader{imgs: imgs}
}

func (sl *StaticLoader) Load(name string) ([]byte, bool) {
	img, ok := sl.imgs[name]
	if !ok {
		db.DPrintf(db.LOADER, "static: no image %q", name)
	}
	return img, ok
}

func (sl *StaticLoader) Names() []string {
	ns := make([]string, 0, len(sl.imgs))
	for n := range sl.imgs {
		ns = append(ns, n)
	}
	sort.Strings(ns)
	return ns
}

// Chain tries each loader in turn.
type Chain []Loader

func (c Chain) Load(name string) ([]byte, bool) {
	for _, l := range c {
		if img, ok := l.Load(name); ok {
			return img, true
		}
	}
	return nil, false
}

func (c Chain) Names() []string {
	seen := make(map[string]bool)
	ns := make([]string, 0)
	for _, l := range c {
		for _, n := range l.Names() {
			if !seen[n] {
				seen[n] = true
				ns = append(ns, n)
			}
		}
	}
	sort.Strings(ns)
	return ns
}
