package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thanhpk/randstr"
)

func TestStatic(t *testing.T) {
	sl := NewStaticLoader(map[string][]byte{"echo": []byte("e"), "initproc": []byte("i")})
	img, ok := sl.Load("echo")
	assert.True(t, ok)
	assert.Equal(t, []byte("e"), img)
	_, ok = sl.Load("nope")
	assert.False(t, ok)
	assert.Equal(t, []string{"echo", "initproc"}, sl.Names())
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	name := randstr.Hex(8)
	data := []byte(randstr.Hex(2500))
	assert.Nil(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
	assert.Nil(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	dl, err := NewDirLoader(dir, 2)
	assert.Nil(t, err)
	assert.Equal(t, []string{name}, dl.Names())

	img, ok := dl.Load(name)
	assert.True(t, ok)
	assert.Equal(t, data, img)
	assert.Equal(t, 1, dl.Len())

	// served from the cache after the file is gone
	assert.Nil(t, os.Remove(filepath.Join(dir, name)))
	img, ok = dl.Load(name)
	assert.True(t, ok)
	assert.Equal(t, data, img)

	_, ok = dl.Load("sub")
	assert.False(t, ok, "directory")
	_, ok = dl.Load("../" + name)
	assert.False(t, ok, "outside dir")

	_, err = NewDirLoader(filepath.Join(dir, "missing"), 2)
	assert.NotNil(t, err)
}

func TestChain(t *testing.T) {
	c := Chain{
		NewStaticLoader(map[string][]byte{"a": []byte("1")}),
		NewStaticLoader(map[string][]byte{"a": []byte("2"), "b": []byte("3")}),
	}
	img, ok := c.Load("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), img)
	img, ok = c.Load("b")
	assert.True(t, ok)
	assert.Equal(t, []byte("3"), img)
	assert.Equal(t, []string{"a", "b"}, c.Names())
}
