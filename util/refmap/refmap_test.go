package refmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	db "rvos/debug"
)

func TestInsertDelete(t *testing.T) {
	rf := NewRefTable[uint32, string](db.TEST)
	v, ok := rf.Insert(1, func() string { return "a" })
	assert.False(t, ok)
	assert.Equal(t, "a", v)

	v, ok = rf.Insert(1, func() string { return "b" })
	assert.True(t, ok, "existing")
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, rf.Refs(1))

	del, err := rf.Delete(1)
	assert.Nil(t, err)
	assert.False(t, del)
	del, err = rf.Delete(1)
	assert.Nil(t, err)
	assert.True(t, del)
	assert.Equal(t, 0, rf.Len())

	_, err = rf.Delete(1)
	assert.NotNil(t, err)
}
