package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rvos/task"
)

func mkTask(pid task.Tpid) *task.Task {
	return task.NewTask(pid, nil, task.TrapContext{}, task.NoPid, nil)
}

func TestRunSuspend(t *testing.T) {
	m := NewManager()
	assert.Nil(t, m.RunNext())
	a, b := mkTask(1), mkTask(2)
	m.Add(a)
	m.Add(b)
	assert.Equal(t, 2, m.Len())

	assert.Same(t, a, m.RunNext())
	assert.Same(t, a, m.Current())
	assert.Equal(t, task.Running, a.Status())
	m.Suspend(a)
	assert.Nil(t, m.Current())
	assert.Equal(t, task.Ready, a.Status())

	assert.Same(t, b, m.RunNext(), "b has the smaller pass")
	m.Suspend(b)
	assert.Same(t, a, m.RunNext(), "tie goes to the earlier one")
	assert.Same(t, a, m.TakeCurrent())
	assert.Nil(t, m.Current())
	assert.Equal(t, uint64(3), m.NSwitch())
}

func TestRemoveDropsRef(t *testing.T) {
	m := NewManager()
	a, b := mkTask(1), mkTask(2)
	a.IncRef()
	m.Add(a)
	m.Add(b)
	assert.True(t, m.Remove(a))
	assert.Equal(t, int32(1), a.RefCount())
	assert.False(t, m.Remove(a))

	assert.Same(t, b, m.RunNext())
	assert.True(t, m.Remove(b))
	assert.Nil(t, m.Current())
	assert.Equal(t, int32(0), b.RefCount())
	assert.Equal(t, 0, m.Len())
}

func TestStride(t *testing.T) {
	m := NewManager()
	hi, lo := mkTask(1), mkTask(2)
	assert.Equal(t, int64(-1), m.SetPriority(hi, 1))
	assert.Equal(t, int64(-1), m.SetPriority(hi, 0))
	assert.Equal(t, int64(8), m.SetPriority(hi, 8))
	assert.Equal(t, int64(2), m.SetPriority(lo, 2))
	m.Add(hi)
	m.Add(lo)

	n := map[task.Tpid]int{}
	for i := 0; i < 50; i++ {
		cur := m.RunNext()
		n[cur.Pid()]++
		m.Suspend(cur)
	}
	// shares are proportional to priority, 8:2
	assert.Equal(t, 40, n[1])
	assert.Equal(t, 10, n[2])
}

func TestLess(t *testing.T) {
	assert.True(t, less(1, 2))
	assert.False(t, less(2, 1))
	assert.True(t, less(^uint64(0), 1), "wrapped")
}
