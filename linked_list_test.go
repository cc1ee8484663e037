package modelcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func keysOf(l *recencyList) []Key {
	var out []Key
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.key)
	}
	return out
}

func TestRecencyListPushAndHead(t *testing.T) {
	t.Parallel()

	var l recencyList
	a, b, c := NewKey("a", ""), NewKey("b", ""), NewKey("c", "")
	l.PushTail(a)
	l.PushTail(b)
	l.PushTail(c)

	head, ok := l.Head()
	require.True(t, ok)
	require.Equal(t, a, head)
	require.Equal(t, []Key{a, b, c}, keysOf(&l))
}

func TestRecencyListMoveHeadToTail(t *testing.T) {
	t.Parallel()

	var l recencyList
	a, b, c := NewKey("a", ""), NewKey("b", ""), NewKey("c", "")
	na := l.PushTail(a)
	l.PushTail(b)
	l.PushTail(c)

	l.MoveToTail(na)

	require.Equal(t, []Key{b, c, a}, keysOf(&l))
	head, _ := l.Head()
	require.Equal(t, b, head, "moving the head must update the new head pointer")
}

func TestRecencyListMoveMiddleToTail(t *testing.T) {
	t.Parallel()

	var l recencyList
	a, b, c := NewKey("a", ""), NewKey("b", ""), NewKey("c", "")
	l.PushTail(a)
	nb := l.PushTail(b)
	l.PushTail(c)

	l.MoveToTail(nb)
	require.Equal(t, []Key{a, c, b}, keysOf(&l))
}

func TestRecencyListRemoveHead(t *testing.T) {
	t.Parallel()

	var l recencyList
	a, b := NewKey("a", ""), NewKey("b", "")
	na := l.PushTail(a)
	l.PushTail(b)

	l.Remove(na)
	require.Equal(t, []Key{b}, keysOf(&l))

	head, ok := l.Head()
	require.True(t, ok)
	require.Equal(t, b, head)
}

func TestRecencyListRemoveLastElementEmptiesList(t *testing.T) {
	t.Parallel()

	var l recencyList
	a := NewKey("a", "")
	na := l.PushTail(a)
	l.Remove(na)

	_, ok := l.Head()
	require.False(t, ok)
	require.Nil(t, l.tail)
}
