package node

import (
	"testing"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/page"
	"github.com/stretchr/testify/require"
)

func newLeafPage(t *testing.T, size int) *Node {
	t.Helper()
	p := page.New(1, size)
	return New(p, KindLeaf)
}

func TestSlotted_AddGetRoundTrip(t *testing.T) {
	n := newLeafPage(t, 256)
	i0, err := n.AddLeafEntry(LeafEntry{Object: []byte("alpha"), DistanceToOwner: 1.5})
	require.NoError(t, err)
	require.Equal(t, 0, i0)

	i1, err := n.AddLeafEntry(LeafEntry{Object: []byte("bravo-longer"), DistanceToOwner: 2.25})
	require.NoError(t, err)
	require.Equal(t, 1, i1)

	require.Equal(t, 2, n.Occupation())

	e0, err := n.GetLeafEntry(0)
	require.NoError(t, err)
	require.Equal(t, []byte("alpha"), e0.Object)
	require.Equal(t, 1.5, e0.DistanceToOwner)

	e1, err := n.GetLeafEntry(1)
	require.NoError(t, err)
	require.Equal(t, []byte("bravo-longer"), e1.Object)
	require.Equal(t, 2.25, e1.DistanceToOwner)
}

func TestSlotted_FreeSpaceAccounting(t *testing.T) {
	n := newLeafPage(t, 64)
	free0 := n.Free()
	_, err := n.AddLeafEntry(LeafEntry{Object: []byte("12345678"), DistanceToOwner: 0})
	require.NoError(t, err)
	// free shrinks by entry size (8 fixed + 8 object) plus one directory slot.
	require.Equal(t, free0-(8+8+4), n.Free())
}

func TestSlotted_NodeFullOnOversizedEntry(t *testing.T) {
	n := newLeafPage(t, 64)
	big := make([]byte, 100)
	_, err := n.AddLeafEntry(LeafEntry{Object: big, DistanceToOwner: 0})
	require.ErrorIs(t, err, arberrors.ErrNodeFull)
}

func TestSlotted_ExactFitSucceedsOneByteOverFails(t *testing.T) {
	size := 64
	n := newLeafPage(t, size)
	free := n.Free()
	objLen := free - leafFixedSize - dirEntrySZ
	require.NoError(t, (func() error {
		_, err := n.AddLeafEntry(LeafEntry{Object: make([]byte, objLen), DistanceToOwner: 0})
		return err
	})())
	require.Equal(t, 0, n.Free())

	n2 := newLeafPage(t, size)
	_, err := n2.AddLeafEntry(LeafEntry{Object: make([]byte, objLen+1), DistanceToOwner: 0})
	require.ErrorIs(t, err, arberrors.ErrNodeFull)
}

func TestSlotted_RemoveLastEntry(t *testing.T) {
	n := newLeafPage(t, 256)
	_, _ = n.AddLeafEntry(LeafEntry{Object: []byte("a"), DistanceToOwner: 1})
	_, _ = n.AddLeafEntry(LeafEntry{Object: []byte("b"), DistanceToOwner: 2})
	require.NoError(t, n.RemoveEntry(1))
	require.Equal(t, 1, n.Occupation())
	e0, err := n.GetLeafEntry(0)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), e0.Object)
}

func TestSlotted_RemoveMiddleEntryCompacts(t *testing.T) {
	n := newLeafPage(t, 256)
	objs := []string{"alpha", "bravo", "charlie", "delta"}
	for i, o := range objs {
		_, err := n.AddLeafEntry(LeafEntry{Object: []byte(o), DistanceToOwner: float64(i)})
		require.NoError(t, err)
	}
	freeBefore := n.Free()

	require.NoError(t, n.RemoveEntry(1)) // remove "bravo"
	require.Equal(t, 3, n.Occupation())

	want := []string{"alpha", "charlie", "delta"}
	for i, w := range want {
		e, err := n.GetLeafEntry(i)
		require.NoError(t, err)
		require.Equal(t, []byte(w), e.Object, "slot %d", i)
	}
	// Removing a middle entry and fully compacting must reclaim exactly its
	// footprint (object bytes + one directory slot) as free space.
	require.Equal(t, freeBefore+len("bravo")+leafFixedSize+dirEntrySZ, n.Free())
}

func TestSlotted_RemoveThenReinsertFits(t *testing.T) {
	n := newLeafPage(t, 96)
	for i := 0; i < 3; i++ {
		_, err := n.AddLeafEntry(LeafEntry{Object: []byte("xxxx"), DistanceToOwner: float64(i)})
		require.NoError(t, err)
	}
	require.NoError(t, n.RemoveEntry(1))
	_, err := n.AddLeafEntry(LeafEntry{Object: []byte("yyyy"), DistanceToOwner: 9})
	require.NoError(t, err)
	require.Equal(t, 3, n.Occupation())
}

func TestIndexNode_EncodeDecode(t *testing.T) {
	p := page.New(2, 256)
	n := New(p, KindIndex)
	e := IndexEntry{Representative: []byte("repr-bytes"), Child: 42, Radius: 3.14, EntriesBelow: 7, DistanceToOwner: 1.1}
	idx, err := n.AddIndexEntry(e)
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	got, err := n.GetIndexEntry(0)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestIndexNode_SetIndexEntryUpdatesRadius(t *testing.T) {
	p := page.New(2, 256)
	n := New(p, KindIndex)
	e1 := IndexEntry{Representative: []byte("r1"), Child: 1, Radius: 1, EntriesBelow: 1}
	e2 := IndexEntry{Representative: []byte("r2"), Child: 2, Radius: 2, EntriesBelow: 2}
	_, err := n.AddIndexEntry(e1)
	require.NoError(t, err)
	_, err = n.AddIndexEntry(e2)
	require.NoError(t, err)

	updated := e1
	updated.Radius = 9.5
	require.NoError(t, n.SetIndexEntry(0, updated))

	got0, err := n.GetIndexEntry(0)
	require.NoError(t, err)
	require.Equal(t, 9.5, got0.Radius)
	got1, err := n.GetIndexEntry(1)
	require.NoError(t, err)
	require.Equal(t, e2, got1)
}

func TestMMNode_CapsAtTwoEntries(t *testing.T) {
	p := page.New(1, 256)
	n := New(p, KindMM)
	_, err := n.AddLeafEntry(LeafEntry{Object: []byte("a"), DistanceToOwner: 0})
	require.NoError(t, err)
	_, err = n.AddLeafEntry(LeafEntry{Object: []byte("b"), DistanceToOwner: 0})
	require.NoError(t, err)
	_, err = n.AddLeafEntry(LeafEntry{Object: []byte("c"), DistanceToOwner: 0})
	require.ErrorIs(t, err, arberrors.ErrNodeFull)
}

func TestNode_WrongKindRejected(t *testing.T) {
	p := page.New(1, 256)
	n := New(p, KindIndex)
	_, err := n.AddLeafEntry(LeafEntry{Object: []byte("a")})
	require.ErrorIs(t, err, arberrors.ErrInvalidArgument)
}

func TestNode_OutOfBoundsSlot(t *testing.T) {
	n := newLeafPage(t, 128)
	_, err := n.GetLeafEntry(0)
	require.ErrorIs(t, err, arberrors.ErrOutOfBounds)
}

func TestNode_RepresentativeIndexAndNodeRadiusRoundTrip(t *testing.T) {
	p := page.New(1, 128)
	n := New(p, KindIndex)
	n.SetRepresentativeIndex(3)
	n.SetNodeRadius(12.75)
	require.Equal(t, 3, n.RepresentativeIndex())
	require.Equal(t, 12.75, n.NodeRadius())
}
