package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_JoinReturnsPriorMembership(t *testing.T) {
	d := NewDirectory()

	assert.Empty(t, d.Join("r1", "alice"))
	assert.Equal(t, []string{"alice"}, d.Join("r1", "bob"))
	assert.Equal(t, []string{"alice", "bob"}, d.Join("r1", "carol"))

	// A re-join never lists the joiner in its own snapshot.
	assert.Equal(t, []string{"alice", "carol"}, d.Join("r1", "bob"))
	assert.Equal(t, []string{"alice", "bob", "carol"}, d.Members("r1"))
}

func TestDirectory_LeaveDeletesEmptyRoom(t *testing.T) {
	d := NewDirectory()

	d.Join("r1", "alice")
	d.Join("r1", "bob")

	d.Leave("r1", "alice")
	assert.Equal(t, []string{"bob"}, d.Members("r1"))

	d.Leave("r1", "bob")
	assert.Empty(t, d.Members("r1"))
	_, ok := d.Get("r1")
	assert.False(t, ok)
	assert.Empty(t, d.ListAll())

	// Leaving an absent room or a room the user is not in is a no-op.
	d.Leave("r1", "bob")
	d.Leave("nope", "alice")
}

func TestDirectory_MembersAbsentRoomIsEmpty(t *testing.T) {
	d := NewDirectory()
	assert.Empty(t, d.Members("ghost"))
}

func TestDirectory_ListAll(t *testing.T) {
	d := NewDirectory()

	d.Join("b", "bob")
	d.Join("a", "alice")
	d.Join("a", "carol")

	infos := d.ListAll()
	require.Len(t, infos, 2)
	assert.Equal(t, Info{RoomID: "a", UserCount: 2, Users: []string{"alice", "carol"}}, infos[0])
	assert.Equal(t, Info{RoomID: "b", UserCount: 1, Users: []string{"bob"}}, infos[1])
}
