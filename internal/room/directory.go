package room

import (
	"sort"

	"github.com/samber/lo"
)

// Info is a read-only snapshot of one room, for introspection.
type Info struct {
	RoomID    string   `json:"roomId"`
	UserCount int      `json:"userCount"`
	Users     []string `json:"users"`
}

// Directory maps room identifiers to their current membership set.
//
// Rooms are created implicitly on first join and deleted the moment the
// membership set becomes empty; an entry with an empty set never exists.
type Directory struct {
	rooms map[string]map[string]struct{}
}

func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Join adds userID to roomID, creating the room if absent. It returns a
// snapshot of the membership as it was before the join, excluding the
// joining user, for handing to the new joiner.
func (d *Directory) Join(roomID, userID string) []string {
	members := d.rooms[roomID]
	if members == nil {
		members = make(map[string]struct{})
		d.rooms[roomID] = members
	}

	snapshot := lo.Without(lo.Keys(members), userID)
	sort.Strings(snapshot)

	members[userID] = struct{}{}
	return snapshot
}

// Leave removes userID from roomID. The room is deleted eagerly when its
// membership set empties.
func (d *Directory) Leave(roomID, userID string) {
	members, ok := d.rooms[roomID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(d.rooms, roomID)
	}
}

// Members returns the current membership of roomID, or an empty slice when
// the room does not exist.
func (d *Directory) Members(roomID string) []string {
	members := lo.Keys(d.rooms[roomID])
	sort.Strings(members)
	return members
}

// Get returns the Info snapshot for roomID, if the room exists.
func (d *Directory) Get(roomID string) (Info, bool) {
	members, ok := d.rooms[roomID]
	if !ok {
		return Info{}, false
	}
	users := lo.Keys(members)
	sort.Strings(users)
	return Info{RoomID: roomID, UserCount: len(users), Users: users}, true
}

// ListAll returns an Info snapshot for every existing room, ordered by
// room identifier.
func (d *Directory) ListAll() []Info {
	infos := make([]Info, 0, len(d.rooms))
	for roomID := range d.rooms {
		info, _ := d.Get(roomID)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RoomID < infos[j].RoomID })
	return infos
}
