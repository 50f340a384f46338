package room

// Association binds a transport connection to the user and room it joined.
// A connection has at most one Association at a time.
type Association struct {
	ConnID string
	UserID string
	RoomID string
}

// Registry maps connection identities to their Association.
//
// A secondary (roomID, userID) index backs targeted routing so resolving a
// recipient never scans a room's membership.
type Registry struct {
	byConn map[string]Association

	// byRoomUser maps roomID -> userID -> connID. The most recent
	// registration for a (roomID, userID) pair wins.
	byRoomUser map[string]map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byConn:     make(map[string]Association),
		byRoomUser: make(map[string]map[string]string),
	}
}

// Register inserts or overwrites the Association for a.ConnID. When the
// connection was already registered, the previous Association is returned
// and the caller must reconcile the old room's membership.
func (r *Registry) Register(a Association) (prev Association, replaced bool) {
	prev, replaced = r.byConn[a.ConnID]
	if replaced {
		r.dropIndex(prev)
	}

	r.byConn[a.ConnID] = a

	users := r.byRoomUser[a.RoomID]
	if users == nil {
		users = make(map[string]string)
		r.byRoomUser[a.RoomID] = users
	}
	users[a.UserID] = a.ConnID

	return prev, replaced
}

// Unregister removes and returns the Association for connID.
func (r *Registry) Unregister(connID string) (Association, bool) {
	a, ok := r.byConn[connID]
	if !ok {
		return Association{}, false
	}
	delete(r.byConn, connID)
	r.dropIndex(a)
	return a, true
}

// Lookup returns the Association for connID, if any.
func (r *Registry) Lookup(connID string) (Association, bool) {
	a, ok := r.byConn[connID]
	return a, ok
}

// FindByUser returns the connection currently associated with the
// (userID, roomID) pair. When transport races produced duplicates, the most
// recently registered connection wins.
func (r *Registry) FindByUser(userID, roomID string) (connID string, ok bool) {
	users, ok := r.byRoomUser[roomID]
	if !ok {
		return "", false
	}
	connID, ok = users[userID]
	return connID, ok
}

// dropIndex removes a's index entry unless a later registration for the same
// (roomID, userID) pair has already claimed it.
func (r *Registry) dropIndex(a Association) {
	users, ok := r.byRoomUser[a.RoomID]
	if !ok {
		return
	}
	if users[a.UserID] != a.ConnID {
		return
	}
	delete(users, a.UserID)
	if len(users) == 0 {
		delete(r.byRoomUser, a.RoomID)
	}
}
