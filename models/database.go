package models

// Database is the whole persisted document. Missing keys decode to nil
// slices, which every reader treats as empty collections.
type Database struct {
	Users    []User   `json:"users"`
	Tokens   []Token  `json:"tokens"`
	Tracks   []Item   `json:"tracks"`
	Catalog  []Item   `json:"catalog"`
	Events   []Item   `json:"events"`
	Metrics  Metrics  `json:"metrics"`
	Reviews  []Review `json:"reviews"`
	Metadata Metadata `json:"metadata"`
}

// Metrics is a free-form bag; nil means "not configured yet".
type Metrics map[string]any

// Metadata carries document-level bookkeeping such as lastUpdated.
type Metadata map[string]any

const LastUpdatedKey = "lastUpdated"

func (m Metadata) LastUpdated() string {
	s, _ := m[LastUpdatedKey].(string)
	return s
}

// Items returns a pointer to the row slice for a serial-numbered kind.
// It returns nil for users, which are stored as typed records.
func (db *Database) Items(kind ResourceKind) *[]Item {
	switch kind {
	case ResourceTracks:
		return &db.Tracks
	case ResourceCatalog:
		return &db.Catalog
	case ResourceEvents:
		return &db.Events
	}
	return nil
}

func (db *Database) FindUser(id string) (int, *User) {
	for i := range db.Users {
		if db.Users[i].ID == id {
			return i, &db.Users[i]
		}
	}
	return -1, nil
}

// Clone returns a copy that shares no slices or maps with db at the top two
// levels, so callers may mutate rows without touching the original.
func (db Database) Clone() Database {
	out := Database{
		Users:    append([]User(nil), db.Users...),
		Tokens:   append([]Token(nil), db.Tokens...),
		Tracks:   cloneItems(db.Tracks),
		Catalog:  cloneItems(db.Catalog),
		Events:   cloneItems(db.Events),
		Reviews:  append([]Review(nil), db.Reviews...),
		Metrics:  cloneMap(db.Metrics),
		Metadata: cloneMap(db.Metadata),
	}
	return out
}

func cloneItems(in []Item) []Item {
	if in == nil {
		return nil
	}
	out := make([]Item, len(in))
	for i, it := range in {
		out[i] = it.Clone()
	}
	return out
}

func cloneMap[M ~map[string]any](in M) M {
	if in == nil {
		return nil
	}
	out := make(M, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
