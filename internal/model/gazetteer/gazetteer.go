package gazetteer

// Entry maps one alias as it may appear in answer text to the canonical
// map-search query. Several aliases share a query on purpose; deduplication
// downstream happens on Query, not Alias.
type Entry struct {
	Alias string `json:"alias"`
	Query string `json:"query"`
}

// Store exposes the attraction table. Entries are ordered: scan order is part
// of the detection contract, so implementations must preserve it.
type Store interface {
	List() []Entry
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	entries []Entry
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied entries.
func NewMemoryStore(entries []Entry) *MemoryStore {
	return &MemoryStore{entries: append([]Entry(nil), entries...)}
}

// List returns the entries in their configured order.
func (s *MemoryStore) List() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Seed provides the tourist attractions around the hotel.
func Seed() []Entry {
	return []Entry{
		{Alias: "Uppalapadu Nature Conservation", Query: "Uppalapadu Birds Sanctuary Guntur"},
		{Alias: "Uppalapadu", Query: "Uppalapadu Birds Sanctuary Guntur"},
		{Alias: "Birds Lake", Query: "Uppalapadu Birds Sanctuary Guntur"},
		{Alias: "Haailand", Query: "Haailand Amusement Park Guntur"},
		{Alias: "Haailand Amusement", Query: "Haailand Amusement Park Guntur"},
		{Alias: "Theme Park", Query: "Haailand Amusement Park Guntur"},
		{Alias: "Mangalagiri", Query: "Mangalagiri Lakshmi Narasimha Swamy Temple"},
		{Alias: "Mangalagiri Temple", Query: "Mangalagiri Lakshmi Narasimha Swamy Temple"},
		{Alias: "Lakshmi Narasimha", Query: "Mangalagiri Lakshmi Narasimha Swamy Temple"},
		{Alias: "Kondaveedu", Query: "Kondaveedu Fort Guntur"},
		{Alias: "Krishna Barrage", Query: "Krishna Barrage Vijayawada"},
		{Alias: "Undavalli Caves", Query: "Undavalli Caves Vijayawada"},
		{Alias: "Undavalli", Query: "Undavalli Caves Vijayawada"},
		{Alias: "Amaravati", Query: "Amaravati Stupa Andhra Pradesh"},
		{Alias: "Amaravati Stupa", Query: "Amaravati Stupa Andhra Pradesh"},
		{Alias: "Suryalanka Beach", Query: "Suryalanka Beach Bapatla"},
		{Alias: "Suryalanka", Query: "Suryalanka Beach Bapatla"},
		{Alias: "Kotappakonda", Query: "Kotappakonda Temple Guntur"},
		{Alias: "Nagarjuna Sagar", Query: "Nagarjuna Sagar Dam"},
		{Alias: "Nagarjuna Sagar Dam", Query: "Nagarjuna Sagar Dam"},
	}
}
