package schema

// CoreGuestReadingLogTable represents the 'core.guestreadinglog' table
type CoreGuestReadingLogTable struct {
	Table   string
	ID      string
	GuestID string
	StoryID string
	ReadAt  string
}

// CoreGuestReadingLog is the schema definition for core.guestreadinglog
var CoreGuestReadingLog = CoreGuestReadingLogTable{
	Table:   "core.guestreadinglog",
	ID:      "id",
	GuestID: "guestid",
	StoryID: "storyid",
	ReadAt:  "readat",
}
