package schema

// LibraryReadingProgressTable represents the 'library.readingprogress' table
type LibraryReadingProgressTable struct {
	Table           string
	UserID          string
	StoryID         string
	StyleName       string
	CurrentPage     string
	DurationSeconds string
	UpdatedAt       string
}

// LibraryReadingProgress is the schema definition for library.readingprogress
var LibraryReadingProgress = LibraryReadingProgressTable{
	Table:           "library.readingprogress",
	UserID:          "userid",
	StoryID:         "storyid",
	StyleName:       "stylename",
	CurrentPage:     "currentpage",
	DurationSeconds: "durationseconds",
	UpdatedAt:       "updatedat",
}
