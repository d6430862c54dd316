package schema

// CoreStoryStyleTable represents the 'core.storystyle' table
type CoreStoryStyleTable struct {
	Table      string
	StoryID    string
	Name       string
	NameEn     string
	CoverImage string
}

// CoreStoryStyle is the schema definition for core.storystyle, keyed by
// (storyid, name)
var CoreStoryStyle = CoreStoryStyleTable{
	Table:      "core.storystyle",
	StoryID:    "storyid",
	Name:       "name",
	NameEn:     "nameen",
	CoverImage: "coverimage",
}
