package schema

// CoreStoryPageTable represents the 'core.storypage' table
type CoreStoryPageTable struct {
	Table            string
	StoryID          string
	PageNumber       string
	TextZh           string
	TextEn           string
	ImageURL         string
	AudioURLZh       string
	AudioURLEn       string
	CustomAudioURLZh string
	CustomAudioURLEn string
}

// CoreStoryPage is the schema definition for core.storypage, keyed by
// (storyid, pagenumber)
var CoreStoryPage = CoreStoryPageTable{
	Table:            "core.storypage",
	StoryID:          "storyid",
	PageNumber:       "pagenumber",
	TextZh:           "textzh",
	TextEn:           "texten",
	ImageURL:         "imageurl",
	AudioURLZh:       "audiourlzh",
	AudioURLEn:       "audiourlen",
	CustomAudioURLZh: "customaudiourlzh",
	CustomAudioURLEn: "customaudiourlen",
}

// Columns returns all standard column names
func (t CoreStoryPageTable) Columns() []string {
	return []string{
		t.StoryID, t.PageNumber, t.TextZh, t.TextEn, t.ImageURL,
		t.AudioURLZh, t.AudioURLEn, t.CustomAudioURLZh, t.CustomAudioURLEn,
	}
}
