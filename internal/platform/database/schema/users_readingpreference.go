package schema

// UserPreferencesTable represents the 'users.readingpreference' table
type UserPreferencesTable struct {
	Table             string
	UserID            string
	NarrationLanguage string
	TextLanguage      string
	AutoplayAudio     string
	AutoAdvance       string
	PreloadPages      string
	DataSaver         string
}

// UserPreferences is the schema definition for users.readingpreference
var UserPreferences = UserPreferencesTable{
	Table:             "users.readingpreference",
	UserID:            "userid",
	NarrationLanguage: "narrationlanguage",
	TextLanguage:      "textlanguage",
	AutoplayAudio:     "autoplayaudio",
	AutoAdvance:       "autoadvance",
	PreloadPages:      "preloadpages",
	DataSaver:         "datasaver",
}

// Columns returns all standard column names
func (t UserPreferencesTable) Columns() []string {
	return []string{t.UserID, t.NarrationLanguage, t.TextLanguage, t.AutoplayAudio, t.AutoAdvance, t.PreloadPages, t.DataSaver}
}
