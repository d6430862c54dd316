package schema

// CoreStoryTable represents the 'core.story' table
type CoreStoryTable struct {
	Table            string
	ID               string
	UserID           string
	TitleZh          string
	TitleEn          string
	Status           string
	AudioStatus      string
	GenerationPrompt string
	SelectedStyleID  string
	CustomVoiceID    string
	ErrorMessage     string
	Description      string
	CreatedAt        string
	UpdatedAt        string
}

// CoreStory is the schema definition for core.story
var CoreStory = CoreStoryTable{
	Table:            "core.story",
	ID:               "id",
	UserID:           "userid",
	TitleZh:          "titlezh",
	TitleEn:          "titleen",
	Status:           "status",
	AudioStatus:      "audiostatus",
	GenerationPrompt: "generationprompt",
	SelectedStyleID:  "selectedstyleid",
	CustomVoiceID:    "customvoiceid",
	ErrorMessage:     "errormessage",
	Description:      "description",
	CreatedAt:        "createdat",
	UpdatedAt:        "updatedat",
}

// Columns returns all standard column names
func (t CoreStoryTable) Columns() []string {
	return []string{
		t.ID, t.UserID, t.TitleZh, t.TitleEn, t.Status, t.AudioStatus,
		t.GenerationPrompt, t.SelectedStyleID, t.CustomVoiceID,
		t.ErrorMessage, t.Description, t.CreatedAt, t.UpdatedAt,
	}
}
