package schema

// CoreUserVoiceTable represents the 'core.uservoice' table
type CoreUserVoiceTable struct {
	Table     string
	ID        string
	UserID    string
	Name      string
	FilePath  string
	Provider  string
	CreatedAt string
}

// CoreUserVoice is the schema definition for core.uservoice
var CoreUserVoice = CoreUserVoiceTable{
	Table:     "core.uservoice",
	ID:        "id",
	UserID:    "userid",
	Name:      "name",
	FilePath:  "filepath",
	Provider:  "provider",
	CreatedAt: "createdat",
}
