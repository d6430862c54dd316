// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package voice manages user-uploaded voice samples.

A sample is a short recording the workflow engine clones for custom story
narration. Samples are stored on the shared filesystem where the engine
can read them; the database keeps ownership and the storage path.
*/
package voice

import "time"

// # Entities

// Voice is a stored voice sample owned by a user.
type Voice struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	FilePath  string    `json:"-"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProviderUpload marks samples recorded or uploaded by the user directly.
// Other providers would be external voice libraries.
const ProviderUpload = "upload"
