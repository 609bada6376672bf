package model

type MediaAsset struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	FilePaths map[Quality]string `json:"filePaths"`
}

// SourcePath returns the stored file path for a tier, if one is recorded.
func (m *MediaAsset) SourcePath(q Quality) (string, bool) {
	p, ok := m.FilePaths[q]
	if !ok || p == "" {
		return "", false
	}

	return p, true
}
