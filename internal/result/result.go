package result

// Raw is a decoded response body whose shape is not trusted.
type Raw = map[string]any

// Analysis is what the user sees after a successful submission.
type Analysis struct {
	FeedbackText string `json:"feedback_text"`
	// DownloadURL is empty when the service offered no document.
	DownloadURL string       `json:"download_url,omitempty"`
	Jobs        []JobListing `json:"jobs"`
}

func (a Analysis) HasDownload() bool {
	return a.DownloadURL != ""
}

// JobListing is one matched posting. Fields missing in the response stay blank.
type JobListing struct {
	ID        string `mapstructure:"id" json:"id"`
	Title     string `mapstructure:"title" json:"title"`
	Company   string `mapstructure:"company" json:"company"`
	Location  string `mapstructure:"location" json:"location"`
	MatchRate string `mapstructure:"match_rate" json:"match_rate"`
	ApplyLink string `mapstructure:"link" json:"link"`
}
