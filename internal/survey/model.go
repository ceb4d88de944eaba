package survey

import "time"

// Row is one contact record: CSV header cell → value.
type Row map[string]string

// Survey is one submitted campaign configuration plus its contact list.
// A survey is created exactly once at submission and never edited.
type Survey struct {
	ID                string `json:"survey_id"`
	Channel           string `json:"channel"`
	FunnelStage       string `json:"funnel_stage"`
	WebsiteURL        string `json:"website_url"`
	MessageLength     int    `json:"message_length"`
	ToneOfVoice       string `json:"tone_of_voice"`
	PersuasionTrigger string `json:"persuasion_trigger"`
	Template          string `json:"template"`

	ContactFileName string   `json:"contact_file_name,omitempty"`
	ContactColumns  []string `json:"contact_columns,omitempty"`
	ContactRows     []Row    `json:"contact_rows,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TruncateRows caps the contact list at max rows. Oversized uploads are
// truncated at submission time, never rejected.
func (s *Survey) TruncateRows(max int) {
	if max > 0 && len(s.ContactRows) > max {
		s.ContactRows = s.ContactRows[:max]
	}
}
