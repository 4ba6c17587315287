package submission

import (
	"strconv"
	"strings"
	"time"
)

// Form field names shared by every wire encoding.
const (
	FieldTeamID       = "teamId"
	FieldTeamName     = "teamName"
	FieldQuestionID   = "questionId"
	FieldQuestion     = "question"
	FieldAnswer       = "answer"
	FieldIsCorrect    = "isCorrect"
	FieldTimestamp    = "timestamp"
	FieldPhotoName    = "photoName"
	FieldPhoto        = "photo"
	FieldPhotoDataURL = "photoDataUrl"
)

const defaultPhotoName = "camera-photo"

// Record is the persisted shape of one submission. Every backend stores and
// returns exactly this document.
type Record struct {
	ID                int64  `json:"id"`
	TeamID            string `json:"teamId"`
	TeamName          string `json:"teamName"`
	QuestionID        int    `json:"questionId"`
	Question          string `json:"question"`
	Answer            string `json:"answer"`
	IsCorrect         bool   `json:"isCorrect"`
	SubmittedAt       string `json:"submittedAt"`
	CreatedAt         string `json:"createdAt"`
	OriginalPhotoName string `json:"originalPhotoName"`
	PhotoMimeType     string `json:"photoMimeType,omitempty"`
	PhotoPath         string `json:"photoPath,omitempty"`
	PhotoDataURL      string `json:"photoDataUrl,omitempty"`
}

// Photo is a decoded image ready to be stored.
type Photo struct {
	Data     []byte
	MimeType string
	Filename string
}

// Payload is the decoder output: plain fields plus at most one photo.
type Payload struct {
	Fields map[string]string
	Photo  *Photo
}

// Input is a validated submission waiting for an id.
type Input struct {
	TeamID      string
	TeamName    string
	QuestionID  int
	Question    string
	Answer      string
	IsCorrect   bool
	SubmittedAt string
	PhotoName   string
	Photo       Photo
}

var requiredFields = []string{FieldTeamID, FieldTeamName, FieldQuestionID, FieldQuestion, FieldAnswer}

// BuildInput validates a decoded payload. now supplies the default submittedAt.
func BuildInput(p *Payload, now time.Time) (Input, error) {
	get := func(k string) string { return strings.TrimSpace(p.Fields[k]) }

	for _, f := range requiredFields {
		if get(f) == "" {
			return Input{}, missingField(f)
		}
	}
	if p.Photo == nil || len(p.Photo.Data) == 0 {
		return Input{}, missingField(FieldPhoto)
	}

	questionID, err := strconv.Atoi(get(FieldQuestionID))
	if err != nil {
		return Input{}, &ValidationError{Field: FieldQuestionID, Message: "questionId must be a number"}
	}

	in := Input{
		TeamID:      get(FieldTeamID),
		TeamName:    get(FieldTeamName),
		QuestionID:  questionID,
		Question:    p.Fields[FieldQuestion],
		Answer:      p.Fields[FieldAnswer],
		IsCorrect:   !strings.EqualFold(get(FieldIsCorrect), "false"),
		SubmittedAt: get(FieldTimestamp),
		PhotoName:   get(FieldPhotoName),
		Photo:       *p.Photo,
	}
	if in.SubmittedAt == "" {
		in.SubmittedAt = now.Format("3:04:05 PM")
	}
	if in.PhotoName == "" {
		in.PhotoName = p.Photo.Filename
	}
	if in.PhotoName == "" {
		in.PhotoName = defaultPhotoName
	}
	return in, nil
}
