package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/salespulse/platform/pkg/common/validation"
	"github.com/salespulse/platform/pkg/scoring"
)

const (
	snippetLimit  = 200
	snippetSuffix = "..."
)

// Payload is the results webhook body as sent by the scraping workflow.
type Payload struct {
	JobID   string          `json:"jobId" validate:"required,uuid"`
	Results []ResultPayload `json:"results" validate:"required,min=1,dive"`
}

type ResultPayload struct {
	UserID      string        `json:"userId" validate:"required,uuid"`
	LinkedInURL string        `json:"linkedinUrl" validate:"required,url"`
	Posts       []PostPayload `json:"posts" validate:"dive"`
}

// PostPayload counts are pointers so an absent count defaults to zero while a
// present negative one is still reported.
type PostPayload struct {
	PostID        string  `json:"postId" validate:"required"`
	PostURL       string  `json:"postUrl" validate:"required,url"`
	Text          *string `json:"text"`
	Type          string  `json:"type" validate:"required,oneof=POST REPOST"`
	PublishedDate string  `json:"publishedDate" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Likes         *int    `json:"likes" validate:"omitempty,gte=0"`
	Comments      *int    `json:"comments" validate:"omitempty,gte=0"`
	Reposts       *int    `json:"reposts" validate:"omitempty,gte=0"`
}

// Batch is a validated, normalized payload.
type Batch struct {
	JobID   uuid.UUID
	Results []TargetResult
}

type TargetResult struct {
	TargetID    uuid.UUID
	LinkedInURL string
	Posts       []PostInput
}

type PostInput struct {
	ExternalID  string
	URL         string
	Snippet     *string
	Type        scoring.PostType
	PublishedAt time.Time
	Likes       int
	Comments    int
	Reposts     int
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validation.New()}
}

// Parse decodes and validates a payload. Every failing field is reported in
// one *validation.Error, wrong JSON types included. A body over the request
// limit is returned as the underlying *http.MaxBytesError.
func (v *Validator) Parse(body io.Reader) (*Batch, error) {
	var doc interface{}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, decodeError(err)
	}

	typeErrs := validation.FieldErrors{}
	payload := readPayload(doc, typeErrs)
	return v.check(payload, typeErrs)
}

func (v *Validator) Validate(payload Payload) (*Batch, error) {
	return v.check(payload, validation.FieldErrors{})
}

// check runs the struct tags and merges their failures with typeErrs. A path
// that already has a type error, or sits below one, keeps only that error.
func (v *Validator) check(payload Payload, typeErrs validation.FieldErrors) (*Batch, error) {
	tagErrs := validation.FieldErrors{}
	validation.Collect(v.validate.Struct(payload), tagErrs)

	fields := validation.FieldErrors{}
	for path, msgs := range typeErrs {
		fields[path] = msgs
	}
	for path, msgs := range tagErrs {
		if !typeErrs.Covers(path) {
			fields[path] = append(fields[path], msgs...)
		}
	}
	if !fields.Empty() {
		return nil, &validation.Error{Message: "Invalid payload", Fields: fields}
	}

	batch := &Batch{
		JobID:   uuid.MustParse(payload.JobID),
		Results: make([]TargetResult, 0, len(payload.Results)),
	}
	for _, result := range payload.Results {
		tr := TargetResult{
			TargetID:    uuid.MustParse(result.UserID),
			LinkedInURL: result.LinkedInURL,
			Posts:       make([]PostInput, 0, len(result.Posts)),
		}
		for _, p := range result.Posts {
			postType, _ := scoring.FromSourceType(p.Type)
			published, _ := time.Parse(time.RFC3339, p.PublishedDate)
			tr.Posts = append(tr.Posts, PostInput{
				ExternalID:  p.PostID,
				URL:         p.PostURL,
				Snippet:     ExtractSnippet(p.Text),
				Type:        postType,
				PublishedAt: published.UTC(),
				Likes:       count(p.Likes),
				Comments:    count(p.Comments),
				Reposts:     count(p.Reposts),
			})
		}
		batch.Results = append(batch.Results, tr)
	}
	return batch, nil
}

// ExtractSnippet trims text and caps it at 200 characters, ellipsized.
func ExtractSnippet(text *string) *string {
	if text == nil {
		return nil
	}
	cleaned := strings.TrimSpace(*text)
	if cleaned == "" {
		return nil
	}
	runes := []rune(cleaned)
	if len(runes) > snippetLimit {
		cleaned = string(runes[:snippetLimit-len(snippetSuffix)]) + snippetSuffix
	}
	return &cleaned
}

func count(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}

	fields := validation.FieldErrors{}
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		fields.Add("body", "malformed JSON")
	case errors.Is(err, io.EOF):
		fields.Add("body", "is required")
	default:
		fields.Add("body", err.Error())
	}
	return &validation.Error{Message: "Invalid payload", Fields: fields}
}

// readPayload copies a generically decoded document into Payload. Values of
// the wrong JSON type are recorded in errs under their indexed path and left
// at their zero value.
func readPayload(doc interface{}, errs validation.FieldErrors) Payload {
	var payload Payload
	root, ok := doc.(map[string]interface{})
	if !ok {
		errs.Add("body", "must be of type object")
		return payload
	}

	r := reader{errs: errs}
	payload.JobID = r.str(root, "jobId", "jobId")
	items := r.array(root, "results", "results")
	if items != nil {
		payload.Results = make([]ResultPayload, 0, len(items))
	}
	for i, item := range items {
		path := fmt.Sprintf("results[%d]", i)
		var result ResultPayload
		if obj := r.object(item, path); obj != nil {
			result.UserID = r.str(obj, "userId", path+".userId")
			result.LinkedInURL = r.str(obj, "linkedinUrl", path+".linkedinUrl")
			for j, rawPost := range r.array(obj, "posts", path+".posts") {
				result.Posts = append(result.Posts, r.post(rawPost, fmt.Sprintf("%s.posts[%d]", path, j)))
			}
		}
		payload.Results = append(payload.Results, result)
	}
	return payload
}

type reader struct {
	errs validation.FieldErrors
}

func (r reader) post(v interface{}, path string) PostPayload {
	var post PostPayload
	obj := r.object(v, path)
	if obj == nil {
		return post
	}
	post.PostID = r.str(obj, "postId", path+".postId")
	post.PostURL = r.str(obj, "postUrl", path+".postUrl")
	post.Text = r.optionalStr(obj, "text", path+".text")
	post.Type = r.str(obj, "type", path+".type")
	post.PublishedDate = r.str(obj, "publishedDate", path+".publishedDate")
	post.Likes = r.count(obj, "likes", path+".likes")
	post.Comments = r.count(obj, "comments", path+".comments")
	post.Reposts = r.count(obj, "reposts", path+".reposts")
	return post
}

func (r reader) object(v interface{}, path string) map[string]interface{} {
	obj, ok := v.(map[string]interface{})
	if !ok {
		r.errs.Add(path, "must be of type object")
		return nil
	}
	return obj
}

// array returns nil for a missing or null key so the required tag reports it.
func (r reader) array(obj map[string]interface{}, key, path string) []interface{} {
	v, present := obj[key]
	if !present || v == nil {
		return nil
	}
	items, ok := v.([]interface{})
	if !ok {
		r.errs.Add(path, "must be of type array")
		return nil
	}
	return items
}

func (r reader) str(obj map[string]interface{}, key, path string) string {
	if s := r.optionalStr(obj, key, path); s != nil {
		return *s
	}
	return ""
}

func (r reader) optionalStr(obj map[string]interface{}, key, path string) *string {
	v, present := obj[key]
	if !present || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.errs.Add(path, "must be of type string")
		return nil
	}
	return &s
}

func (r reader) count(obj map[string]interface{}, key, path string) *int {
	v, present := obj[key]
	if !present || v == nil {
		return nil
	}
	num, ok := v.(json.Number)
	if !ok {
		r.errs.Add(path, "must be of type number")
		return nil
	}
	n, err := strconv.Atoi(num.String())
	if err != nil {
		r.errs.Add(path, "must be an integer")
		return nil
	}
	return &n
}
