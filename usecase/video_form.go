// usecase/video_form.go
package usecase

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/vitovidale/video-manager-service/domain"
)

const (
	titleMaxLength = 255
	tagMaxLength   = 100
)

// Form field names, in the order errors are reported.
const (
	FieldTitle      = "title"
	FieldFile       = "file"
	FieldCollection = "collection"
	FieldTags       = "tags"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldConfig holds the upload constraints of the video file field.
type FieldConfig struct {
	MaxUploadSize     int64
	AllowedExtensions []string
}

func (c FieldConfig) allowedExtensionsText() string {
	return strings.Join(c.AllowedExtensions, ", ")
}

// HelpText describes the accepted uploads to the user.
func (c FieldConfig) HelpText() string {
	text := fmt.Sprintf("Supported formats: %s.", strings.ToUpper(c.allowedExtensionsText()))
	if c.MaxUploadSize > 0 {
		text += fmt.Sprintf(" Maximum filesize: %s.", FormatFileSize(c.MaxUploadSize))
	}
	return text
}

func (c FieldConfig) ErrorInvalidFormat() string {
	return fmt.Sprintf("Not a supported video format. Supported formats: %s.", c.allowedExtensionsText())
}

func (c FieldConfig) ErrorFileTooLarge(size int64) string {
	return fmt.Sprintf("This file is too big (%s). Maximum filesize %s.", FormatFileSize(size), FormatFileSize(c.MaxUploadSize))
}

func (c FieldConfig) ErrorFileTooLargeUnknownSize() string {
	return fmt.Sprintf("This file is too big. Maximum filesize %s.", FormatFileSize(c.MaxUploadSize))
}

func (c FieldConfig) extensionAllowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// FormatFileSize renders a byte count the way upload error messages show it.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		if size == 1 {
			return "1 byte"
		}
		return fmt.Sprintf("%d bytes", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit && exp < 4; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTP"[exp])
}

// FieldError is a single validation failure attached to a form field.
type FieldError struct {
	Field   string
	Message string
}

// FormErrors keeps validation failures in the order they were found.
type FormErrors []FieldError

func (e *FormErrors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

func (e FormErrors) For(field string) []string {
	var msgs []string
	for _, fe := range e {
		if fe.Field == field {
			msgs = append(msgs, fe.Message)
		}
	}
	return msgs
}

func (e FormErrors) Empty() bool {
	return len(e) == 0
}

// Joined returns every message separated by newlines.
func (e FormErrors) Joined() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "\n")
}

// UploadedFile is a file received from a multipart request. Content must stay
// seekable so that storage backends can size and rewind it.
type UploadedFile struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// UploadForm carries the fields bound from a multi-upload request.
type UploadForm struct {
	Title        string `validate:"required,max=255"`
	CollectionID int
	File         *UploadedFile
}

// EditForm carries the fields of the per-video edit form. The file is not editable.
type EditForm struct {
	Prefix       string
	Title        string   `validate:"required,max=255"`
	CollectionID int
	Tags         []string `validate:"dive,max=100"`
}

// NewEditForm fills an edit form from the stored video.
func NewEditForm(video *domain.Video) EditForm {
	return EditForm{
		Prefix:       EditFormPrefix(video.ID),
		Title:        video.Title,
		CollectionID: video.CollectionID,
		Tags:         append([]string(nil), video.Tags...),
	}
}

// EditFormPrefix is the field-name prefix used for a video's edit form.
func EditFormPrefix(videoID int) string {
	return fmt.Sprintf("video-%d", videoID)
}

// ParseTags splits a comma separated tag list, dropping blanks and duplicates.
func ParseTags(raw string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		tags = append(tags, t)
	}
	return tags
}

// ValidateUpload checks an upload form. The file content is rewound after
// content sniffing.
func (c FieldConfig) ValidateUpload(form *UploadForm, collections []domain.Collection) FormErrors {
	var errs FormErrors
	structErrors(&errs, form)

	if form.File == nil || form.File.Content == nil {
		errs.Add(FieldFile, "This field is required.")
	} else {
		c.validateFile(&errs, form.File)
	}

	validateCollection(&errs, form.CollectionID, collections, 0)
	return errs
}

// ValidateEdit checks an edit form against the collections the user may move videos into.
func ValidateEdit(form *EditForm, collections []domain.Collection, currentCollectionID int) FormErrors {
	var errs FormErrors
	structErrors(&errs, form)
	validateCollection(&errs, form.CollectionID, collections, currentCollectionID)
	return errs
}

func (c FieldConfig) validateFile(errs *FormErrors, file *UploadedFile) {
	if !c.extensionAllowed(file.Filename) {
		errs.Add(FieldFile, c.ErrorInvalidFormat())
		return
	}

	header := make([]byte, 3072)
	n, err := io.ReadFull(file.Content, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		errs.Add(FieldFile, fmt.Sprintf("Could not read the uploaded file: %v", err))
		return
	}
	header = header[:n]
	if _, err := file.Content.Seek(0, io.SeekStart); err != nil {
		errs.Add(FieldFile, fmt.Sprintf("Could not read the uploaded file: %v", err))
		return
	}

	mime := mimetype.Detect(header)
	if !isVideoMIME(mime) {
		errs.Add(FieldFile, fmt.Sprintf("Not a valid video. Content type was %s.", mime.String()))
		return
	}

	if c.MaxUploadSize > 0 {
		if file.Size < 0 {
			errs.Add(FieldFile, c.ErrorFileTooLargeUnknownSize())
		} else if file.Size > c.MaxUploadSize {
			errs.Add(FieldFile, c.ErrorFileTooLarge(file.Size))
		}
	}
}

func isVideoMIME(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}

func validateCollection(errs *FormErrors, id int, collections []domain.Collection, current int) {
	if id == 0 {
		errs.Add(FieldCollection, "This field is required.")
		return
	}
	if id == current {
		return
	}
	for _, c := range collections {
		if c.ID == id {
			return
		}
	}
	errs.Add(FieldCollection, "Select a valid choice. That choice is not one of the available choices.")
}

func structErrors(errs *FormErrors, form interface{}) {
	err := formValidator().Struct(form)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.Add(FieldTitle, err.Error())
		return
	}
	for _, fe := range verrs {
		field := strings.ToLower(strings.SplitN(fe.StructField(), "[", 2)[0])
		switch fe.Tag() {
		case "required":
			errs.Add(field, "This field is required.")
		case "max":
			limit := titleMaxLength
			if field == FieldTags {
				limit = tagMaxLength
			}
			errs.Add(field, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).",
				limit, len([]rune(fmt.Sprint(fe.Value())))))
		default:
			errs.Add(field, fmt.Sprintf("Invalid value for %s.", field))
		}
	}
}
