package infrastructure

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/usecase"
)

var editFormTemplate = template.Must(template.New("edit_form").Parse(`<form action="/videos/multiple/{{.VideoID}}/" method="POST" class="video-edit-form" data-video-id="{{.VideoID}}">
	<ul class="fields">
		<li class="field{{if .TitleErrors}} error{{end}}">
			<label for="id_{{.Prefix}}-title">Title</label>
			<input type="text" name="{{.Prefix}}-title" id="id_{{.Prefix}}-title" value="{{.Title}}" maxlength="255" required>
			{{range .TitleErrors}}<p class="error-message">{{.}}</p>{{end}}
		</li>
		<li class="field{{if .CollectionErrors}} error{{end}}">
			<label for="id_{{.Prefix}}-collection">Collection</label>
			<select name="{{.Prefix}}-collection" id="id_{{.Prefix}}-collection">
				{{range .Collections}}<option value="{{.ID}}"{{if .Selected}} selected{{end}}>{{.Name}}</option>
				{{end}}
			</select>
			{{range .CollectionErrors}}<p class="error-message">{{.}}</p>{{end}}
		</li>
		<li class="field{{if .TagErrors}} error{{end}}">
			<label for="id_{{.Prefix}}-tags">Tags</label>
			<input type="text" name="{{.Prefix}}-tags" id="id_{{.Prefix}}-tags" value="{{.Tags}}">
			{{range .TagErrors}}<p class="error-message">{{.}}</p>{{end}}
		</li>
	</ul>
	<input type="submit" value="Update">
	<a href="/videos/multiple/{{.VideoID}}/delete/" class="delete">Delete</a>
</form>`))

type collectionOption struct {
	ID       int
	Name     string
	Selected bool
}

type editFormView struct {
	VideoID          int
	Prefix           string
	Title            string
	Tags             string
	Collections      []collectionOption
	TitleErrors      []string
	CollectionErrors []string
	TagErrors        []string
}

// RenderEditForm renders the inline edit form for a video, including any field errors.
func RenderEditForm(video *domain.Video, form usecase.EditForm, collections []domain.Collection, errs usecase.FormErrors) (string, error) {
	view := editFormView{
		VideoID:          video.ID,
		Prefix:           usecase.EditFormPrefix(video.ID),
		Title:            form.Title,
		Tags:             strings.Join(form.Tags, ", "),
		TitleErrors:      errs.For(usecase.FieldTitle),
		CollectionErrors: errs.For(usecase.FieldCollection),
		TagErrors:        errs.For(usecase.FieldTags),
	}

	seen := false
	for _, c := range collections {
		selected := c.ID == form.CollectionID
		seen = seen || selected
		view.Collections = append(view.Collections, collectionOption{ID: c.ID, Name: c.Name, Selected: selected})
	}
	if !seen && form.CollectionID == video.CollectionID && video.CollectionID != 0 {
		// Keep the current collection selectable even if the user cannot add to it.
		view.Collections = append([]collectionOption{{ID: video.CollectionID, Name: "Current collection", Selected: true}}, view.Collections...)
	}

	var buf bytes.Buffer
	if err := editFormTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
