package contele

import (
	"fmt"
	"strings"
)

// OptionIndex maps question IDs to their option ID → label tables.
type OptionIndex map[string]map[string]string

// BuildOptionIndex walks a form's template and returns the option index, a
// question ID → title index and the form title.
func BuildOptionIndex(form *Form) (OptionIndex, map[string]string, string) {
	optIndex := OptionIndex{}
	titleIndex := map[string]string{}
	var formTitle string
	if form.Template != nil {
		formTitle = form.Template.Title
		if formTitle == "" {
			formTitle = form.Template.Name
		}
		for _, seg := range form.Template.Segments {
			if seg.ID == "" {
				continue
			}
			titleIndex[seg.ID] = strings.TrimSpace(seg.Title)
			if len(seg.Options) != 0 {
				opts := make(map[string]string, len(seg.Options))
				for _, opt := range seg.Options {
					if opt.ID != "" {
						opts[opt.ID] = strings.TrimSpace(opt.Label)
					}
				}
				optIndex[seg.ID] = opts
			}
		}
	}
	return optIndex, titleIndex, formTitle
}

// HumanizeAnswer maps a raw answer to its human readable form. Answers to
// option questions arrive as comma separated option IDs and are translated
// to their labels; unknown IDs pass through unchanged.
func HumanizeAnswer(qid string, raw interface{}, optIndex OptionIndex) string {
	if raw == nil {
		return ""
	}
	s := RawAnswerString(raw)
	opts, ok := optIndex[qid]
	if !ok {
		return s
	}
	var labels []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if label, ok := opts[p]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, p)
		}
	}
	if len(labels) == 0 {
		return s
	}
	return strings.Join(labels, ", ")
}

// RawAnswerString renders a raw answer value as a string.
func RawAnswerString(raw interface{}) string {
	if raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", raw)
}
