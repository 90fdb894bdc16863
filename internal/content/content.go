// Package content reads the rich text and canvas documents journals are
// stored as.
package content

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"iskrib/internal/models"
)

// PreviewLength is the number of characters kept in a feed preview.
const PreviewLength = 215

// Image is an embedded picture.
type Image struct {
	Src    string  `json:"src"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Parsed is the extracted view of a text journal.
type Parsed struct {
	WholeText  string  `json:"wholeText"`
	SlicedText string  `json:"slicedText"`
	Images     []Image `json:"images"`
	FirstImage *Image  `json:"firstImage,omitempty"`
}

type node struct {
	Type     string  `json:"type"`
	Text     string  `json:"text"`
	Src      string  `json:"src"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Children []node  `json:"children"`
}

type document struct {
	Root *node `json:"root"`
}

// Parse walks an editor state document collecting paragraph and heading text
// plus images.
func Parse(raw string) (*Parsed, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, models.NewValidationError("content is missing for text post")
	}
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, models.NewValidationError("content should be a valid editor document")
	}

	out := &Parsed{Images: []Image{}}
	var texts []string
	if doc.Root != nil {
		walk(doc.Root.Children, &texts, out)
	}
	out.WholeText = strings.TrimSpace(strings.Join(texts, " "))
	out.SlicedText = slice(out.WholeText)
	return out, nil
}

func walk(nodes []node, texts *[]string, out *Parsed) {
	for _, n := range nodes {
		switch n.Type {
		case "paragraph", "heading":
			var parts []string
			for _, c := range n.Children {
				switch c.Type {
				case "text":
					parts = append(parts, c.Text)
				case "image":
					out.addImage(c)
				}
			}
			if line := strings.Join(parts, " "); strings.TrimSpace(line) != "" {
				*texts = append(*texts, line)
			}
		case "image":
			out.addImage(n)
		}
		if len(n.Children) > 0 && n.Type != "paragraph" && n.Type != "heading" {
			walk(n.Children, texts, out)
		}
	}
}

func (p *Parsed) addImage(n node) {
	img := Image{Src: n.Src, Width: n.Width, Height: n.Height}
	p.Images = append(p.Images, img)
	if p.FirstImage == nil {
		first := img
		p.FirstImage = &first
	}
}

func slice(s string) string {
	if utf8.RuneCountInString(s) <= PreviewLength {
		return s
	}
	return string([]rune(s)[:PreviewLength]) + "..."
}

type canvasDoc struct {
	Snippets []struct {
		Text string `json:"text"`
	} `json:"snippets"`
}

// CanvasText joins the snippet texts of a canvas document.
func CanvasText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", models.NewValidationError("canvas_doc is missing")
	}
	var doc canvasDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", models.NewValidationError("invalid canvas_doc")
	}
	var parts []string
	for _, s := range doc.Snippets {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
